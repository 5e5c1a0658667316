package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	strata "github.com/strata-kb/strata"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body embeddingsBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Input) != 2 {
			t.Errorf("input len = %d", len(body.Input))
		}
		// Return data out of order; the index field must restore ordering.
		json.NewEncoder(w).Encode(embeddingsResult{Data: []embeddingDatum{
			{Index: 1, Embedding: []float32{2, 2}},
			{Index: 0, Embedding: []float32{1, 1}},
		}})
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("k", "text-embedding-3-small", srv.URL, WithDimensions(2))
	got, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vectors", len(got))
	}
	if got[0][0] != 1 || got[1][0] != 2 {
		t.Errorf("vectors out of order: %v", got)
	}
	if p.Dimensions() != 2 {
		t.Errorf("dimensions = %d", p.Dimensions())
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty input must not reach the API")
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("k", "m", srv.URL)
	got, err := p.Embed(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("got (%v, %v), want empty result", got, err)
	}
}

func TestEmbedBlankTextRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid input must not reach the API")
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("k", "m", srv.URL)
	_, err := p.Embed(context.Background(), []string{"fine", "   "})
	var verr *strata.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingsResult{Data: []embeddingDatum{
			{Index: 0, Embedding: []float32{1}},
		}})
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("k", "m", srv.URL)
	if _, err := p.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("want error on embedding count mismatch")
	}
}

func TestEmbedRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("k", "m", srv.URL)
	_, err := p.Embed(context.Background(), []string{"a"})
	var rl *strata.RateLimitError
	if !errors.As(err, &rl) {
		t.Errorf("err = %v, want RateLimitError", err)
	}
}
