package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	strata "github.com/strata-kb/strata"
)

// selfClosedRe matches self-closed ac:/ri: elements. The HTML parser only
// honors self-closing syntax on known void elements; an unexpanded
// <ri:page ... /> would stay open and swallow the rest of the document.
var selfClosedRe = regexp.MustCompile(`<((?:ac|ri):[\w-]+)((?:[^>"]|"[^"]*")*?)/>`)

// parseStorage walks rich storage XML (Confluence-style markup) leniently
// via the HTML parser. Non-content decoration (images, attachments,
// emoticons, navigation macros) is stripped; user mentions and status
// macros are replaced with plain-text equivalents.
func parseStorage(raw string) strata.DocumentStructure {
	expanded := selfClosedRe.ReplaceAllString(raw, "<$1$2></$1>")
	root, err := html.Parse(strings.NewReader(expanded))
	if err != nil {
		return flatStructure(raw, "")
	}
	b := newBuilder()
	walkStorage(root, b)
	return b.Finish()
}

func walkStorage(n *html.Node, b *builder) {
	if n.Type == html.TextNode {
		b.Text(collapseSpace(n.Data))
		return
	}
	if n.Type != html.ElementNode && n.Type != html.DocumentNode {
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		b.Heading(level, collapseSpace(storageInline(n)), strata.Span{})
		return
	case "table":
		b.Table(storageTable(n))
		return
	case "pre":
		b.Code(strata.CodeBlock{Code: strings.TrimSpace(nodeContent(n))})
		return
	case "p", "li", "blockquote", "td", "th":
		b.Text(collapseSpace(storageInline(n)))
		return
	case "ul", "ol":
		var lines []string
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "li" {
				if t := collapseSpace(storageInline(c)); t != "" {
					lines = append(lines, "- "+t)
				}
			}
		}
		b.Text(strings.Join(lines, "\n"))
		return
	case "ac:structured-macro", "ac:macro":
		storageMacro(n, b)
		return
	case "ac:image", "ri:attachment", "ac:placeholder", "ac:emoticon", "head", "script", "style":
		// decoration, no content to keep
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkStorage(c, b)
	}
}

// storageMacro handles <ac:structured-macro ac:name="...">. Code macros
// become code blocks; status macros collapse to their title text; panel-like
// macros contribute their rich body; navigation macros are dropped.
func storageMacro(n *html.Node, b *builder) {
	switch attrVal(n, "ac:name") {
	case "code":
		b.Code(strata.CodeBlock{
			Language: strings.TrimSpace(macroParam(n, "language")),
			Code:     strings.TrimSpace(plainTextBody(n)),
		})
	case "status":
		b.Text(collapseSpace(macroParam(n, "title")))
	case "toc", "pagetree", "children", "include", "excerpt-include", "gallery", "attachments", "recently-updated":
		// navigation/embedding macros carry no document content
	default:
		if body := findElem(n, "ac:rich-text-body"); body != nil {
			for c := body.FirstChild; c != nil; c = c.NextSibling {
				walkStorage(c, b)
			}
			return
		}
		if t := strings.TrimSpace(plainTextBody(n)); t != "" {
			b.Text(t)
		}
	}
}

// storageInline renders the inline text of an element, applying the
// plain-text replacements for mentions, emoticons, links, and status.
func storageInline(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type != html.ElementNode:
			// comments etc.
		case c.Data == "ac:link":
			sb.WriteString(storageLink(c))
		case c.Data == "ac:emoticon":
			if name := attrVal(c, "ac:name"); name != "" {
				sb.WriteString(":" + name + ":")
			}
		case c.Data == "ac:image":
			sb.WriteString(attrVal(c, "ac:alt"))
		case c.Data == "ac:structured-macro" && attrVal(c, "ac:name") == "status":
			sb.WriteString(macroParam(c, "title"))
		case c.Data == "ri:attachment", c.Data == "ac:placeholder":
			// stripped
		case c.Data == "br":
			sb.WriteByte('\n')
		default:
			sb.WriteString(storageInline(c))
		}
	}
	return sb.String()
}

// storageLink renders an <ac:link>: user mentions become @username, page
// links their title, otherwise the link body text.
func storageLink(n *html.Node) string {
	if user := findElem(n, "ri:user"); user != nil {
		name := attrVal(user, "ri:username")
		if name == "" {
			name = "user"
		}
		return "@" + name
	}
	if page := findElem(n, "ri:page"); page != nil {
		if title := attrVal(page, "ri:content-title"); title != "" {
			return title
		}
	}
	if body := findElem(n, "ac:plain-text-link-body"); body != nil {
		return strings.TrimSpace(nodeContent(body))
	}
	if body := findElem(n, "ac:link-body"); body != nil {
		return strings.TrimSpace(storageInline(body))
	}
	return strings.TrimSpace(nodeContent(n))
}

// storageTable extracts header and body rows. A row is a header row when
// it sits in <thead> or all its cells are <th>.
func storageTable(n *html.Node) strata.Table {
	var out strata.Table
	if cap := findElem(n, "caption"); cap != nil {
		out.Caption = collapseSpace(nodeContent(cap))
	}
	for _, tr := range findAll(n, "tr") {
		var cells []string
		allTH := true
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "th":
				cells = append(cells, collapseSpace(storageInline(c)))
			case "td":
				allTH = false
				cells = append(cells, collapseSpace(storageInline(c)))
			}
		}
		if cells == nil {
			continue
		}
		if out.Headers == nil && len(out.Rows) == 0 && (allTH || inThead(tr)) {
			out.Headers = cells
		} else {
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

func inThead(n *html.Node) bool {
	return n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.Data == "thead"
}

// plainTextBody returns the text of <ac:plain-text-body>, unwrapping the
// CDATA section the HTML parser surfaces as a comment node.
func plainTextBody(n *html.Node) string {
	body := findElem(n, "ac:plain-text-body")
	if body == nil {
		return ""
	}
	return nodeContent(body)
}

// macroParam returns the text of <ac:parameter ac:name="name">.
func macroParam(n *html.Node, name string) string {
	for _, p := range findAll(n, "ac:parameter") {
		if attrVal(p, "ac:name") == name {
			return nodeContent(p)
		}
	}
	return ""
}

// nodeContent concatenates all descendant text, including CDATA payloads.
func nodeContent(n *html.Node) string {
	var sb strings.Builder
	var rec func(*html.Node)
	rec = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.CommentNode:
			// <![CDATA[...]]> inside foreign content parses as a comment.
			if inner, ok := strings.CutPrefix(c.Data, "[CDATA["); ok {
				sb.WriteString(strings.TrimSuffix(inner, "]]"))
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			rec(cc)
		}
	}
	rec(n)
	return sb.String()
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findElem returns the first descendant element with the given tag name.
func findElem(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findElem(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns all descendant elements with the given tag name, in
// document order.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var rec func(*html.Node)
	rec = func(c *html.Node) {
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			if cc.Type == html.ElementNode && cc.Data == tag {
				out = append(out, cc)
			}
			rec(cc)
		}
	}
	rec(n)
	return out
}

// collapseSpace folds runs of whitespace into single spaces, keeping
// deliberate line breaks.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, l := range lines {
		if t := strings.Join(strings.Fields(l), " "); t != "" {
			out = append(out, t)
		}
	}
	return strings.Join(out, "\n")
}
