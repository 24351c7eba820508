// Package content turns free-form or HTML job descriptions into a small,
// canonical markup: second-level headings, paragraphs, and ordered or
// unordered lists, with repeated blocks removed.
package content

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
)

type blockKind int

const (
	kindHeading blockKind = iota
	kindParagraph
	kindOrdered
	kindUnordered
)

type block struct {
	kind  blockKind
	text  string
	items []string
}

var (
	orderedMarker   = regexp.MustCompile(`^\(?\d+[.)]\s*`)
	unorderedMarker = regexp.MustCompile(`^[-•*·–▪●◦]\s*`)
	escapedTag      = regexp.MustCompile(`(?i)&lt;/?[a-z][a-z0-9]*`)
)

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

var containerTags = map[string]bool{
	"html": true, "body": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "main": true, "aside": true, "nav": true,
	"blockquote": true, "table": true, "thead": true, "tbody": true, "tfoot": true,
	"tr": true, "td": true, "th": true, "dl": true, "dd": true, "dt": true,
	"form": true, "fieldset": true, "center": true, "figure": true, "li": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"head": true, "iframe": true, "svg": true, "img": true, "button": true,
}

// Canonicalize converts raw description text or markup into canonical
// markup. It never fails: input it cannot parse becomes a single paragraph.
// Canonicalize(Canonicalize(x)) == Canonicalize(x).
func Canonicalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	markup := decodeEscapedMarkup(raw)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return render([]block{fallbackParagraph(markup)})
	}
	var c collector
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	root.Each(func(_ int, s *goquery.Selection) {
		c.walk(s.Nodes[0])
	})
	c.flush()
	return render(dedupe(c.blocks))
}

// decodeEscapedMarkup unescapes entity-encoded markup such as
// "&lt;p&gt;text&lt;/p&gt;". Input that already contains real tags is left
// for the HTML parser so literal "&lt;" text survives a second pass.
func decodeEscapedMarkup(raw string) string {
	if strings.Contains(raw, "<") || !escapedTag.MatchString(raw) {
		return raw
	}
	return html.UnescapeString(raw)
}

type collector struct {
	blocks []block
	lines  []string
	cur    strings.Builder
}

func (c *collector) walk(n *nethtml.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.visit(child)
	}
}

func (c *collector) visit(n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		c.text(n.Data)
		return
	case nethtml.ElementNode:
	default:
		c.walk(n)
		return
	}
	tag := strings.ToLower(n.Data)
	switch {
	case skipTags[tag]:
	case tag == "br":
		c.breakLine()
	case headingTags[tag]:
		c.flush()
		c.safely(n, func() {
			if text := collapse(textOf(n)); text != "" {
				c.blocks = append(c.blocks, block{kind: kindHeading, text: text})
			}
		})
	case tag == "ul" || tag == "ol":
		c.flush()
		c.safely(n, func() { c.list(n, tag == "ol") })
	case tag == "p" || tag == "pre":
		c.flush()
		c.safely(n, func() {
			if heading, ok := emphasizedHeading(n); ok {
				c.blocks = append(c.blocks, block{kind: kindHeading, text: heading})
				return
			}
			c.walk(n)
			c.flush()
		})
	case containerTags[tag]:
		c.flush()
		c.walk(n)
		c.flush()
	default:
		c.walk(n)
	}
}

// safely runs fn for a single block and degrades the block to a plain
// paragraph of its text if fn panics.
func (c *collector) safely(n *nethtml.Node, fn func()) {
	mark := len(c.blocks)
	defer func() {
		if r := recover(); r != nil {
			c.blocks = c.blocks[:mark]
			c.lines = nil
			c.cur.Reset()
			c.blocks = append(c.blocks, fallbackParagraph(textOf(n)))
		}
	}()
	fn()
}

// text appends character data. Newlines end a line; a blank line between
// two newlines ends the paragraph.
func (c *collector) text(s string) {
	parts := strings.Split(s, "\n")
	for i, part := range parts {
		if i > 0 {
			c.breakLine()
		}
		if i > 0 && i < len(parts)-1 && strings.TrimSpace(part) == "" {
			c.flush()
			continue
		}
		c.cur.WriteString(part)
	}
}

func (c *collector) breakLine() {
	if line := collapse(c.cur.String()); line != "" {
		c.lines = append(c.lines, line)
	}
	c.cur.Reset()
}

// flush turns the pending lines into a paragraph or, when every line carries
// a list marker, into a list.
func (c *collector) flush() {
	c.breakLine()
	lines := c.lines
	c.lines = nil
	if len(lines) == 0 {
		return
	}
	if b, ok := listFromLines(lines); ok {
		c.blocks = append(c.blocks, b)
		return
	}
	c.blocks = append(c.blocks, block{kind: kindParagraph, text: strings.Join(lines, " ")})
}

func (c *collector) list(n *nethtml.Node, ordered bool) {
	b := block{kind: kindUnordered}
	if ordered {
		b.kind = kindOrdered
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != nethtml.ElementNode {
			if text := collapse(child.Data); child.Type == nethtml.TextNode && text != "" {
				b.items = append(b.items, text)
			}
			continue
		}
		if text := collapse(textOf(child)); text != "" {
			b.items = append(b.items, text)
		}
	}
	if len(b.items) > 0 {
		c.blocks = append(c.blocks, b)
	}
}

func listFromLines(lines []string) (block, bool) {
	if len(lines) < 2 {
		return block{}, false
	}
	allOrdered := true
	items := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case orderedMarker.MatchString(line):
			items = append(items, collapse(orderedMarker.ReplaceAllString(line, "")))
		case unorderedMarker.MatchString(line):
			allOrdered = false
			items = append(items, collapse(unorderedMarker.ReplaceAllString(line, "")))
		default:
			return block{}, false
		}
	}
	b := block{kind: kindUnordered}
	if allOrdered {
		b.kind = kindOrdered
	}
	for _, item := range items {
		if item != "" {
			b.items = append(b.items, item)
		}
	}
	if len(b.items) == 0 {
		return block{}, false
	}
	return b, true
}

// emphasizedHeading reports whether a paragraph consists solely of one bold
// run, which job boards use as section titles.
func emphasizedHeading(n *nethtml.Node) (string, bool) {
	var strong *nethtml.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch {
		case child.Type == nethtml.TextNode && strings.TrimSpace(child.Data) == "":
		case child.Type == nethtml.ElementNode && child.Data == "br":
		case child.Type == nethtml.ElementNode && (child.Data == "strong" || child.Data == "b") && strong == nil:
			strong = child
		default:
			return "", false
		}
	}
	if strong == nil {
		return "", false
	}
	text := collapse(textOf(strong))
	return text, text != ""
}

func textOf(n *nethtml.Node) string {
	var b strings.Builder
	var walk func(*nethtml.Node)
	walk = func(node *nethtml.Node) {
		switch {
		case node.Type == nethtml.TextNode:
			b.WriteString(node.Data)
		case node.Type == nethtml.ElementNode && skipTags[node.Data]:
			return
		case node.Type == nethtml.ElementNode && (node.Data == "br" || node.Data == "li" || node.Data == "p"):
			b.WriteByte(' ')
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func fallbackParagraph(raw string) block {
	return block{kind: kindParagraph, text: collapse(stripTags(raw))}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return html.UnescapeString(tagPattern.ReplaceAllString(s, " "))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func dedupe(blocks []block) []block {
	seen := make(map[string]bool, len(blocks))
	out := make([]block, 0, len(blocks))
	for _, b := range blocks {
		if b.kind == kindParagraph && b.text == "" {
			continue
		}
		key := dedupeKey(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

func dedupeKey(b block) string {
	body := b.text
	if len(b.items) > 0 {
		body = strings.Join(b.items, "\x1f")
	}
	return fmt.Sprintf("%d:%s", b.kind, strings.ToLower(collapse(body)))
}

func render(blocks []block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.kind {
		case kindHeading:
			parts = append(parts, "<h2>"+html.EscapeString(b.text)+"</h2>")
		case kindParagraph:
			if b.text != "" {
				parts = append(parts, "<p>"+html.EscapeString(b.text)+"</p>")
			}
		case kindOrdered, kindUnordered:
			tag := "ul"
			if b.kind == kindOrdered {
				tag = "ol"
			}
			var sb strings.Builder
			sb.WriteString("<" + tag + ">")
			for _, item := range b.items {
				sb.WriteString("<li>" + html.EscapeString(item) + "</li>")
			}
			sb.WriteString("</" + tag + ">")
			parts = append(parts, sb.String())
		}
	}
	return strings.Join(parts, "\n")
}
