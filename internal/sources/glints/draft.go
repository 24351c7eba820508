package glints

import (
	"encoding/json"
	"html"
	"strings"
)

type draftDocument struct {
	Blocks []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"blocks"`
}

// renderDraft converts a Draft.js raw content document into simple markup.
// Consecutive list items share one list. Input that is not a Draft.js
// document yields "".
func renderDraft(doc string) string {
	if strings.TrimSpace(doc) == "" {
		return ""
	}
	var d draftDocument
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return ""
	}

	var (
		out     []string
		listTag string
		items   strings.Builder
	)
	closeList := func() {
		if listTag == "" {
			return
		}
		out = append(out, "<"+listTag+">"+items.String()+"</"+listTag+">")
		listTag = ""
		items.Reset()
	}
	for _, b := range d.Blocks {
		text := strings.TrimSpace(b.Text)
		tag := ""
		switch b.Type {
		case "unordered-list-item":
			tag = "ul"
		case "ordered-list-item":
			tag = "ol"
		}
		if tag != listTag {
			closeList()
		}
		if text == "" {
			continue
		}
		escaped := html.EscapeString(text)
		switch {
		case tag != "":
			listTag = tag
			items.WriteString("<li>" + escaped + "</li>")
		case strings.HasPrefix(b.Type, "header-"):
			out = append(out, "<h2>"+escaped+"</h2>")
		default:
			out = append(out, "<p>"+escaped+"</p>")
		}
	}
	closeList()
	return strings.Join(out, "\n")
}
