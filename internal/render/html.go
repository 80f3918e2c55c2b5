package render

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// flattener accumulates plain text while walking HN comment markup.
// Code block lines get a four space indent, which also marks them as
// exempt from wrapping.
type flattener struct {
	out  strings.Builder
	pre  bool
	href string
}

// ToText converts HN's limited comment markup to plain text wrapped at
// width. The API emits a small HTML subset: <p>, <a href>, <i>/<em>,
// <code>, <pre>, plus entities. Unknown tags contribute only their
// text content.
func ToText(raw string, width int) string {
	if raw == "" {
		return ""
	}

	var f flattener
	z := xhtml.NewTokenizer(strings.NewReader(html.UnescapeString(raw)))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return wrap(strings.Trim(f.out.String(), "\n"), width)
		case xhtml.StartTagToken:
			f.open(z.Token())
		case xhtml.EndTagToken:
			f.close(z.Token())
		case xhtml.TextToken:
			f.text(z.Token().Data)
		}
	}
}

func (f *flattener) open(t xhtml.Token) {
	switch t.Data {
	case "p":
		if f.out.Len() > 0 {
			f.out.WriteString("\n\n")
		}
	case "i", "em":
		f.out.WriteString("*")
	case "code":
		if !f.pre {
			f.out.WriteString("`")
		}
	case "pre":
		f.pre = true
		f.out.WriteString("\n")
	case "a":
		for _, attr := range t.Attr {
			if attr.Key == "href" {
				f.href = attr.Val
			}
		}
	}
}

func (f *flattener) close(t xhtml.Token) {
	switch t.Data {
	case "i", "em":
		f.out.WriteString("*")
	case "code":
		if !f.pre {
			f.out.WriteString("`")
		}
	case "pre":
		f.pre = false
		f.out.WriteString("\n")
	case "a":
		// Show the target unless the link text already is the URL.
		if f.href != "" && !strings.HasSuffix(strings.TrimSpace(f.out.String()), f.href) {
			f.out.WriteString(" [" + f.href + "]")
		}
		f.href = ""
	}
}

func (f *flattener) text(s string) {
	if !f.pre {
		f.out.WriteString(s)
		return
	}
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			f.out.WriteString("\n")
		}
		if line != "" {
			f.out.WriteString("    " + line)
		}
	}
}

// wrap word-wraps each paragraph at width. Code lines (four space
// indent) pass through untouched.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if para == "" || strings.HasPrefix(para, "    ") {
			out = append(out, para)
			continue
		}
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) > width:
				out = append(out, line)
				line = word
			default:
				line += " " + word
			}
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}
