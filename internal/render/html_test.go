package render

import (
	"strings"
	"testing"
	"time"
)

func TestToText(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{
			name: "paragraphs",
			in:   "first<p>second",
			want: "first\n\nsecond",
		},
		{
			name: "italics",
			in:   "so <i>very</i> true",
			want: "so *very* true",
		},
		{
			name: "inline code",
			in:   "run <code>go vet</code> first",
			want: "run `go vet` first",
		},
		{
			name: "entities",
			in:   "a &gt; b &amp;&amp; b &gt; c",
			want: "a > b && b > c",
		},
		{
			name: "link with distinct text",
			in:   `see <a href="https://example.com">the docs</a>`,
			want: "see the docs [https://example.com]",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToText(tc.in, tc.width)
			if got != tc.want {
				t.Errorf("ToText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestToText_WrapsToWidth(t *testing.T) {
	in := strings.Repeat("word ", 20)
	got := ToText(in, 20)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width 20", line)
		}
	}
}

func TestToText_PreservesCodeBlocks(t *testing.T) {
	in := "<pre><code>if x {\n    y()\n}</code></pre>"
	got := ToText(in, 10)
	if !strings.Contains(got, "    if x {") {
		t.Errorf("ToText() = %q, want indented code block", got)
	}
	// Code lines are exempt from wrapping even past the width.
	if !strings.Contains(got, "        y()") {
		t.Errorf("ToText() = %q, want nested indent preserved", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Now().Unix()
	cases := []struct {
		name string
		unix int64
		want string
	}{
		{"seconds", now - 30, "30s ago"},
		{"minutes", now - 120, "2m ago"},
		{"hours", now - 7200, "2h ago"},
		{"days", now - 3*86400, "3d ago"},
		{"future", now + 60, "now"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeAgo(tc.unix); got != tc.want {
				t.Errorf("TimeAgo() = %q, want %q", got, tc.want)
			}
		})
	}
}
