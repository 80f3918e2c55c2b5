package api

import "testing"

func TestParseCategory(t *testing.T) {
	if got := ParseCategory("ask"); got != CategoryAsk {
		t.Errorf("ParseCategory(ask) = %q", got)
	}
	if got := ParseCategory("frontpage"); got != CategoryTop {
		t.Errorf("ParseCategory(frontpage) = %q, want fallback to top", got)
	}
}

func TestItemKids(t *testing.T) {
	it := Item{RawKids: []byte(`[8,9]`)}
	kids := it.Kids()
	if len(kids) != 2 || kids[0] != 8 || kids[1] != 9 {
		t.Errorf("Kids() = %v", kids)
	}
	var bare Item
	if empty := bare.Kids(); len(empty) != 0 {
		t.Errorf("Kids() on empty raw = %v", empty)
	}
}
