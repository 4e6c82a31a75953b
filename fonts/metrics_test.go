package fonts

import (
	"testing"

	"github.com/wudi/redactkit/document"
)

func TestAdvance(t *testing.T) {
	f := &document.Font{BaseFont: "Helvetica", Widths: map[int]int{'A': 722, 'i': 278}}
	cases := []struct {
		font *document.Font
		code byte
		want float64
	}{
		{f, 'A', 722},
		{f, 'i', 278},
		{f, 'z', DefaultWidth}, // not in the table
		{nil, 'A', DefaultWidth},
		{&document.Font{BaseFont: "F"}, 'A', DefaultWidth}, // no widths
	}
	for _, c := range cases {
		if got := Advance(c.font, c.code); got != c.want {
			t.Errorf("Advance(%v, %q) = %v, want %v", c.font, c.code, got, c.want)
		}
	}
}

func TestDecode(t *testing.T) {
	got := Decode(nil, []byte("Ab c"))
	want := []rune{'A', 'b', ' ', 'c'}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rune %d = %q, want %q", i, got[i], want[i])
		}
	}
}
