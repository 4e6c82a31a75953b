package contentstream

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	lx := NewLexer([]byte(src))
	var out []Token
	for {
		tok, err := lx.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("lex %q: %v", src, err)
		}
		out = append(out, tok)
	}
}

func TestLexerNumbers(t *testing.T) {
	toks := lexAll(t, "12 -3 +4 0.5 -.25 100.")
	want := []struct {
		typ TokenType
		val interface{}
	}{
		{TokenInteger, int64(12)},
		{TokenInteger, int64(-3)},
		{TokenInteger, int64(4)},
		{TokenReal, 0.5},
		{TokenReal, -0.25},
		{TokenReal, 100.0},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.typ {
			t.Errorf("token %d: type %v, want %v", i, toks[i].Type, w.typ)
		}
		if diff := cmp.Diff(w.val, toks[i].Value); diff != "" {
			t.Errorf("token %d value (-want +got):\n%s", i, diff)
		}
	}
}

func TestLexerLiteralString(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`(hello)`, "hello"},
		{`(a(b)c)`, "a(b)c"},                // balanced nesting
		{`(a\(b)`, "a(b)"},                  // escaped paren
		{`(line\nbreak)`, "line\nbreak"},    // escape letters
		{`(octal\101)`, "octalA"},           // octal escape
		{`(oct\1019)`, "octA9"},             // three digits max
		{`(back\\slash)`, `back\slash`},     // escaped backslash
		{"(cont\\\ninued)", "continued"},    // line continuation
		{`(unknown\q)`, "unknownq"},         // unknown escape keeps byte
	}
	for _, c := range cases {
		toks := lexAll(t, c.src)
		if len(toks) != 1 || toks[0].Type != TokenString {
			t.Fatalf("%q: expected single string token", c.src)
		}
		if got := string(toks[0].Value.([]byte)); got != c.want {
			t.Errorf("%q: got %q, want %q", c.src, got, c.want)
		}
	}
}

func TestLexerHexString(t *testing.T) {
	toks := lexAll(t, "<48 65 6C6C 6F> <414>")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
	if got := string(toks[0].Value.([]byte)); got != "Hello" {
		t.Errorf("got %q, want Hello", got)
	}
	// Odd nibble count pads with zero.
	if got := string(toks[1].Value.([]byte)); got != "A@" {
		t.Errorf("got %q, want A@", got)
	}
}

func TestLexerNames(t *testing.T) {
	toks := lexAll(t, "/F1 /With#20Space")
	if toks[0].Value.(string) != "F1" {
		t.Errorf("got %q", toks[0].Value)
	}
	if toks[1].Value.(string) != "With Space" {
		t.Errorf("got %q", toks[1].Value)
	}
}

func TestLexerOperators(t *testing.T) {
	toks := lexAll(t, "BT T* f* ' \" re ET")
	want := []string{"BT", "T*", "f*", "'", "\"", "re", "ET"}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != TokenOperator || toks[i].Value.(string) != w {
			t.Errorf("token %d: got %v %q, want operator %q", i, toks[i].Type, toks[i].Value, w)
		}
	}
}

func TestLexerCommentsAndWhitespace(t *testing.T) {
	toks := lexAll(t, "% a comment\n 1 % another\r\n 2")
	if len(toks) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(toks))
	}
}

func TestLexerMalformedInput(t *testing.T) {
	cases := []string{
		"(unterminated",
		`(trailing\`,
		"<48656",
		"<4x>",
		"1.2.3",
		")",
		">",
	}
	for _, src := range cases {
		lx := NewLexer([]byte(src))
		var err error
		for err == nil {
			_, err = lx.Next()
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%q: expected ParseError, got %v", src, err)
		}
	}
}

func TestLexerCaptureThrough(t *testing.T) {
	src := []byte("BI /W 2 ID \x00\xffEI not-it EI Q")
	lx := NewLexer(src)
	tok, err := lx.Next()
	if err != nil || tok.Value.(string) != "BI" {
		t.Fatalf("expected BI, got %v %v", tok, err)
	}
	end, err := lx.CaptureThrough("EI")
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	// The first EI is glued to payload bytes; the token-boundary match is
	// the later standalone one.
	if got := string(src[tok.Pos:end]); got != "BI /W 2 ID \x00\xffEI not-it EI" {
		t.Errorf("captured %q", got)
	}
	next, err := lx.Next()
	if err != nil || next.Value.(string) != "Q" {
		t.Fatalf("expected Q after capture, got %v %v", next, err)
	}
}
