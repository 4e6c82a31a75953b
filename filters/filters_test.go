package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/ascii85"
	"encoding/hex"
	"strings"
	"testing"
)

func zlibEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFlateDecode(t *testing.T) {
	want := []byte("BT /F1 12 Tf (hello) Tj ET")
	got, err := Default(Limits{}).Decode(context.Background(), zlibEncode(t, want), []string{"FlateDecode"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q", got)
	}
}

func TestASCIIHexDecode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"48 65 6C 6C 6F>", "Hello"},
		{"48656c6c6f>", "Hello"},
		{"486>", "H`"}, // odd nibble pads with zero
	}
	p := Default(Limits{})
	for _, c := range cases {
		got, err := p.Decode(context.Background(), []byte(c.in), []string{"ASCIIHexDecode"})
		if err != nil {
			t.Errorf("%q: %v", c.in, err)
			continue
		}
		if string(got) != c.want {
			t.Errorf("%q: got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestASCII85Decode(t *testing.T) {
	plain := []byte("content stream bytes")
	enc := make([]byte, ascii85.MaxEncodedLen(len(plain)))
	n := ascii85.Encode(enc, plain)
	src := "<~" + string(enc[:n]) + "~>"
	got, err := Default(Limits{}).Decode(context.Background(), []byte(src), []string{"ASCII85Decode"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("got %q", got)
	}
}

func TestFilterChain(t *testing.T) {
	want := []byte("q Q")
	inner := zlibEncode(t, want)
	outer := strings.ToUpper(hex.EncodeToString(inner)) + ">"
	// Outermost filter first, as in a stream's Filter array.
	got, err := Default(Limits{}).Decode(context.Background(), []byte(outer),
		[]string{"ASCIIHexDecode", "FlateDecode"})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q", got)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := Default(Limits{}).Decode(context.Background(), nil, []string{"JBIG2Decode"})
	if err == nil || !strings.Contains(err.Error(), "unsupported filter") {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodedSizeLimit(t *testing.T) {
	big := bytes.Repeat([]byte("A"), 1<<16)
	_, err := Default(Limits{MaxDecodedSize: 1024}).Decode(context.Background(),
		zlibEncode(t, big), []string{"FlateDecode"})
	if err == nil || !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("err = %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Default(Limits{}).Decode(ctx, nil, []string{"FlateDecode"}); err == nil {
		t.Fatal("expected context error")
	}
}
