// Package filters decodes the stream encodings a content stream may
// arrive in before the engine parses it. Only the lossless text-bearing
// filters are supported; image codecs are out of scope because the
// engine never decodes image data.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
)

// Decoder decodes one filter encoding.
type Decoder interface {
	Name() string
	Decode(ctx context.Context, input []byte) ([]byte, error)
}

// Limits bounds decode output so a malformed stream cannot exhaust
// memory. Zero means unlimited.
type Limits struct {
	MaxDecodedSize int64
}

// Pipeline applies a filter chain in order, outermost first, as listed
// in a stream's Filter entry.
type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

// NewPipeline builds a pipeline over the given decoders.
func NewPipeline(limits Limits, decoders ...Decoder) *Pipeline {
	m := make(map[string]Decoder, len(decoders))
	for _, d := range decoders {
		m[d.Name()] = d
	}
	return &Pipeline{decoders: m, limits: limits}
}

// Default returns a pipeline with all supported decoders and the given
// limits.
func Default(limits Limits) *Pipeline {
	return NewPipeline(limits, NewFlateDecoder(), NewASCIIHexDecoder(), NewASCII85Decoder())
}

// Decode runs input through the named filters in order.
func (p *Pipeline) Decode(ctx context.Context, input []byte, filterNames []string) ([]byte, error) {
	data := input
	for _, name := range filterNames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dec, ok := p.decoders[name]
		if !ok {
			return nil, fmt.Errorf("unsupported filter %q", name)
		}
		out, err := dec.Decode(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if p.limits.MaxDecodedSize > 0 && int64(len(out)) > p.limits.MaxDecodedSize {
			return nil, fmt.Errorf("%s: decoded size %d exceeds limit %d", name, len(out), p.limits.MaxDecodedSize)
		}
		data = out
	}
	return data, nil
}

type flateDecoder struct{}

// NewFlateDecoder returns the FlateDecode decoder. Streams normally
// carry a zlib wrapper; raw deflate is accepted as a fallback because
// some producers omit the wrapper.
func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(ctx context.Context, in []byte) ([]byte, error) {
	if r, err := zlib.NewReader(bytes.NewReader(in)); err == nil {
		defer r.Close()
		return readAll(ctx, r)
	}
	r := flate.NewReader(bytes.NewReader(in))
	defer r.Close()
	return readAll(ctx, r)
}

type asciiHexDecoder struct{}

// NewASCIIHexDecoder returns the ASCIIHexDecode decoder.
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(_ context.Context, in []byte) ([]byte, error) {
	trimmed := compactHex(in)
	if i := bytes.IndexByte(trimmed, '>'); i >= 0 {
		trimmed = trimmed[:i]
	}
	// An odd final nibble reads as if followed by zero.
	if len(trimmed)%2 == 1 {
		trimmed = append(trimmed, '0')
	}
	out := make([]byte, hex.DecodedLen(len(trimmed)))
	n, err := hex.Decode(out, trimmed)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

type ascii85Decoder struct{}

// NewASCII85Decoder returns the ASCII85Decode decoder.
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(_ context.Context, in []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	if bytes.HasPrefix(trimmed, []byte("<~")) {
		trimmed = trimmed[2:]
	}
	if i := bytes.Index(trimmed, []byte("~>")); i >= 0 {
		trimmed = trimmed[:i]
	}
	out := make([]byte, len(trimmed)+4)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func compactHex(in []byte) []byte {
	out := make([]byte, 0, len(in))
	for _, c := range in {
		switch c {
		case ' ', '\t', '\r', '\n', '\f', 0:
			continue
		}
		out = append(out, c)
	}
	return out
}
