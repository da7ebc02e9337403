package orderscraper

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// outputEncoding parses a charset name and returns encoding.Encoding. nil means UTF-8.
func outputEncoding(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	}
	encode, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown output encoding %#v: %w", charset, err)
	}
	return encode, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// encodingWriter converts UTF-8 written to it into the given encoding. Close must be called to flush.
// Characters the encoding can't represent are replaced rather than failing the whole file.
func encodingWriter(w io.Writer, encode encoding.Encoding) io.WriteCloser {
	if encode == nil {
		return nopWriteCloser{w}
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(encode.NewEncoder()))
}

// encodingReader converts the given encoding to UTF-8.
func encodingReader(r io.Reader, encode encoding.Encoding) io.Reader {
	if encode == nil {
		return r
	}
	return transform.NewReader(r, encode.NewDecoder())
}
