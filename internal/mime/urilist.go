package mime

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"unicode/utf8"
)

var (
	// ErrUnterminated is returned when a uri list does not end in CRLF.
	ErrUnterminated = errors.New("unterminated uri list")
	// ErrEncoding is returned when transferred text is not valid UTF-8.
	ErrEncoding = errors.New("invalid text encoding")
)

// ParseURIList decodes a text/uri-list payload (RFC 2483). Comment lines
// are skipped; file:// URIs become paths, other URIs are returned as is.
// Bare LF line endings are accepted; a missing final terminator is not.
func ParseURIList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if !utf8.Valid(data) {
		return nil, ErrEncoding
	}
	if data[len(data)-1] != '\n' {
		return nil, ErrUnterminated
	}

	var out []string
	for _, line := range bytes.Split(data[:len(data)-1], []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		u, err := url.Parse(string(line))
		if err != nil {
			return nil, fmt.Errorf("uri list entry %q: %w", line, err)
		}
		if u.Scheme == "file" {
			out = append(out, u.Path)
			continue
		}
		out = append(out, u.String())
	}
	return out, nil
}

// FormatURIList encodes paths as a text/uri-list payload.
func FormatURIList(paths []string) []byte {
	var buf bytes.Buffer
	for _, p := range paths {
		u := url.URL{Scheme: "file", Path: p}
		buf.WriteString(u.String())
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
