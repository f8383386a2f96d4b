// Package mime negotiates content types between the side offering data and
// the side consuming it. Clipboard, primary selection and drag-and-drop all
// go through the same rules.
package mime

import (
	"errors"
	"fmt"
	stdmime "mime"
	"sort"
	"strings"
)

// Common content types.
const (
	TextPlain     = "text/plain"
	TextPlainUTF8 = "text/plain;charset=utf-8"
	TextURIList   = "text/uri-list"
	TextHTML      = "text/html"
)

var (
	// ErrEmptyEntry is returned for lists containing blank types.
	ErrEmptyEntry = errors.New("empty mime type")
	// ErrMalformed is returned for types without a type/subtype shape.
	ErrMalformed = errors.New("malformed mime type")
	// ErrDuplicate is returned when a list repeats a type.
	ErrDuplicate = errors.New("duplicate mime type")
)

// Policy decides whose ordering breaks ties when several types match.
type Policy int

const (
	// OfferOrder picks the first match in the offering side's order.
	OfferOrder Policy = iota
	// TargetOrder picks the first match in the consuming side's order.
	TargetOrder
)

// ParsePolicy maps a config string onto a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "offer_order":
		return OfferOrder, nil
	case "target_order":
		return TargetOrder, nil
	default:
		return OfferOrder, fmt.Errorf("unknown tie-break policy %q", s)
	}
}

func (p Policy) String() string {
	if p == TargetOrder {
		return "target_order"
	}
	return "offer_order"
}

// aliases maps legacy X11 target names onto the types they carry.
var aliases = map[string]string{
	"UTF8_STRING":             TextPlainUTF8,
	"STRING":                  TextPlain,
	"TEXT":                    TextPlain,
	"text/plain;charset=utf8": TextPlainUTF8,
}

// Canonical lowercases type, subtype and parameter names, sorts the
// parameters and resolves X11 aliases. Parameter values keep their case,
// except charset. Text that does not parse as a media type is only trimmed
// and lowercased.
func Canonical(t string) string {
	t = strings.TrimSpace(t)
	if alias, ok := aliases[t]; ok {
		return alias
	}
	base, params, err := stdmime.ParseMediaType(t)
	if err != nil {
		return strings.ToLower(t)
	}
	if len(params) == 0 {
		return base
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(base)
	for _, k := range keys {
		v := params[k]
		if k == "charset" {
			v = strings.ToLower(v)
		}
		b.WriteString(";" + k + "=" + v)
	}
	canon := b.String()
	if alias, ok := aliases[canon]; ok {
		return alias
	}
	return canon
}

// Equal reports whether two types name the same content.
func Equal(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// Negotiate returns the first type both sides support. Offered is the
// owner's list in its declared order; supported is the consumer's list.
func Negotiate(offered, supported []string, policy Policy) (string, bool) {
	first, second := offered, supported
	if policy == TargetOrder {
		first, second = supported, offered
	}
	for _, want := range first {
		for _, have := range second {
			if Equal(want, have) {
				if policy == TargetOrder {
					return have, true
				}
				return want, true
			}
		}
	}
	return "", false
}

// Contains reports whether list holds t.
func Contains(list []string, t string) bool {
	for _, l := range list {
		if Equal(l, t) {
			return true
		}
	}
	return false
}

// Validate checks the shape of a single type.
func Validate(t string) error {
	if strings.TrimSpace(t) == "" {
		return ErrEmptyEntry
	}
	if _, ok := aliases[strings.TrimSpace(t)]; ok {
		return nil
	}
	base, _, _ := strings.Cut(t, ";")
	typ, sub, ok := strings.Cut(strings.TrimSpace(base), "/")
	if !ok || typ == "" || sub == "" || strings.ContainsAny(base, " \t,") {
		return fmt.Errorf("%w: %q", ErrMalformed, t)
	}
	return nil
}

// ValidateList checks every entry and rejects duplicates.
func ValidateList(list []string) error {
	seen := make(map[string]struct{}, len(list))
	for i, t := range list {
		if err := Validate(t); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		c := Canonical(t)
		if _, dup := seen[c]; dup {
			return fmt.Errorf("entry %d: %w: %q", i, ErrDuplicate, t)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// ParseCSV splits a comma-separated list of types, as hosts pass them to
// Paste.
func ParseCSV(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyEntry)
		}
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Copy returns a copy of list so callers can hold it past a callback.
func Copy(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}
