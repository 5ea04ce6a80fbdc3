package spec

import (
	"strings"

	"github.com/loykin/apicontract/pkg/gpath"
)

// Mode records how a key was registered, which decides how it merges.
type Mode int

const (
	// Scalar keys replace earlier values for the same key on merge.
	Scalar Mode = iota
	// Multi keys append to earlier values for the same key on merge.
	Multi
)

func (m Mode) String() string {
	if m == Multi {
		return "multi"
	}
	return "scalar"
}

type entry struct {
	values []string
	mode   Mode
}

// Params is an immutable ordered multi-valued mapping. Keys keep their first
// insertion order. A key registered with no values is present with an empty
// list. All methods return new values and never modify the receiver.
type Params struct {
	keys    []string
	entries map[string]entry
	fold    bool
}

// foldedParams compares keys case-insensitively, as HTTP header names are.
func foldedParams() Params { return Params{fold: true} }

func (p Params) norm(k string) string {
	if p.fold {
		return strings.ToLower(k)
	}
	return k
}

func (p Params) lookup(k string) (string, entry, bool) {
	nk := p.norm(k)
	for _, key := range p.keys {
		if p.norm(key) == nk {
			return key, p.entries[key], true
		}
	}
	return "", entry{}, false
}

// Len returns the number of keys.
func (p Params) Len() int { return len(p.keys) }

// Keys returns the keys in first-insertion order.
func (p Params) Keys() []string { return append([]string(nil), p.keys...) }

// Has reports whether key is present, even with an empty value list.
func (p Params) Has(key string) bool {
	_, _, ok := p.lookup(key)
	return ok
}

// Get returns a copy of the values stored under key.
func (p Params) Get(key string) []string {
	_, e, ok := p.lookup(key)
	if !ok {
		return nil
	}
	return append([]string{}, e.values...)
}

// First returns the first value for key.
func (p Params) First(key string) (string, bool) {
	_, e, ok := p.lookup(key)
	if !ok || len(e.values) == 0 {
		return "", false
	}
	return e.values[0], true
}

// ModeOf returns the registration mode of key.
func (p Params) ModeOf(key string) Mode {
	_, e, _ := p.lookup(key)
	return e.mode
}

// Each calls f for every key in order.
func (p Params) Each(f func(key string, values []string)) {
	for _, k := range p.keys {
		f(k, append([]string{}, p.entries[k].values...))
	}
}

func (p Params) clone() Params {
	c := Params{keys: append([]string(nil), p.keys...), entries: make(map[string]entry, len(p.entries)), fold: p.fold}
	for k, e := range p.entries {
		c.entries[k] = e
	}
	return c
}

// With registers values under key. In Scalar mode they replace any existing
// values; in Multi mode they are appended.
func (p Params) With(key string, mode Mode, values ...string) Params {
	c := p.clone()
	existing, e, ok := c.lookup(key)
	if !ok {
		c.keys = append(c.keys, key)
		c.entries[key] = entry{values: append([]string{}, values...), mode: mode}
		return c
	}
	if mode == Multi {
		merged := make([]string, 0, len(e.values)+len(values))
		merged = append(append(merged, e.values...), values...)
		c.entries[existing] = entry{values: merged, mode: Multi}
		return c
	}
	c.entries[existing] = entry{values: append([]string{}, values...), mode: Scalar}
	return c
}

// Without removes key.
func (p Params) Without(key string) Params {
	existing, _, ok := p.lookup(key)
	if !ok {
		return p
	}
	c := p.clone()
	delete(c.entries, existing)
	for i, k := range c.keys {
		if k == existing {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
	return c
}

// MergeParams overlays o onto base: an overlay key in Multi mode appends its
// values to the base values, one in Scalar mode replaces them. Base keys
// come first, then keys only present in the overlay.
func MergeParams(base, overlay Params) Params {
	out := base.clone()
	out.fold = base.fold || overlay.fold
	for _, k := range overlay.keys {
		e := overlay.entries[k]
		out = out.With(k, e.mode, e.values...)
	}
	return out
}

func stringify(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, gpath.ToString(v))
	}
	return out
}
