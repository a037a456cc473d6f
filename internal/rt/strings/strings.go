// Package strings implements the immutable UTF-8 string representation
// from spec §3: four (plus rope) storage variants behind one handle type,
// lazily flattened, with a process-wide-per-engine intern table.
//
// Grounded on paserati's pkg/values.StringObject for the Value-integration
// shape (a single object carrying one backing representation); the five
// variants, on-demand flattening and code-point accounting are new
// (paserati stores a plain Go string and has no rope/slice/intern
// machinery at the value layer). Code-point length is counted with
// unicode/utf8; golang.org/x/text/width, kept from the teacher's go.mod,
// backs only DisplayWidth.
package strings

import (
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// variantKind discriminates the five storage strategies from spec §3.
type variantKind uint8

const (
	variantSmall variantKind = iota
	variantNormal
	variantStatic
	variantSliced
	variantConcatenated
)

// smallInlineCap is the inline-capacity threshold for the "small"
// variant (spec §3: "≤14 bytes inline").
const smallInlineCap = 14

// String is an immutable, reference-counted-by-the-GC (out of scope;
// owned by Go's GC here) UTF-8 string value.
type String struct {
	kind variantKind

	// variantSmall / variantNormal / variantStatic store their payload
	// directly in `data`.
	data string

	// variantSliced: view into `base` from [start, start+length) bytes.
	base  *String
	start int

	// variantConcatenated: binary tree of two strings, flattened into
	// `data` on demand by Flatten.
	left, right *String

	byteLen int
	// cpLen caches the code-point length once computed; -1 means unknown.
	cpLen int
}

// New constructs a "normal" (heap-backed) string.
func New(s string) *String {
	k := variantNormal
	if len(s) <= smallInlineCap {
		k = variantSmall
	}
	return &String{kind: k, data: s, byteLen: len(s), cpLen: -1}
}

// Static wraps a string literal borrowed from program memory (spec §3:
// "borrowed from program memory") — in Go there is no separate static
// segment to borrow from, so this variant exists to preserve the spec's
// storage-strategy distinction (Static strings are never subject to
// flatten/rewrite, they already are their own canonical bytes).
func Static(s string) *String {
	return &String{kind: variantStatic, data: s, byteLen: len(s), cpLen: -1}
}

// Slice returns a view of s covering the byte range [start, start+length),
// without copying (spec §3: "offset+length view into a source string").
func Slice(s *String, start, length int) *String {
	if start < 0 || length < 0 || start+length > s.Len() {
		panic("strings: slice out of range")
	}
	// The base is not flattened; slicing a slice re-points at that
	// slice's own base, so a slice-of-a-slice still only ever points one
	// level deep, the way a rope implementation keeps base pointers
	// shallow to bound traversal depth.
	base := s
	if s.kind == variantSliced {
		base = s.base
		start += s.start
	}
	return &String{kind: variantSliced, base: base, start: start, byteLen: length, cpLen: -1}
}

// Concat builds a rope node out of two strings without copying bytes
// (spec §3: "binary tree of two strings").
func Concat(a, b *String) *String {
	if a.Len() == 0 {
		return b
	}
	if b.Len() == 0 {
		return a
	}
	return &String{kind: variantConcatenated, left: a, right: b, byteLen: a.Len() + b.Len(), cpLen: -1}
}

// Len returns the length in bytes.
func (s *String) Len() int { return s.byteLen }

// Bytes materializes the string's UTF-8 bytes. For small/normal/static
// this is O(1); for sliced/concatenated it walks the structure.
func (s *String) Bytes() string {
	switch s.kind {
	case variantSmall, variantNormal, variantStatic:
		return s.data
	case variantSliced:
		base := s.base.Bytes()
		return base[s.start : s.start+s.byteLen]
	case variantConcatenated:
		var b strings.Builder
		b.Grow(s.byteLen)
		s.writeTo(&b)
		return b.String()
	default:
		panic("strings: unknown variant")
	}
}

func (s *String) writeTo(b *strings.Builder) {
	switch s.kind {
	case variantSmall, variantNormal, variantStatic:
		b.WriteString(s.data)
	case variantSliced:
		b.WriteString(s.base.Bytes()[s.start : s.start+s.byteLen])
	case variantConcatenated:
		s.left.writeTo(b)
		s.right.writeTo(b)
	}
}

// Flatten rewrites s into a "normal" variant in place, the way spec §3
// allows ("may be flattened ... on demand"). Small/normal/static strings
// are already flat and Flatten is a no-op for them.
func (s *String) Flatten() {
	switch s.kind {
	case variantSliced, variantConcatenated:
		flat := s.Bytes()
		s.kind = variantNormal
		if len(flat) <= smallInlineCap {
			s.kind = variantSmall
		}
		s.data = flat
		s.base, s.left, s.right = nil, nil, nil
		s.start = 0
	}
}

// CodePointLen returns the length in Unicode code points, computed once
// and cached (spec §3: "Length is stored in bytes and in code points").
func (s *String) CodePointLen() int {
	if s.cpLen >= 0 {
		return s.cpLen
	}
	n := utf8.RuneCountInString(s.Bytes())
	s.cpLen = n
	return n
}

// DisplayWidth returns the East-Asian-width-aware terminal column width,
// used by the (external) REPL/console collaborator; exercises
// golang.org/x/text/width the way the teacher's go.mod pulled in
// golang.org/x/text for a different purpose (regex ECMAScript options).
func (s *String) DisplayWidth() int {
	w := 0
	for _, r := range s.Bytes() {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += 2
		default:
			w++
		}
	}
	return w
}

// Equal compares two strings by content.
func Equal(a, b *String) bool {
	if a == b {
		return true
	}
	if a.Len() != b.Len() {
		return false
	}
	return a.Bytes() == b.Bytes()
}

// InternTable maps byte-content to a unique *String instance, guarded by
// a mutex so multiple engine contexts sharing one engine can intern
// concurrently (spec §5 "parallel regions").
type InternTable struct {
	mu    sync.Mutex
	table map[string]*String
}

// NewInternTable constructs an empty, engine-scoped intern table (spec §9
// Design Notes: "specify them as engine-scoped ... do not use a hidden
// process singleton").
func NewInternTable() *InternTable {
	return &InternTable{table: make(map[string]*String)}
}

// Intern returns the canonical *String for the given content, creating
// and storing one on first sight.
func (t *InternTable) Intern(content string) *String {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.table[content]; ok {
		return existing
	}
	s := New(content)
	t.table[content] = s
	return s
}

// Len reports how many distinct strings are currently interned.
func (t *InternTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.table)
}
