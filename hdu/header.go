// Package hdu implements the record container the engine persists models
// into: a flat list of named, versioned records, each a header of keyword
// cards plus an optional array payload. The on-disk form is deterministic,
// so an unchanged read-write cycle is byte identical.
package hdu

import (
	"regexp"
	"strings"
)

// Missing is the sentinel a header stores when a keyword is present but
// carries no value.
const Missing = "N/A"

// Commentary keywords accumulate: setting one always appends a new card
// instead of overwriting.
const (
	KeyHistory = "HISTORY"
	KeyComment = "COMMENT"
)

// Card is one header entry.
type Card struct {
	Name    string
	Value   any
	Comment string
}

// Header is an ordered list of cards. Non-commentary names appear at most
// once; commentary names repeat.
type Header struct {
	cards []Card
}

// IsMissingValue reports whether a stored value is the absent-value
// sentinel.
func IsMissingValue(v any) bool {
	s, ok := v.(string)
	return ok && s == Missing
}

func isCommentary(name string) bool {
	return name == KeyHistory || name == KeyComment
}

// Get returns the value of the first card with the given name. Sentinel
// values count as absent.
func (h *Header) Get(name string) (any, bool) {
	for _, c := range h.cards {
		if c.Name == name {
			if IsMissingValue(c.Value) {
				return nil, false
			}
			return c.Value, true
		}
	}
	return nil, false
}

// Comment returns the comment of the first card with the given name.
func (h *Header) Comment(name string) string {
	for _, c := range h.cards {
		if c.Name == name {
			return c.Comment
		}
	}
	return ""
}

// Has reports whether a card with the given name exists, sentinel or not.
func (h *Header) Has(name string) bool {
	for _, c := range h.cards {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Set stores a value. An existing card keeps its position, and its comment
// when the new comment is empty. Commentary keywords always append.
func (h *Header) Set(name string, value any, comment string) {
	if isCommentary(name) {
		h.Append(name, value, comment)
		return
	}
	for i := range h.cards {
		if h.cards[i].Name == name {
			h.cards[i].Value = value
			if comment != "" {
				h.cards[i].Comment = comment
			}
			return
		}
	}
	h.Append(name, value, comment)
}

// Append adds a card at the end unconditionally.
func (h *Header) Append(name string, value any, comment string) {
	h.cards = append(h.cards, Card{Name: name, Value: value, Comment: comment})
}

// Delete removes every card with the given name.
func (h *Header) Delete(name string) {
	kept := h.cards[:0]
	for _, c := range h.cards {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	h.cards = kept
}

// Cards returns the cards in order. The slice is shared; callers must not
// mutate it.
func (h *Header) Cards() []Card { return h.cards }

// Commentary returns the accumulated values of a commentary keyword in
// order.
func (h *Header) Commentary(name string) []string {
	var out []string
	for _, c := range h.cards {
		if c.Name == name {
			if s, ok := c.Value.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// AddHistory appends one history line.
func (h *Header) AddHistory(line string) {
	h.Append(KeyHistory, line, "")
}

// History returns all history lines in order.
func (h *Header) History() []string { return h.Commentary(KeyHistory) }

// Copy returns an independent header with the same cards.
func (h *Header) Copy() *Header {
	out := &Header{cards: make([]Card, len(h.cards))}
	copy(out.cards, h.cards)
	return out
}

// builtinKeyword matches the structural keywords the container maintains
// itself. Cards with these names never belong to the model's metadata.
var builtinKeyword = regexp.MustCompile(`^(XTENSION|BITPIX|NAXIS[0-9]*|PCOUNT|GCOUNT|EXTEND|BSCALE|BZERO|BLANK|DATAMAX|DATAMIN|EXTNAME|EXTVER|EXTLEVEL|GROUPS|SIMPLE|TFIELDS|THEAP|(TBCOL|TFORM|TTYPE|TUNIT|TSCAL|TZERO|TNULL|TDISP|TDIM)[0-9]+)$`)

// IsBuiltinKeyword reports whether a keyword is structural. The empty name
// counts as structural.
func IsBuiltinKeyword(name string) bool {
	name = strings.ToUpper(strings.TrimSpace(name))
	return name == "" || builtinKeyword.MatchString(name)
}
