// Package dx decodes DX cluster spot lines and decides which lines are
// worth relaying.
package dx

import (
	"errors"
	"strconv"
	"strings"
)

// ErrParse is returned for any line that does not match the spot grammar.
var ErrParse = errors.New("dx: malformed spot line")

const (
	spotPrefix    = "DX de"
	maxInfoLen    = 26
	minFreqLen    = 3
	timestampLen  = 4
	identifierLen = 4 // x + 2 digit activity + 1 letter source
)

// Identifier is the optional CQGMA activity/source tag of a spot.
type Identifier struct {
	Activity Activity `json:"activity"`
	Source   Source   `json:"source"`
}

// Entry is one decoded spot.
//
//	DX de OH8HUB:    14310.0  AD6VT        x04s W6/ND-101                 1959Z
type Entry struct {
	Reporter   string      `json:"reporter"`
	Frequency  float64     `json:"frequency"` // kHz
	DX         string      `json:"dx"`
	Identifier *Identifier `json:"cqgma_identifier,omitempty"`
	Info       string      `json:"info"`
	Timestamp  string      `json:"timestamp"` // HHMM, UTC
}

// Parse decodes a spot line. Any mismatch yields ErrParse; content after the
// timestamp (usually a grid locator) is ignored.
func Parse(line string) (Entry, error) {
	s := scanner{in: line}

	if !strings.HasPrefix(s.in, spotPrefix) {
		return Entry{}, ErrParse
	}
	s.pos = len(spotPrefix)
	if s.blanks() == 0 {
		return Entry{}, ErrParse
	}

	var e Entry
	var ok bool
	if e.Reporter, ok = s.callsign(); !ok {
		return Entry{}, ErrParse
	}
	s.blanks()
	if s.peek() == ':' {
		s.pos++
	}
	s.blanks()

	if e.Frequency, ok = s.frequency(); !ok {
		return Entry{}, ErrParse
	}
	s.blanks()

	if e.DX, ok = s.callsign(); !ok {
		return Entry{}, ErrParse
	}
	s.blanks()

	id, present, ok := s.identifier()
	if !ok {
		return Entry{}, ErrParse
	}
	if present {
		e.Identifier = &id
		s.blanks()
	}

	e.Info = s.info()
	s.blanks()

	if e.Timestamp, ok = s.timestamp(); !ok {
		return Entry{}, ErrParse
	}
	return e, nil
}

type scanner struct {
	in  string
	pos int
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.in) {
		return 0
	}
	return s.in[s.pos]
}

func (s *scanner) blanks() int {
	start := s.pos
	for s.pos < len(s.in) && (s.in[s.pos] == ' ' || s.in[s.pos] == '\t') {
		s.pos++
	}
	return s.pos - start
}

func (s *scanner) callsign() (string, bool) {
	start := s.pos
	for s.pos < len(s.in) {
		c := s.in[s.pos]
		if c <= ' ' || c > '~' || c == ':' {
			break
		}
		s.pos++
	}
	return s.in[start:s.pos], s.pos > start
}

func (s *scanner) frequency() (float64, bool) {
	start := s.pos
	for s.pos < len(s.in) && (isDigit(s.in[s.pos]) || s.in[s.pos] == '.') {
		s.pos++
	}
	if s.pos-start < minFreqLen {
		return 0, false
	}
	f, err := strconv.ParseFloat(s.in[start:s.pos], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// identifier reports whether an x<NN><l> tag is present and, if it is,
// whether both codes are known. An unknown code fails the whole line.
func (s *scanner) identifier() (id Identifier, present, ok bool) {
	rest := s.in[s.pos:]
	if len(rest) < identifierLen || rest[0] != 'x' || !isDigit(rest[1]) || !isDigit(rest[2]) || !isLetter(rest[3]) {
		return Identifier{}, false, true
	}
	activity, okA := ParseActivity(rest[1:3])
	source, okS := ParseSource(rest[3])
	if !okA || !okS {
		return Identifier{}, true, false
	}
	s.pos += identifierLen
	return Identifier{Activity: activity, Source: source}, true, true
}

// info takes up to maxInfoLen printable characters without backtracking.
func (s *scanner) info() string {
	start := s.pos
	for s.pos < len(s.in) && s.pos-start < maxInfoLen && isPrintable(s.in[s.pos]) {
		s.pos++
	}
	return strings.TrimSpace(s.in[start:s.pos])
}

func (s *scanner) timestamp() (string, bool) {
	rest := s.in[s.pos:]
	if len(rest) < timestampLen+1 {
		return "", false
	}
	for i := 0; i < timestampLen; i++ {
		if !isDigit(rest[i]) {
			return "", false
		}
	}
	if rest[timestampLen] != 'Z' {
		return "", false
	}
	s.pos += timestampLen + 1
	return rest[:timestampLen], true
}

func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isLetter(c byte) bool    { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isPrintable(c byte) bool { return c >= ' ' && c <= '~' }
