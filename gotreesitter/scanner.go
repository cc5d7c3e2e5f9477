package gotreesitter

import "unicode/utf8"

// Scanner is a byte cursor for hand-written token sources. It tracks the
// current point and the furthest byte it was asked to look at, which
// becomes Token.LookaheadEnd.
type Scanner struct {
	source   []byte
	pos      int
	point    Point
	examined int

	startPos   int
	startPoint Point
}

// NewScanner returns a scanner positioned at the start of source.
func NewScanner(source []byte) *Scanner {
	return &Scanner{source: source}
}

// Source returns the scanned bytes.
func (s *Scanner) Source() []byte { return s.source }

// Pos returns the current byte offset.
func (s *Scanner) Pos() int { return s.pos }

// Point returns the current row/column.
func (s *Scanner) Point() Point { return s.point }

// EOF reports whether the cursor is at the end of input.
func (s *Scanner) EOF() bool { return s.pos >= len(s.source) }

// Seek moves the cursor to a known offset and point.
func (s *Scanner) Seek(pos int, pt Point) {
	if pos > len(s.source) {
		pos = len(s.source)
	}
	s.pos = pos
	s.point = pt
	s.examined = pos
}

// Peek returns the byte k positions ahead, or 0 past the end. Looking
// at a byte extends the examined extent.
func (s *Scanner) Peek(k int) byte {
	i := s.pos + k
	if i+1 > s.examined {
		s.examined = min(i+1, len(s.source)+1)
	}
	if i >= len(s.source) {
		return 0
	}
	return s.source[i]
}

// Lookahead returns the rune at the cursor, or 0 at EOF.
func (s *Scanner) Lookahead() rune {
	if s.pos >= len(s.source) {
		if s.pos+1 > s.examined {
			s.examined = s.pos + 1
		}
		return 0
	}
	r, size := utf8.DecodeRune(s.source[s.pos:])
	if s.pos+size > s.examined {
		s.examined = s.pos + size
	}
	return r
}

// Advance consumes one byte.
func (s *Scanner) Advance() {
	if s.pos >= len(s.source) {
		return
	}
	b := s.source[s.pos]
	s.pos++
	if b == '\n' {
		s.point.Row++
		s.point.Column = 0
	} else {
		s.point.Column++
	}
	if s.pos > s.examined {
		s.examined = s.pos
	}
}

// AdvanceN consumes n bytes.
func (s *Scanner) AdvanceN(n int) {
	for i := 0; i < n; i++ {
		s.Advance()
	}
}

// AdvanceRune consumes one UTF-8 sequence.
func (s *Scanner) AdvanceRune() {
	if s.pos >= len(s.source) {
		return
	}
	_, size := utf8.DecodeRune(s.source[s.pos:])
	s.AdvanceN(size)
}

// HasPrefix reports whether the input at the cursor starts with p.
func (s *Scanner) HasPrefix(p string) bool {
	for i := 0; i < len(p); i++ {
		if s.Peek(i) != p[i] {
			return false
		}
	}
	return true
}

// Examined returns one past the furthest byte looked at since the last
// ResetExamined.
func (s *Scanner) Examined() int { return s.examined }

// Extend records that bytes up to end were examined.
func (s *Scanner) Extend(end int) {
	if end > s.examined {
		s.examined = end
	}
}

// ResetExamined restarts examined tracking at the cursor.
func (s *Scanner) ResetExamined() { s.examined = s.pos }

// MarkStart records the cursor as the start of the next token.
func (s *Scanner) MarkStart() {
	s.startPos = s.pos
	s.startPoint = s.point
}

// Token builds a token spanning from the marked start to the cursor.
func (s *Scanner) Token(sym Symbol, triviaStart int) Token {
	return Token{
		Symbol:       sym,
		Text:         bytesToStringNoCopy(s.source[s.startPos:s.pos]),
		StartByte:    uint32(s.startPos),
		EndByte:      uint32(s.pos),
		StartPoint:   s.startPoint,
		EndPoint:     s.point,
		TriviaStart:  uint32(triviaStart),
		LookaheadEnd: uint32(max(s.examined, s.pos)),
	}
}
