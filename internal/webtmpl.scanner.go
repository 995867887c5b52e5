package internal

import (
	"strings"
)

// TagKind classifies the content of a {{ }} tag
type TagKind int

// Tag kind constants, in classification priority order
const (
	TagKindValue TagKind = iota
	TagKindLoopValue
	TagKindFor
	TagKindEndFor
	TagKindIf
	TagKindElseIf
	TagKindElse
	TagKindEndIf
	TagKindCursor
	TagKindRows
	TagKindDate
	TagKindTime
	TagKindSpace
	TagKindBlank
	TagKindUnknown
)

// String returns the string representation of the tag kind
func (k TagKind) String() string {
	switch k {
	case TagKindValue:
		return TagKindNameValue
	case TagKindLoopValue:
		return TagKindNameLoopValue
	case TagKindFor:
		return TagKindNameFor
	case TagKindEndFor:
		return TagKindNameEndFor
	case TagKindIf:
		return TagKindNameIf
	case TagKindElseIf:
		return TagKindNameElseIf
	case TagKindElse:
		return TagKindNameElse
	case TagKindEndIf:
		return TagKindNameEndIf
	case TagKindCursor:
		return TagKindNameCursor
	case TagKindRows:
		return TagKindNameRows
	case TagKindDate:
		return TagKindNameDate
	case TagKindTime:
		return TagKindNameTime
	case TagKindSpace:
		return TagKindNameSpace
	case TagKindBlank:
		return TagKindNameBlank
	default:
		return TagKindNameUnknown
	}
}

// IsValue reports whether the tag emits a resolved value in place
func (k TagKind) IsValue() bool {
	switch k {
	case TagKindValue, TagKindLoopValue, TagKindCursor, TagKindRows,
		TagKindDate, TagKindTime, TagKindSpace, TagKindBlank:
		return true
	default:
		return false
	}
}

// Delimiters holds the tag marker pair
type Delimiters struct {
	Open  string // Opening marker (default: "{{")
	Close string // Closing marker (default: "}}")
}

// DefaultDelimiters returns the default {{ }} marker pair
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Open:  StrOpenDelim,
		Close: StrCloseDelim,
	}
}

// Tag is one scanned and classified {{ }} directive
type Tag struct {
	Kind   TagKind
	Expr   string // Trimmed content; keyword stripped for #FOR, #IF and #ELSIF
	Raw    string // Untrimmed content between the markers
	Offset int    // Offset of the opening marker in the source
	Length int    // Bytes spanned, both markers included
}

// End returns the offset just past the closing marker
func (t Tag) End() int {
	return t.Offset + t.Length
}

// Resync returns the number of bytes an unknown tag should consume.
// If the body holds another opening marker, scanning resumes at that marker
// so an accidental doubled "{{" does not swallow the real tag behind it.
func (t Tag) Resync(d Delimiters) int {
	if idx := strings.Index(t.Raw, d.Open); idx >= 0 {
		return len(d.Open) + idx
	}
	return t.Length
}

// FindTag returns the offset of the next opening marker at or after from, or -1
func FindTag(src string, from int, d Delimiters) int {
	if from >= len(src) {
		return -1
	}
	idx := strings.Index(src[from:], d.Open)
	if idx < 0 {
		return -1
	}
	return from + idx
}

// ScanTag reads the tag whose opening marker starts at pos.
// The closing marker is the first one after the opening marker; markers do not nest.
// Returns false when no closing marker exists.
func ScanTag(src string, pos int, d Delimiters) (Tag, bool) {
	begin := pos + len(d.Open)
	if begin > len(src) {
		return Tag{}, false
	}
	idx := strings.Index(src[begin:], d.Close)
	if idx < 0 {
		return Tag{}, false
	}

	raw := src[begin : begin+idx]
	kind, expr := Classify(raw)
	return Tag{
		Kind:   kind,
		Expr:   expr,
		Raw:    raw,
		Offset: pos,
		Length: len(d.Open) + idx + len(d.Close),
	}, true
}

// Classify determines the tag kind of raw tag content and extracts its expression
func Classify(raw string) (TagKind, string) {
	content := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(content, KeyValue):
		return TagKindValue, content
	case strings.HasPrefix(content, KeyLoopValue):
		return TagKindLoopValue, content
	case strings.HasPrefix(content, KeyFor):
		return TagKindFor, strings.TrimSpace(content[len(KeyFor):])
	case content == KeyEndFor:
		return TagKindEndFor, content
	case strings.HasPrefix(content, KeyIf):
		return TagKindIf, strings.TrimSpace(content[len(KeyIf):])
	case strings.HasPrefix(content, KeyElseIf):
		return TagKindElseIf, strings.TrimSpace(content[len(KeyElseIf):])
	case content == KeyElse:
		return TagKindElse, content
	case content == KeyEndIf:
		return TagKindEndIf, content
	case strings.HasPrefix(content, KeyCursor):
		return TagKindCursor, content
	case strings.HasPrefix(content, KeyRows):
		return TagKindRows, content
	case content == KeyDate:
		return TagKindDate, content
	case content == KeyTime:
		return TagKindTime, content
	case content == KeySpace:
		return TagKindSpace, content
	case content == KeyBlank:
		return TagKindBlank, content
	default:
		return TagKindUnknown, content
	}
}
