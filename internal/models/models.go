package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies a book. Legacy collections used both JSON numbers and
// strings as ids, so an ID remembers which one it was.
type ID struct {
	value   string
	numeric bool
}

// StringID returns an ID persisted as a JSON string.
func StringID(s string) ID {
	return ID{value: s}
}

// NumericID returns an ID persisted as a JSON number.
func NumericID(n int64) ID {
	return ID{value: strconv.FormatInt(n, 10), numeric: true}
}

// ParseID turns user input (URL segment, CLI argument) into an ID.
// Canonical integers become numeric ids, everything else a string id.
func ParseID(s string) ID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return NumericID(n)
	}
	return StringID(s)
}

// String returns the id text without quoting.
func (id ID) String() string { return id.value }

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool { return id.value == "" && !id.numeric }

// IsNumeric reports whether the id is persisted as a JSON number.
func (id ID) IsNumeric() bool { return id.numeric }

// MarshalJSON writes the id back in the form it was read.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		id.value, id.numeric = s, false
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or a string: %w", err)
	}
	if n == "" {
		return fmt.Errorf("id must be a number or a string")
	}
	id.value, id.numeric = n.String(), true
	return nil
}

// ReadingState is where a book stands: unread, reading, finished or a
// free-text status set by the user.
type ReadingState struct {
	kind   stateKind
	custom string
}

type stateKind uint8

const (
	kindUnread stateKind = iota
	kindReading
	kindFinished
	kindCustom
)

// Persisted status labels.
const (
	StatusReading  = "Leyendo"
	StatusFinished = "Leído"
)

var (
	Unread   = ReadingState{kind: kindUnread}
	Reading  = ReadingState{kind: kindReading}
	Finished = ReadingState{kind: kindFinished}
)

// Custom returns a free-text state. Well-known labels map to their
// dedicated states.
func Custom(status string) ReadingState {
	return ParseReadingState(status)
}

// ParseReadingState maps a persisted status label to a state.
func ParseReadingState(status string) ReadingState {
	switch status {
	case "":
		return Unread
	case StatusReading:
		return Reading
	case StatusFinished:
		return Finished
	default:
		return ReadingState{kind: kindCustom, custom: status}
	}
}

// Status returns the persisted label, empty for Unread.
func (s ReadingState) Status() string {
	switch s.kind {
	case kindReading:
		return StatusReading
	case kindFinished:
		return StatusFinished
	case kindCustom:
		return s.custom
	default:
		return ""
	}
}

func (s ReadingState) IsUnread() bool   { return s.kind == kindUnread }
func (s ReadingState) IsReading() bool  { return s.kind == kindReading }
func (s ReadingState) IsFinished() bool { return s.kind == kindFinished }
func (s ReadingState) IsCustom() bool   { return s.kind == kindCustom }

// String is the human-readable form used in logs and chat output.
func (s ReadingState) String() string {
	if s.kind == kindUnread {
		return "unread"
	}
	return s.Status()
}

// Book represents a book in the collection
type Book struct {
	ID       ID
	Title    string
	Author   string
	State    ReadingState
	Favorite bool
	Comment  string

	// Fields holds any other descriptive field verbatim (cover, year, ...).
	Fields map[string]json.RawMessage
}

// Clone returns a copy that shares no mutable state with b.
func (b Book) Clone() Book {
	if b.Fields != nil {
		fields := make(map[string]json.RawMessage, len(b.Fields))
		for k, v := range b.Fields {
			fields[k] = append(json.RawMessage(nil), v...)
		}
		b.Fields = fields
	}
	return b
}

// Patch is a partial update. Nil pointers leave the field untouched.
// A Fields entry holding JSON null removes that field; reserved keys are
// ignored.
type Patch struct {
	Title    *string
	Author   *string
	State    *ReadingState
	Favorite *bool
	Comment  *string
	Fields   map[string]json.RawMessage
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.State == nil &&
		p.Favorite == nil && p.Comment == nil && len(p.Fields) == 0
}

// Apply returns b with the patch merged over it. b itself is not modified.
func (p Patch) Apply(b Book) Book {
	out := b.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.State != nil {
		out.State = *p.State
	}
	if p.Favorite != nil {
		out.Favorite = *p.Favorite
	}
	if p.Comment != nil {
		out.Comment = *p.Comment
	}
	for k, v := range p.Fields {
		if IsReservedField(k) {
			continue
		}
		if isJSONNull(v) {
			delete(out.Fields, k)
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string]json.RawMessage, len(p.Fields))
		}
		out.Fields[k] = append(json.RawMessage(nil), v...)
	}
	if len(out.Fields) == 0 {
		out.Fields = nil
	}
	return out
}

// IsReservedField reports whether key is one of the record keys owned by
// Book itself, which therefore cannot live in Fields.
func IsReservedField(key string) bool {
	switch key {
	case "id", "title", "author", "status", "comment", "isReading", "isFavorite":
		return true
	}
	return false
}

func isJSONNull(v json.RawMessage) bool {
	return len(v) == 0 || string(v) == "null"
}

// Stats summarizes the collection for the stats page
type Stats struct {
	Total     int `json:"total"`
	Unread    int `json:"unread"`
	Reading   int `json:"reading"`
	Finished  int `json:"finished"`
	Custom    int `json:"custom"`
	Favorites int `json:"favorites"`
}
