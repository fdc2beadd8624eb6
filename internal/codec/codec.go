package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"mybooks/internal/models"
)

// Layout selects the record shape written by EncodeLayout.
type Layout int

const (
	// LayoutUnified writes every known key, readable by both legacy apps.
	LayoutUnified Layout = iota
	// LayoutFlags writes isReading/isFavorite and no status.
	LayoutFlags
	// LayoutStatus writes status/comment and no flags.
	LayoutStatus
)

// ParseLayout maps a layout name ("unified", "flags", "status").
func ParseLayout(name string) (Layout, error) {
	switch name {
	case "", "unified":
		return LayoutUnified, nil
	case "flags":
		return LayoutFlags, nil
	case "status":
		return LayoutStatus, nil
	default:
		return 0, fmt.Errorf("unknown layout %q (expected unified, flags or status)", name)
	}
}

// ParseError reports a persisted value that is not a JSON array of book
// records. Index is the offending record, or -1 for the document itself.
type ParseError struct {
	Index int
	Err   error
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode books: %v", e.Err)
	}
	return fmt.Sprintf("decode books: record %d: %v", e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Encode serializes the collection in the unified layout.
func Encode(books []models.Book) (string, error) {
	return EncodeLayout(books, LayoutUnified)
}

// EncodeLayout serializes the collection in sequence order using layout.
// The legacy layouts are lossy: flags drops custom statuses, status drops
// the favorite flag.
//
// Output is normalized rather than byte-preserving. Keys come in a fixed
// order (id, title, author, extra keys sorted by name, then the state
// keys), and an empty title, author or comment is omitted, so a value
// written by a legacy app may change shape on its first rewrite.
func EncodeLayout(books []models.Book, layout Layout) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, book := range books {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeBook(&buf, book, layout); err != nil {
			return "", fmt.Errorf("encode book %s: %w", book.ID, err)
		}
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func writeBook(buf *bytes.Buffer, book models.Book, layout Layout) error {
	w := objectWriter{buf: buf}
	buf.WriteByte('{')

	if err := w.field("id", book.ID); err != nil {
		return err
	}
	if book.Title != "" {
		if err := w.field("title", book.Title); err != nil {
			return err
		}
	}
	if book.Author != "" {
		if err := w.field("author", book.Author); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(book.Fields))
	for k := range book.Fields {
		if !models.IsReservedField(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := book.Fields[k]
		if !json.Valid(raw) {
			return fmt.Errorf("field %q holds invalid JSON", k)
		}
		if err := w.raw(k, raw); err != nil {
			return err
		}
	}

	if layout != LayoutFlags && !book.State.IsUnread() {
		if err := w.field("status", book.State.Status()); err != nil {
			return err
		}
	}
	if book.Comment != "" {
		if err := w.field("comment", book.Comment); err != nil {
			return err
		}
	}
	if layout != LayoutStatus {
		if err := w.field("isReading", book.State.IsReading()); err != nil {
			return err
		}
		if err := w.field("isFavorite", book.Favorite); err != nil {
			return err
		}
	}

	buf.WriteByte('}')
	return nil
}

type objectWriter struct {
	buf   *bytes.Buffer
	count int
}

func (w *objectWriter) field(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return w.raw(key, data)
}

func (w *objectWriter) raw(key string, value []byte) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
	w.count++
	return nil
}

// Decode parses a persisted collection. An absent value (ok == false) and
// a JSON null both decode to an empty collection.
func Decode(raw string, ok bool) ([]models.Book, error) {
	books, _, err := DecodeReport(raw, ok)
	return books, err
}

// FieldIssue records a reserved key whose value had an unexpected JSON
// type. The record is still decoded; the value was coerced.
type FieldIssue struct {
	Index int
	Key   string
	Value json.RawMessage
}

func (i FieldIssue) Error() string {
	return fmt.Sprintf("record %d: %s has unexpected value %s", i.Index, i.Key, i.Value)
}

// DecodeReport is Decode that also returns the coerced fields. Only a
// missing or malformed id fails a record; a wrong-typed title, author,
// comment or status is kept as its JSON text (objects and arrays become
// empty) and a non-bool flag is read by truthiness.
func DecodeReport(raw string, ok bool) ([]models.Book, []FieldIssue, error) {
	if !ok {
		return []models.Book{}, nil, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, nil, &ParseError{Index: -1, Err: err}
	}

	var issues []FieldIssue
	books := make([]models.Book, 0, len(records))
	for i, record := range records {
		book, coerced, err := decodeBook(record)
		if err != nil {
			return nil, nil, &ParseError{Index: i, Err: err}
		}
		for _, issue := range coerced {
			issue.Index = i
			issues = append(issues, issue)
		}
		books = append(books, book)
	}
	return books, issues, nil
}

// EncodeBook serializes one record in the unified layout.
func EncodeBook(book models.Book) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeBook(&buf, book, LayoutUnified); err != nil {
		return nil, fmt.Errorf("encode book %s: %w", book.ID, err)
	}
	return buf.Bytes(), nil
}

// DecodeBook parses one record in any of the accepted layouts, with the
// same coercions as DecodeReport.
func DecodeBook(raw []byte) (models.Book, error) {
	book, _, err := decodeBook(raw)
	return book, err
}

// ErrMissingID is returned for a record without a usable id.
var ErrMissingID = errors.New("missing id")

func decodeBook(record json.RawMessage) (models.Book, []FieldIssue, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return models.Book{}, nil, err
	}
	if fields == nil {
		return models.Book{}, nil, errors.New("record is null")
	}

	var book models.Book
	rawID, ok := fields["id"]
	if !ok || string(rawID) == "null" {
		return models.Book{}, nil, ErrMissingID
	}
	if err := json.Unmarshal(rawID, &book.ID); err != nil {
		return models.Book{}, nil, fmt.Errorf("invalid id: %w", err)
	}

	var (
		issues     []FieldIssue
		status     string
		isReading  bool
		isFavorite bool
	)
	texts := []struct {
		key  string
		dest *string
	}{
		{"title", &book.Title},
		{"author", &book.Author},
		{"comment", &book.Comment},
		{"status", &status},
	}
	for _, target := range texts {
		value, ok := fields[target.key]
		if !ok {
			continue
		}
		var clean bool
		if *target.dest, clean = textValue(value); !clean {
			issues = append(issues, FieldIssue{Key: target.key, Value: value})
		}
	}
	flags := []struct {
		key  string
		dest *bool
	}{
		{"isReading", &isReading},
		{"isFavorite", &isFavorite},
	}
	for _, target := range flags {
		value, ok := fields[target.key]
		if !ok {
			continue
		}
		var clean bool
		if *target.dest, clean = flagValue(value); !clean {
			issues = append(issues, FieldIssue{Key: target.key, Value: value})
		}
	}

	switch {
	case status != "":
		book.State = models.ParseReadingState(status)
	case isReading:
		book.State = models.Reading
	default:
		book.State = models.Unread
	}
	book.Favorite = isFavorite

	for k, v := range fields {
		if models.IsReservedField(k) {
			continue
		}
		if book.Fields == nil {
			book.Fields = make(map[string]json.RawMessage)
		}
		book.Fields[k] = v
	}
	return book, issues, nil
}

// textValue reads a string. Numbers and booleans yield their JSON text,
// objects and arrays the empty string; both report clean == false.
func textValue(raw json.RawMessage) (value string, clean bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	switch v := v.(type) {
	case nil:
		return "", true
	case string:
		return v, true
	case float64, bool:
		return string(bytes.TrimSpace(raw)), false
	default:
		return "", false
	}
}

// flagValue reads a bool. Other values are taken by truthiness: non-zero
// numbers, non-empty strings, objects and arrays are true.
func flagValue(raw json.RawMessage) (value bool, clean bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	switch v := v.(type) {
	case nil:
		return false, true
	case bool:
		return v, true
	case float64:
		return v != 0, false
	case string:
		return v != "", false
	default:
		return true, false
	}
}
