package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	testCases := []struct {
		input   string
		numeric bool
	}{
		{"1", true},
		{"1700000000000", true},
		{"-3", true},
		{"007", false},
		{"abc", false},
		{"1.5", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			id := ParseID(tc.input)
			assert.Equal(t, tc.numeric, id.IsNumeric())
			assert.Equal(t, tc.input, id.String())
		})
	}
}

func TestID_JSON(t *testing.T) {
	t.Run("number stays a number", func(t *testing.T) {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(`42`), &id))
		assert.Equal(t, NumericID(42), id)

		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `42`, string(out))
	})

	t.Run("numeric-looking string stays a string", func(t *testing.T) {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(`"42"`), &id))
		assert.Equal(t, StringID("42"), id)
		assert.NotEqual(t, NumericID(42), id)

		out, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"42"`, string(out))
	})

	t.Run("rejects other types", func(t *testing.T) {
		var id ID
		assert.Error(t, json.Unmarshal([]byte(`true`), &id))
		assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
		assert.Error(t, json.Unmarshal([]byte(`null`), &id))
	})
}

func TestParseReadingState(t *testing.T) {
	assert.True(t, ParseReadingState("").IsUnread())
	assert.True(t, ParseReadingState("Leyendo").IsReading())
	assert.True(t, ParseReadingState("Leído").IsFinished())

	custom := ParseReadingState("Abandonado")
	assert.True(t, custom.IsCustom())
	assert.Equal(t, "Abandonado", custom.Status())
	assert.Equal(t, Custom("Abandonado"), custom)
	assert.Equal(t, Reading, Custom("Leyendo"))

	assert.Equal(t, "unread", Unread.String())
	assert.Equal(t, "", Unread.Status())
}

func TestPatch_Apply(t *testing.T) {
	original := Book{
		ID:     NumericID(1),
		Title:  "A",
		Author: "Someone",
		Fields: map[string]json.RawMessage{
			"year":  json.RawMessage(`1999`),
			"cover": json.RawMessage(`"a.png"`),
		},
	}

	title := "B"
	patched := Patch{
		Title: &title,
		Fields: map[string]json.RawMessage{
			"year":  json.RawMessage(`2001`),
			"cover": json.RawMessage(`null`),
			"genre": json.RawMessage(`"sci-fi"`),
		},
	}.Apply(original)

	assert.Equal(t, "B", patched.Title)
	assert.Equal(t, "Someone", patched.Author)
	assert.Equal(t, NumericID(1), patched.ID)
	assert.Equal(t, json.RawMessage(`2001`), patched.Fields["year"])
	assert.Equal(t, json.RawMessage(`"sci-fi"`), patched.Fields["genre"])
	assert.NotContains(t, patched.Fields, "cover")

	// original untouched
	assert.Equal(t, "A", original.Title)
	assert.Equal(t, json.RawMessage(`1999`), original.Fields["year"])
	assert.Contains(t, original.Fields, "cover")
}

func TestPatch_IsEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	fav := true
	assert.False(t, Patch{Favorite: &fav}.IsEmpty())
}
