package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 8, 29, 12, 30, 15, 123456789, time.UTC)

	token := EncodeCursor("ord-42", ts)
	require.NotEmpty(t, token)
	// Tokens go into query strings untouched.
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "ord-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_FirstPage(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_Garbage(t *testing.T) {
	for _, token := range []string{"!!!", "abc", "bm8gc2VwYXJhdG9y"} {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, token)
	}
}
