// Package pagination implements the opaque keyset cursors used by the
// list endpoints. A cursor pins the position after the last row of a
// page in (created_at, id) order; clients treat it as a token and hand
// it back unchanged.
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// separator cannot appear in an RFC 3339 timestamp or a UUID.
const separator = "\x1f"

// Cursor is the decoded page position.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// EncodeCursor renders a page position as a URL-safe token. An empty
// lastID encodes to the empty token, meaning no further pages.
func EncodeCursor(lastID string, ts time.Time) string {
	if lastID == "" {
		return ""
	}
	payload := ts.UTC().Format(time.RFC3339Nano) + separator + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodeCursor parses a token produced by EncodeCursor. The empty token
// is the first page and decodes to nil without error.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	stamp, id, ok := strings.Cut(string(raw), separator)
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: id, Timestamp: ts}, nil
}
