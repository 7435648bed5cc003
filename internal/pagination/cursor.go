package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

// Cursor represents a decoded pagination cursor. Records sort by their epoch
// timestamp, so the cursor carries the last page's oldest timestamp plus the
// record id for diagnostics.
type Cursor struct {
	LastID     string
	AnalyzedAt int64
}

// PageResult represents a paginated result set
type PageResult[T any] struct {
	Items   []T    `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

var (
	ErrInvalidCursor = errors.New("invalid cursor format")
)

// EncodeCursor creates a base64-encoded cursor from the last item id and
// its epoch timestamp
func EncodeCursor(lastID string, analyzedAt int64) string {
	if lastID == "" {
		return ""
	}
	raw := lastID + "|" + strconv.FormatInt(analyzedAt, 10)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a base64-encoded cursor. An empty cursor decodes to
// nil, meaning "first page".
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCursor
	}

	analyzedAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || analyzedAt <= 0 {
		return nil, ErrInvalidCursor
	}

	return &Cursor{
		LastID:     parts[0],
		AnalyzedAt: analyzedAt,
	}, nil
}

// CreateNextCursor creates a cursor for the next page based on the last item.
// Returns empty string when the page was short, meaning no more items.
func CreateNextCursor[T any](items []T, limit int, getID func(T) string, getAnalyzedAt func(T) int64) string {
	if len(items) == 0 || len(items) < limit {
		return ""
	}
	lastItem := items[len(items)-1]
	return EncodeCursor(getID(lastItem), getAnalyzedAt(lastItem))
}
