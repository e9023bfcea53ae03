package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Allowed page sizes for offset pagination. Anything else falls back to
// DefaultLimit rather than erroring.
var allowedLimits = map[int]bool{
	10:  true,
	20:  true,
	50:  true,
	100: true,
}

// DefaultLimit default page size
const DefaultLimit = 20

// NormalizeLimit clamps a requested page size to the allow-list.
func NormalizeLimit(limit int) int {
	if allowedLimits[limit] {
		return limit
	}
	return DefaultLimit
}

// NormalizePage clamps a page number to >= 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// TotalPages computes ceil(total / limit).
func TotalPages(total int64, limit int) int {
	return int((total + int64(limit) - 1) / int64(limit))
}

// Cursor is an opaque pointer to the last-seen row of a descending
// id-ordered listing. Rows inserted above an issued cursor do not shift
// rows already fetched below it.
type Cursor struct {
	LastID uint64
}

// Encode serializes the cursor to an opaque token.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("id:%d", c.LastID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor token. An empty token means
// "first page" and yields a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}

	s := string(raw)
	if !strings.HasPrefix(s, "id:") {
		return nil, fmt.Errorf("malformed cursor")
	}

	id, err := strconv.ParseUint(strings.TrimPrefix(s, "id:"), 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("malformed cursor")
	}

	return &Cursor{LastID: id}, nil
}
