package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

// Keyset is the (created_at, id) position of the last row of a page.
type Keyset struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type keysetToken struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// EncodeKeyset renders k as an opaque, URL-safe page token.
func EncodeKeyset(k Keyset) string {
	raw, err := json.Marshal(keysetToken{
		ID:        k.ID.String(),
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeKeyset(token string) (Keyset, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Keyset{}, ErrInvalidPageToken
	}
	var decoded keysetToken
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Keyset{}, ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
	if err != nil {
		return Keyset{}, ErrInvalidPageToken
	}
	id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
	if err != nil || id <= 0 {
		return Keyset{}, ErrInvalidPageToken
	}
	return Keyset{ID: id, CreatedAt: createdAt}, nil
}

// NormalizePageSize clamps a requested page size to [1, max], using def when unset.
func NormalizePageSize(size, def, max int) int {
	if size <= 0 {
		return def
	}
	if size > max {
		return max
	}
	return size
}

// Paginate trims rows fetched with limit+1 down to one page. The next token
// is set only when a further row exists.
func Paginate[T any](rows []*T, limit int, key func(*T) Keyset) ([]*T, PageInfo) {
	if limit <= 0 || len(rows) <= limit {
		return rows, PageInfo{}
	}
	page := rows[:limit]
	return page, PageInfo{
		HasMore:       true,
		NextPageToken: EncodeKeyset(key(page[len(page)-1])),
	}
}
