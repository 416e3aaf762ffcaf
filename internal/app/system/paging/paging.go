// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// MaxPageSize caps the limit a client may ask for.
const MaxPageSize = 500

// Response headers carrying the cursors for the neighbouring pages.
const (
	HeaderNext = "X-Next-Cursor"
	HeaderPrev = "X-Prev-Cursor"
)

// ParseLimit reads the "limit" query parameter. A missing value gives
// PageSize; larger values are capped at MaxPageSize.
func ParseLimit(r *http.Request) (int, error) {
	s := query.Get(r, "limit")
	if s == "" {
		return PageSize, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperr.Invalid("limit must be a positive number")
	}
	return min(n, MaxPageSize), nil
}

// Result holds the output of TrimPage for keyset pagination.
type Result struct {
	HasPrev bool
	HasNext bool
}

// TrimPage trims a slice fetched with limit+1 rows.
//
// When going backwards (before != ""):
//   - If len > limit, trim the first element (older page exists)
//   - HasNext is always true (we came from somewhere)
//
// When going forwards or on first page:
//   - If len > limit, trim to limit (next page exists)
//   - HasPrev is true only if after != ""
func TrimPage[T any](rows *[]T, before, after string, limit int) Result {
	orig := len(*rows)
	var hasPrev, hasNext bool

	if before != "" {
		if orig > limit {
			*rows = (*rows)[1:]
			hasPrev = true
		}
		hasNext = true
	} else {
		if orig > limit {
			*rows = (*rows)[:limit]
			hasNext = true
		}
		hasPrev = after != ""
	}

	return Result{HasPrev: hasPrev, HasNext: hasNext}
}

// Direction indicates the pagination direction.
type Direction int

const (
	Forward  Direction = iota // Default: sort ascending, use "gt" for cursor
	Backward                  // Sort descending, use "lt" for cursor
)

// KeysetConfig holds the result of configuring keyset pagination.
type KeysetConfig struct {
	Direction Direction
	SortOrder int // 1 for ascending, -1 for descending
	Cursor    *wafflemongo.Cursor
}

// ConfigureKeyset determines pagination direction and decodes the cursor.
// A cursor that does not decode is an invalid request.
func ConfigureKeyset(before, after string) (KeysetConfig, error) {
	cfg := KeysetConfig{
		Direction: Forward,
		SortOrder: 1,
	}

	raw := after
	if before != "" {
		cfg.Direction = Backward
		cfg.SortOrder = -1
		raw = before
	}
	if raw == "" {
		return cfg, nil
	}
	c, ok := wafflemongo.DecodeCursor(raw)
	if !ok {
		return KeysetConfig{}, apperr.Invalid("invalid page cursor")
	}
	cfg.Cursor = &c
	return cfg, nil
}

// ApplyToFind configures FindOptions with sort and a limit+1 look-ahead.
func (cfg KeysetConfig) ApplyToFind(find *options.FindOptions, sortField string, limit int) {
	find.SetSort(bson.D{
		{Key: sortField, Value: cfg.SortOrder},
		{Key: "_id", Value: cfg.SortOrder},
	}).SetLimit(int64(limit) + 1)
}

// KeysetWindow returns the cursor condition for the query filter.
// Returns nil if no cursor is set.
func (cfg KeysetConfig) KeysetWindow(sortField string) bson.M {
	if cfg.Cursor == nil {
		return nil
	}
	dir := "gt"
	if cfg.Direction == Backward {
		dir = "lt"
	}
	return wafflemongo.KeysetWindow(sortField, dir, cfg.Cursor.CI, cfg.Cursor.ID)
}

// Reverse reverses a slice in place. Use this after fetching results
// when paging backwards to restore the correct display order.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// BuildCursors creates prev/next cursor strings from the first and last elements.
func BuildCursors[T any](rows []T, keyFn func(T) string, idFn func(T) primitive.ObjectID) (prev, next string) {
	if len(rows) == 0 {
		return "", ""
	}
	first := rows[0]
	last := rows[len(rows)-1]
	prev = wafflemongo.EncodeCursor(keyFn(first), idFn(first))
	next = wafflemongo.EncodeCursor(keyFn(last), idFn(last))
	return prev, next
}

// SetCursorHeaders advertises the neighbouring pages that exist.
func SetCursorHeaders(w http.ResponseWriter, page Result, prev, next string) {
	if page.HasPrev && prev != "" {
		w.Header().Set(HeaderPrev, prev)
	}
	if page.HasNext && next != "" {
		w.Header().Set(HeaderNext, next)
	}
}
