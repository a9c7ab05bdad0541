package services

import (
	"strconv"

	types "github.com/plateful/plateful-backend/internal/domain"
)

// parseCursor decodes an offset cursor. Anything that is not a
// positive decimal integer (empty, "0", garbage, negative) means the
// first request.
func parseCursor(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// paginate slices one page out of an immutable pool. Beyond-the-end
// offsets yield an empty page and a nil cursor; a nil cursor always
// means exhausted.
func paginate(pool []types.PoolEntry, offset, pageSize int) ([]types.PoolEntry, *string) {
	if offset >= len(pool) {
		return []types.PoolEntry{}, nil
	}
	end := offset + pageSize
	if end > len(pool) {
		end = len(pool)
	}
	page := pool[offset:end]
	if end >= len(pool) {
		return page, nil
	}
	next := strconv.Itoa(end)
	return page, &next
}
