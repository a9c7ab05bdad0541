package services

import (
	"testing"

	types "github.com/plateful/plateful-backend/internal/domain"
)

func poolOf(n int) []types.PoolEntry {
	pool := make([]types.PoolEntry, n)
	for i := range pool {
		pool[i] = types.PoolEntry{RestaurantID: int64(i + 1)}
	}
	return pool
}

func TestParseCursor(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"0", 0},
		{"10", 10},
		{"20", 20},
		{"-5", 0},
		{"abc", 0},
		{"10.5", 0},
		{" 10", 0},
	}
	for _, tc := range cases {
		if got := parseCursor(tc.raw); got != tc.want {
			t.Fatalf("parseCursor(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestPaginateWalksPoolToExhaustion(t *testing.T) {
	pool := poolOf(25)

	page, next := paginate(pool, 0, 10)
	if len(page) != 10 {
		t.Fatalf("first page size = %d, want 10", len(page))
	}
	if page[0].RestaurantID != 1 || page[9].RestaurantID != 10 {
		t.Fatalf("first page = [%d..%d], want [1..10]", page[0].RestaurantID, page[9].RestaurantID)
	}
	if next == nil || *next != "10" {
		t.Fatalf("first next cursor = %v, want \"10\"", next)
	}

	page, next = paginate(pool, 10, 10)
	if len(page) != 10 || page[0].RestaurantID != 11 {
		t.Fatalf("second page starts at %d with %d items, want 11 and 10", page[0].RestaurantID, len(page))
	}
	if next == nil || *next != "20" {
		t.Fatalf("second next cursor = %v, want \"20\"", next)
	}

	page, next = paginate(pool, 20, 10)
	if len(page) != 5 || page[4].RestaurantID != 25 {
		t.Fatalf("last page = %d items ending %d, want 5 ending 25", len(page), page[len(page)-1].RestaurantID)
	}
	if next != nil {
		t.Fatalf("last page next cursor = %q, want nil", *next)
	}
}

func TestPaginateBeyondEnd(t *testing.T) {
	pool := poolOf(25)

	page, next := paginate(pool, 30, 10)
	if len(page) != 0 {
		t.Fatalf("beyond-end page has %d items, want 0", len(page))
	}
	if next != nil {
		t.Fatalf("beyond-end next cursor = %q, want nil", *next)
	}

	// offset == len(pool) is also exhausted
	page, next = paginate(pool, 25, 10)
	if len(page) != 0 || next != nil {
		t.Fatalf("offset==len page=%d next=%v, want empty and nil", len(page), next)
	}
}

func TestPaginateEmptyPool(t *testing.T) {
	page, next := paginate(nil, 0, 10)
	if len(page) != 0 || next != nil {
		t.Fatalf("empty pool page=%d next=%v, want empty and nil", len(page), next)
	}
}
