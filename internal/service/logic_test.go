package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	testCases := []struct {
		name           string
		page           int
		limit          int
		expectedOffset int
		expectedLimit  int
	}{
		{"first page", 1, 20, 0, 20},
		{"second page", 2, 20, 20, 20},
		{"custom limit", 3, 10, 20, 10},
		{"zero page falls back to first", 0, 20, 0, 20},
		{"negative page falls back to first", -5, 20, 0, 20},
		{"zero limit takes default", 2, 0, 20, 20},
		{"negative limit takes default", 1, -1, 0, 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			offset, limit := Paginate(tc.page, tc.limit, DefaultPageLimit)
			assert.Equal(t, tc.expectedOffset, offset)
			assert.Equal(t, tc.expectedLimit, limit)
		})
	}
}

// 45 заказов при limit 20: 3 страницы, последняя неполная,
// страница за пределами диапазона - пустая и без hasMore.
func TestTotalPages(t *testing.T) {
	testCases := []struct {
		name            string
		total           int64
		page            int
		limit           int
		expectedPages   int
		expectedHasMore bool
	}{
		{"first of three", 45, 1, 20, 3, true},
		{"second of three", 45, 2, 20, 3, true},
		{"last partial page", 45, 3, 20, 3, false},
		{"past the end", 45, 4, 20, 3, false},
		{"exact fit", 40, 2, 20, 2, false},
		{"empty result", 0, 1, 20, 0, false},
		{"single page", 5, 1, 20, 1, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			totalPages, hasMore := TotalPages(tc.total, tc.page, tc.limit)
			assert.Equal(t, tc.expectedPages, totalPages)
			assert.Equal(t, tc.expectedHasMore, hasMore)
		})
	}
}
