package httpx

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageDefaultsAndBounds(t *testing.T) {
	cases := []struct {
		query       string
		page, limit int
	}{
		{"", 1, DefaultPageSize},
		{"?page=0&limit=0", 1, DefaultPageSize},
		{"?page=-3&limit=500", 1, MaxPageSize},
		{"?page=abc&limit=x", 1, DefaultPageSize},
		{"?page=4&limit=25", 4, 25},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			page, limit := Page(httptest.NewRequest(http.MethodGet, "/"+tc.query, nil))
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.limit, limit)
		})
	}
}

func TestPageOffsetNeverOverflows(t *testing.T) {
	for _, query := range []string{
		"?page=9223372036854775807&limit=10",
		"?page=9223372036854775807&limit=100",
		"?page=2147483647&limit=1",
	} {
		page, limit := Page(httptest.NewRequest(http.MethodGet, "/"+query, nil))
		offset := (page - 1) * limit
		assert.GreaterOrEqual(t, offset, 0, query)
		assert.LessOrEqual(t, offset, math.MaxInt32, query)
	}
}
