package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFromRequest(t *testing.T) {
	tests := []struct {
		query  string
		page   int
		limit  int
		offset int
	}{
		{"", 1, DefaultLimit, 0},
		{"?page=3&limit=10", 3, 10, 20},
		{"?page=0&limit=-4", 1, DefaultLimit, 0},
		{"?page=x&limit=5000", 1, MaxLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got Pagination
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				got = ParseFromRequest(c)
				return nil
			})
			_, err := app.Test(httptest.NewRequest("GET", "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.page, got.Page)
			assert.Equal(t, tt.limit, got.Limit)
			assert.Equal(t, tt.offset, got.Offset)
		})
	}
}

func TestResponse(t *testing.T) {
	m := Response(Pagination{Page: 2, Limit: 10, Total: 21}, []int{1})
	meta := m["meta"].(fiber.Map)
	assert.EqualValues(t, 3, meta["total_pages"])
	assert.EqualValues(t, 21, meta["total_items"])
}
