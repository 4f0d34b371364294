package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageResponse(t *testing.T) {
	tests := []struct {
		name       string
		page       int64
		total      int64
		wantPages  int64
		wantNext   bool
		wantPrev   bool
	}{
		{"empty", 1, 0, 1, false, false},
		{"first of three", 1, 45, 3, true, false},
		{"middle", 2, 45, 3, true, true},
		{"last", 3, 45, 3, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewPageResponse[string](nil, tt.page, 20, tt.total)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
			assert.Equal(t, tt.wantNext, resp.HasNext)
			assert.Equal(t, tt.wantPrev, resp.HasPrev)
			assert.NotNil(t, resp.Data)
		})
	}
}

func testContext(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePagination_Clamps(t *testing.T) {
	p := ParsePagination(testContext("page=0&pageSize=500"))
	assert.Equal(t, int64(1), p.Page)
	assert.Equal(t, int64(MaxPageSize), p.PageSize)
}

func TestParseFilter(t *testing.T) {
	f, bad := ParseFilter(testContext("search=OFR-0001&dateFrom=2026-01-01&dateTo=2026-01-31"))
	require.Empty(t, bad)
	assert.Equal(t, "OFR-0001", f.Search)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *f.DateFrom)
	assert.Equal(t, 31, f.DateTo.Day())
	assert.Equal(t, 23, f.DateTo.Hour())

	_, bad = ParseFilter(testContext("dateTo=yesterday"))
	assert.Equal(t, "dateTo", bad)
}
