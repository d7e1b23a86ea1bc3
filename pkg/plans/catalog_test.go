package plans

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	tests := []struct {
		slug      string
		wantPrice string
		wantLimit int
		wantDays  int
		wantPaid  bool
	}{
		{"freemium", "0", 3, 0, false},
		{"teste", "1", 3, 1, true},
		{"starter", "299", 15, 30, true},
		{"pro", "599", 40, 30, true},
		{"vip", "1499", 80, 90, true},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			p, ok := c.Get(tt.slug)
			require.True(t, ok)
			assert.Equal(t, tt.wantPrice, p.Price.String())
			assert.Equal(t, tt.wantLimit, p.DailyAnalysisLimit)
			assert.Equal(t, tt.wantPaid, p.IsPaid())

			d, ok := p.Duration()
			if tt.wantDays == 0 {
				assert.False(t, ok)
				assert.Nil(t, p.EndFrom(time.Now()))
				return
			}
			assert.True(t, ok)
			assert.Equal(t, time.Duration(tt.wantDays)*24*time.Hour, d)
		})
	}
}

func TestCatalogLookups(t *testing.T) {
	c := Default()

	_, ok := c.Get("platinum")
	assert.False(t, ok)

	assert.Equal(t, 3, c.DailyLimit("unknown"))
	assert.Equal(t, 40, c.DailyLimit("pro"))
	assert.Equal(t, "Pro", c.Name("pro"))
	assert.Equal(t, "monthly", c.Name("monthly"))

	premium := c.Premium()
	require.Len(t, premium, 4)
	assert.Equal(t, "teste", premium[0].Slug)
	assert.Equal(t, "vip", premium[len(premium)-1].Slug)
	for _, p := range premium {
		assert.True(t, p.IsPaid())
	}

	assert.Len(t, c.Active(), 5)
}

func TestEndFrom(t *testing.T) {
	p, _ := Default().Get("vip")
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	end := p.EndFrom(start)
	require.NotNil(t, end)
	assert.Equal(t, time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC), *end)
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty", "plans: []"},
		{"missing freemium", "plans:\n  - slug: pro\n    price: \"10\"\n    duration_days: 30\n"},
		{"bad price", "plans:\n  - slug: freemium\n    price: abc\n"},
		{"paid without duration", "plans:\n  - slug: freemium\n    price: \"0\"\n  - slug: pro\n    price: \"5\"\n"},
		{"duplicate", "plans:\n  - slug: freemium\n    price: \"0\"\n  - slug: freemium\n    price: \"0\"\n"},
		{"not yaml", "plans: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	p, ok := c.Get("pro")
	require.True(t, ok)
	assert.True(t, p.Popular)
}
