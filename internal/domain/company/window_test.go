package company

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.Local)
}

func TestDateInRange(t *testing.T) {
	now := day(2024, time.March, 17)

	cases := []struct {
		name string
		from string
		to   string
		want bool
	}{
		{"day first inside", "15/03/2024", "20/03/2024", true},
		{"iso inside", "2024-03-15", "2024-03-20", true},
		{"mixed encodings", "15/03/2024", "2024-03-20", true},
		{"rfc3339 bounds", "2024-03-15T00:00:00Z", "2024-03-20T00:00:00Z", true},
		{"inclusive start", "17/03/2024", "20/03/2024", true},
		{"inclusive end", "01/03/2024", "17/03/2024", true},
		{"before window", "18/03/2024", "20/03/2024", false},
		{"after window", "01/03/2024", "16/03/2024", false},
		{"missing from", "", "20/03/2024", false},
		{"missing to", "15/03/2024", "", false},
		{"garbage", "soon", "later", false},
		{"impossible date", "32/13/2024", "20/03/2024", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, DateInRange(now, c.from, c.to))
		})
	}
}

func TestDateInRange_EncodingsAgree(t *testing.T) {
	for d := 10; d <= 25; d++ {
		now := day(2024, time.March, d)
		assert.Equal(t,
			DateInRange(now, "15/03/2024", "20/03/2024"),
			DateInRange(now, "2024-03-15", "2024-03-20"),
			"day %d", d,
		)
	}
}

func TestCompanyWindow(t *testing.T) {
	c := Company{
		Name: "Acme Ltd",
		Categories: map[Category]CategoryWindow{
			CategoryAccounting: {From: "01/01/2024", To: "31/12/2024"},
			CategoryLegal:      {},
		},
	}

	w, ok := c.Window(CategoryAccounting)
	assert.True(t, ok)
	assert.True(t, w.IsActive(day(2024, time.June, 1)))
	assert.False(t, w.IsActive(day(2025, time.January, 1)))

	_, ok = c.Window(CategoryLegal)
	assert.False(t, ok, "empty window is not participation")

	_, ok = c.Window(CategoryImmigration)
	assert.False(t, ok)
}

func TestParseWindowDate_OffsetBoundUsesLocalDate(t *testing.T) {
	saved := time.Local
	time.Local = time.FixedZone("EAT", 3*60*60)
	t.Cleanup(func() { time.Local = saved })

	got, ok := ParseWindowDate("2024-03-17T23:30:00-02:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, time.March, 18, 0, 0, 0, 0, time.Local), got)

	now := time.Date(2024, time.March, 17, 12, 0, 0, 0, time.Local)
	assert.False(t, DateInRange(now, "2024-03-17T23:30:00-02:00", "2024-03-20"),
		"bound falls on the 18th locally")
}
