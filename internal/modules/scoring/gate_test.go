package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_ShouldRun(t *testing.T) {
	saturday := time.Date(2024, 3, 9, 2, 0, 0, 0, time.UTC)
	friday := saturday.AddDate(0, 0, -1)
	lastWeek := saturday.AddDate(0, 0, -7)

	tests := []struct {
		name  string
		force bool
		last  time.Time
		now   time.Time
		want  bool
	}{
		{"never ran", false, time.Time{}, friday, true},
		{"calculation weekday", false, lastWeek, saturday, true},
		{"other weekday", false, lastWeek, friday, false},
		{"forced on other weekday", true, lastWeek, friday, true},
		{"already ran today", false, saturday.Add(-time.Hour), saturday, false},
		{"forced but already ran today", true, friday.Add(time.Hour), friday.Add(5 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(time.Saturday, tt.force)
			assert.Equal(t, tt.want, g.ShouldRun(tt.last, tt.now))
		})
	}
}

func TestLatest(t *testing.T) {
	a := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	b := a.AddDate(0, 0, 7)

	assert.Equal(t, b, Latest([]time.Time{a, b}))
	assert.True(t, Latest([]time.Time{a, {}}).IsZero())
	assert.True(t, Latest(nil).IsZero())
}
