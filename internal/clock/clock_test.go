package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHorizon_LenAndTime(t *testing.T) {
	start := time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)
	h, err := NewHorizon(start, start.Add(48*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 193, h.Len())
	assert.Equal(t, start.Add(45*time.Minute), h.Time(3))
	assert.True(t, h.Contains(192))
	assert.False(t, h.Contains(193))
}

func TestNewHorizon_Rejects(t *testing.T) {
	start := time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)

	_, err := NewHorizon(start, start.Add(-Step))
	assert.ErrorIs(t, err, ErrBadHorizon)

	_, err = NewHorizon(start, start.Add(10*time.Minute))
	assert.ErrorIs(t, err, ErrBadHorizon)

	_, err = NewHorizon(time.Time{}, start)
	assert.ErrorIs(t, err, ErrBadHorizon)
}

func TestClock_Walk(t *testing.T) {
	start := time.Date(2022, 7, 1, 23, 30, 0, 0, time.UTC)
	h, err := NewHorizon(start, start.Add(30*time.Minute))
	require.NoError(t, err)

	c := New(h)
	n := 0
	for !c.Done() {
		n++
		c.Advance()
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, time.Date(2022, 7, 2, 0, 0, 0, 0, time.UTC), c.NowTime().Add(-Step))
}
