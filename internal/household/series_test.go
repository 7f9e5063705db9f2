package household

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries_Values(t *testing.T) {
	s, err := NewSeries([]float64{1, 2, 3}, []float64{10, 20, -1, 40}, WithPVScale(0.5))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	load, err := s.Load(1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, load)

	pv, err := s.PV(1)
	require.NoError(t, err)
	assert.Equal(t, 10.0, pv)

	pv, err = s.PV(2)
	require.NoError(t, err)
	assert.Zero(t, pv, "negative generation is clipped")
}

func TestSeries_Exhausted(t *testing.T) {
	s, err := NewSeries([]float64{1}, []float64{1, 2})
	require.NoError(t, err)

	_, err = s.Load(1)
	assert.True(t, errors.Is(err, ErrExhausted))
	_, err = s.PV(2)
	assert.True(t, errors.Is(err, ErrExhausted))
	_, err = s.PV(-1)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestSeries_ConstantLoad(t *testing.T) {
	s, err := NewSeries([]float64{9, 9}, []float64{0, 0, 0}, WithConstantLoad(50))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	v, err := s.Load(2)
	require.NoError(t, err)
	assert.Equal(t, 50.0, v)

	_, err = s.Load(3)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestNewSeries_Validation(t *testing.T) {
	_, err := NewSeries(nil, nil)
	assert.Error(t, err)
	_, err = NewSeries([]float64{-1}, []float64{1})
	assert.Error(t, err)
	_, err = NewSeries(nil, []float64{1}, WithPVScale(-2))
	assert.Error(t, err)
	_, err = NewSeries(nil, []float64{1}, WithConstantLoad(-2))
	assert.Error(t, err)
}
