package spatial

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

const square = "POLYGON((0 0, 0 10, 10 10, 10 0, 0 0))"

func countingParser(n *atomic.Int64) ParseFunc {
	return func(s string) (geom.T, error) {
		n.Add(1)
		return wkt.Unmarshal(s)
	}
}

func TestContained_NoBounds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f := NewFilter("", WithParser(countingParser(&calls)))
	assert.False(t, f.Enabled())

	ok, err := f.Contained(500, -500)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), calls.Load())
}

func TestContained_Square(t *testing.T) {
	t.Parallel()

	f := NewFilter(square)

	tests := []struct {
		name     string
		lng, lat float64
		want     bool
	}{
		{"inside", 5, 5, true},
		{"outside", 20, 20, false},
		{"negative outside", -1, 5, false},
		{"edge", 0, 5, true},
		{"corner", 10, 10, true},
	}
	for _, tt := range tests {
		got, err := f.Contained(tt.lng, tt.lat)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestContained_ParsesOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f := NewFilter(square, WithParser(countingParser(&calls)))

	for i := 0; i < 50; i++ {
		_, err := f.Contained(float64(i%12), 5)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), calls.Load())
}

func TestContained_ParsesOnceConcurrently(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	f := NewFilter(square, WithParser(countingParser(&calls)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.Contained(5, 5)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), calls.Load())
}

func TestContained_Hole(t *testing.T) {
	t.Parallel()

	f := NewFilter("POLYGON((0 0, 0 10, 10 10, 10 0, 0 0), (4 4, 4 6, 6 6, 6 4, 4 4))")

	ok, err := f.Contained(5, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.Contained(2, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContained_MultiPolygon(t *testing.T) {
	t.Parallel()

	f := NewFilter("MULTIPOLYGON(((0 0, 0 1, 1 1, 1 0, 0 0)), ((5 5, 5 6, 6 6, 6 5, 5 5)))")

	for _, pt := range [][2]float64{{0.5, 0.5}, {5.5, 5.5}} {
		ok, err := f.Contained(pt[0], pt[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := f.Contained(3, 3)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestContained_InvalidGeometry(t *testing.T) {
	t.Parallel()

	tests := []string{
		"POLYGON((0 0, 0 10",
		"not wkt at all",
		"POINT(1 2)",
	}
	for _, in := range tests {
		var calls atomic.Int64
		f := NewFilter(in, WithParser(countingParser(&calls)))

		_, err := f.Contained(1, 1)
		require.Error(t, err, in)
		var ige *InvalidGeometryError
		require.True(t, errors.As(err, &ige), in)

		// The failure is remembered, not re-parsed.
		_, err = f.Contained(2, 2)
		require.Error(t, err)
		assert.Equal(t, int64(1), calls.Load())
	}
}

func TestPrepare(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewFilter("").Prepare())
	require.NoError(t, NewFilter(square).Prepare())
	require.Error(t, NewFilter("POLYGON((").Prepare())
}

func TestEnvelope(t *testing.T) {
	t.Parallel()

	env, ok, err := NewFilter("").Envelope()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Envelope{}, env)

	env, ok, err = NewFilter("MULTIPOLYGON(((0 0, 0 1, 1 1, 1 0, 0 0)), ((-107.5 33, -107.5 34.25, -106 34.25, -106 33, -107.5 33)))").Envelope()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Envelope{MinX: -107.5, MinY: 0, MaxX: 1, MaxY: 34.25}, env)
	assert.Equal(t, "-107.5,0,1,34.25", env.String())

	_, _, err = NewFilter("POINT(1 2)").Envelope()
	var ige *InvalidGeometryError
	assert.True(t, errors.As(err, &ige))
}
