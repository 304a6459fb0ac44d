package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFieldsDeterministic(t *testing.T) {
	build := func(h float64) Hash {
		var f HashFields
		return f.String("name", "h").Float("loc", h).Floats("specs", []float64{0.64, 0.18}).Int("n", 5).Sum()
	}

	assert.Equal(t, build(0.64), build(0.64))
	assert.NotEqual(t, build(0.64), build(0.6400000000000001))
	assert.Len(t, build(0.64).String(), 64)
}

func TestHashReaderMatchesNewHash(t *testing.T) {
	data := "index,sigma8\n0,0.5\n"
	h, err := HashReader(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, NewHash([]byte(data)), h)
	assert.Len(t, h.Short(), 12)
}
