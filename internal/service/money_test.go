package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCents(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0, 0},
		{19.99, 1999},
		{899, 89900},
		{0.01, 1},
		{1234.56, 123456},
		// The classic float trap: 19.995 parses shortest as 19.995 and
		// rounds half-up to 20.00, while 19.994 stays below.
		{19.995, 2000},
		{19.994, 1999},
		{0.005, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeCents(c.in), "input %v", c.in)
	}
}

func TestNormalizeCentsPtr(t *testing.T) {
	assert.Nil(t, NormalizeCentsPtr(nil))
	v := 12.5
	got := NormalizeCentsPtr(&v)
	assert.Equal(t, int64(1250), *got)
}

func TestCentsToEuros(t *testing.T) {
	assert.Equal(t, 19.99, CentsToEuros(1999))
	assert.Equal(t, 0.0, CentsToEuros(0))
	assert.Nil(t, CentsToEurosPtr(nil))
}
