package otp

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerate_SixDigitsInRange(t *testing.T) {
	for i := 0; i < 500; i++ {
		code, err := Generate(nil)
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, minCode)
		assert.LessOrEqual(t, n, maxCode)
	}
}

func TestGenerate_DeterministicForSameSource(t *testing.T) {
	seed := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 8)
	a, err := Generate(bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := Generate(bytes.NewReader(seed))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_LowestDraw(t *testing.T) {
	code, err := Generate(bytes.NewReader(make([]byte, 16)))
	require.NoError(t, err)
	assert.Equal(t, "100000", code)
}

func TestGenerate_ReaderFailure(t *testing.T) {
	_, err := Generate(failingReader{})
	assert.Error(t, err)
}
