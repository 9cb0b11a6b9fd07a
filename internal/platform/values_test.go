package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUint64(t *testing.T) {
	n, err := toUint64(float64(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), n)

	n, err = toUint64("0x10")
	require.NoError(t, err)
	assert.Equal(t, uint64(16), n)

	_, err = toUint64([]any{})
	assert.Error(t, err)
}

func TestToUint64RejectsNegative(t *testing.T) {
	// a wrapped negative would write a huge DWord
	_, err := toUint64(float64(-1))
	assert.Error(t, err)
}

func TestToStrings(t *testing.T) {
	items, err := toStrings([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)

	items, err = toStrings("single")
	require.NoError(t, err)
	assert.Equal(t, []string{"single"}, items)
}

func TestToBytes(t *testing.T) {
	data, err := toBytes([]any{float64(0), float64(255)})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255}, data)

	_, err = toBytes([]any{float64(256)})
	assert.Error(t, err)
	_, err = toBytes([]any{float64(-1)})
	assert.Error(t, err)
}

func TestPSQuote(t *testing.T) {
	assert.Equal(t, "'plain'", psQuote("plain"))
	assert.Equal(t, "'O''Brien''s App'", psQuote("O'Brien's App"))
}
