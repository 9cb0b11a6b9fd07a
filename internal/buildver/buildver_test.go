package buildver

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		input string
		want  Version
		fails bool
	}{
		{input: "10.0.19041", want: Version{10, 0, 19041}},
		{input: "10.0.19041.390", want: Version{10, 0, 19041, 390}},
		{input: "19041", want: Version{19041}},
		{input: "", fails: true},
		{input: "10.0.x", fails: true},
		{input: "10..0", fails: true},
		{input: "-10.0", fails: true},
	}

	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			v, err := Parse(c.input)
			if c.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, v)
			assert.Equal(t, c.input, v.String())
		})
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"10.0.19041", "10.0.19041", 0},
		{"10.0.19041", "10.0.19041.0", 0},
		{"10.0.19041", "10.0.22000", -1},
		{"10.0.22000", "10.0.19041", 1},
		{"10.0.19041.390", "10.0.19041", 1},
		{"6.3.9600", "10.0.14393", -1},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, MustParse(c.a).Compare(MustParse(c.b)), "%s vs %s", c.a, c.b)
	}
}

func TestInRange(t *testing.T) {
	min := MustParse("10.0.14393")
	max := MustParse("10.0.20348")

	assert.True(t, MustParse("10.0.19041").InRange(min, max))
	assert.True(t, MustParse("10.0.14393").InRange(min, max))
	assert.True(t, MustParse("10.0.20348").InRange(min, max))
	assert.False(t, MustParse("10.0.22000").InRange(min, max))
	assert.False(t, MustParse("10.0.10240").InRange(min, max))

	// unbounded sides
	assert.True(t, MustParse("10.0.22000").InRange(min, nil))
	assert.True(t, MustParse("6.1.7601").InRange(nil, max))
	assert.True(t, MustParse("10.0.19041").InRange(nil, nil))
}

func TestJSONRoundTrip(t *testing.T) {
	var v Version
	require.NoError(t, json.Unmarshal([]byte(`"10.0.19041"`), &v))
	assert.Equal(t, Version{10, 0, 19041}, v)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `"10.0.19041"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`19041`), &v))
	assert.Error(t, json.Unmarshal([]byte(`"ten"`), &v))
}
