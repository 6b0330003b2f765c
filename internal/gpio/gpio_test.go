package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePull(t *testing.T) {
	cases := map[string]Pull{
		"up":   PullUp,
		"UP":   PullUp,
		"down": PullDown,
		"none": PullNone,
		"":     PullNone,
	}
	for in, want := range cases {
		got, err := ParsePull(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePull("sideways")
	assert.Error(t, err)
}

func TestFake_ScriptRepeatsLastLevel(t *testing.T) {
	f := NewFake(Low, High)

	for _, want := range []Level{Low, High, High, High} {
		got, err := f.Read()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 4, f.Reads())
}

func TestFake_Set(t *testing.T) {
	f := NewFake(Low, Low, Low)
	_, _ = f.Read()

	f.Set(High)
	got, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, High, got)

	got, _ = f.Read()
	assert.Equal(t, High, got)
}

func TestFake_FailAt(t *testing.T) {
	f := NewFake(High).FailAt(1)

	_, err := f.Read()
	require.NoError(t, err)

	_, err = f.Read()
	assert.True(t, errors.Is(err, ErrHardwareRead))
}

func TestFake_Release(t *testing.T) {
	f := NewFake()
	require.NoError(t, f.Release())
	assert.Equal(t, 1, f.Released())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "HIGH", High.String())
	assert.Equal(t, "LOW", Low.String())
}
