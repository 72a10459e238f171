package uuid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGeneratesDistinctNonNilUUIDs(t *testing.T) {
	a := New()
	b := New()
	require.NotEqual(t, Nil, a)
	require.NotEqual(t, a, b)
}

func TestParseRoundTrips(t *testing.T) {
	want := New()
	got, err := Parse(want.String())
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestParseRejectsMalformedInput(t *testing.T) {
	_, err := Parse("not-a-uuid")
	require.Error(t, err)
}

func TestMustParsePanicsOnMalformedInput(t *testing.T) {
	require.Panics(t, func() {
		MustParse("not-a-uuid")
	})
}
