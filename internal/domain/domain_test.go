package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"child", LevelChild},
		{"eli5", LevelChild},
		{"ELI5 (Child)", LevelChild},
		{" Intermediate ", LevelIntermediate},
		{"expert", LevelExpert},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		require.NoError(t, err, "in=%q", tc.in)
		require.Equal(t, tc.want, got)
	}

	_, err := ParseLevel("toddler")
	require.Error(t, err)
}

func TestParseStyle(t *testing.T) {
	cases := []struct {
		in   string
		want Style
	}{
		{"standard", StyleStandard},
		{"Storytelling", StyleStorytelling},
		{"technical", StyleTechnical},
		{"Technical Breakdown", StyleTechnical},
	}
	for _, tc := range cases {
		got, err := ParseStyle(tc.in)
		require.NoError(t, err, "in=%q", tc.in)
		require.Equal(t, tc.want, got)
	}

	_, err := ParseStyle("haiku")
	require.Error(t, err)
}

func TestLevelAndStyle_RoundTripThroughString(t *testing.T) {
	for _, l := range Levels {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		require.Equal(t, l, parsed)
		require.NotEmpty(t, l.Phrase())
		require.NotEmpty(t, l.Instruction())
	}
	for _, s := range Styles {
		parsed, err := ParseStyle(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}
}

func TestUnknownEnumerations_Panic(t *testing.T) {
	require.Panics(t, func() { _ = Level(0).Phrase() })
	require.Panics(t, func() { _ = Style(42).Suffix() })
	require.False(t, Level(0).Valid())
	require.False(t, Style(42).Valid())
}

func TestNormalizeTopic(t *testing.T) {
	require.Equal(t, "How do airplanes FLY?", NormalizeTopic("  How do   airplanes\tFLY? "))
	require.NotEqual(t, NormalizeTopic("US"), NormalizeTopic("Us"))
}
