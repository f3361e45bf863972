package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractMentions(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"capitalized run with vintage", "Do you have Château Margaux 2015 or something like Barolo?",
			[]string{"Château Margaux 2015", "Barolo"}},
		{"quoted phrase first", `I loved "brunello di montalcino" and Tignanello`,
			[]string{"brunello di montalcino", "Tignanello"}},
		{"duplicates folded", "Sassicaia? sassicaia! I mean \"SASSICAIA\"", []string{"SASSICAIA"}},
		{"fallback to whole message", "something dry and red please", []string{"something dry and red please"}},
		{"short single caps ignored", "Is Ok fine", []string{"Is Ok fine"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractMentions(tc.in))
		})
	}
}
