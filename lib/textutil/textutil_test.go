package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollapseSpace(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "", expected: ""},
		{input: "  \n\t ", expected: ""},
		{input: "€ 10.000\n\t\tkorting ", expected: "€ 10.000 korting"},
		{input: "3-kamer  appartement", expected: "3-kamer appartement"},
	}
	for _, test := range table {
		require.Equal(t, test.expected, CollapseSpace(test.input), test.input)
	}
}
