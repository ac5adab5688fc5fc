package parsers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"uac-triage/rules"
)

func rulesCategory(t *testing.T, name string) rules.Category {
	t.Helper()
	c, err := rules.ParseCategory(name)
	require.NoError(t, err)
	return c
}
