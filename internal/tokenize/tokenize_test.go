package tokenize

import "testing"

import "github.com/stretchr/testify/require"

func TestTokenizeWordRuns(t *testing.T) {
	require.Equal(t, []string{"getuserbyid"}, Tokenize("getUserById"))
}

func TestTokenizeSeparators(t *testing.T) {
	require.Equal(t, []string{"database", "connection", "pool", "manager"},
		Tokenize("database connection-pool, manager!"))
}

func TestTokenizeNonASCIILettersAreSeparators(t *testing.T) {
	require.Equal(t, []string{"caf", "au", "lait"}, Tokenize("café au lait"))
}

func TestTokenizeEmpty(t *testing.T) {
	require.Nil(t, Tokenize(""))
	require.Nil(t, Tokenize("   ---   "))
}

func TestTokenizeDigitsAndUnderscore(t *testing.T) {
	require.Equal(t, []string{"x_1", "y2"}, Tokenize("x_1.y2"))
}
