package rerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCategory(t *testing.T) {
	err := Wrap(CategoryIO, errors.New("disk full"), "reading %s", "a.go")
	require.True(t, errors.Is(err, New(CategoryIO, "")))
	require.False(t, errors.Is(err, New(CategoryParse, "")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Annotator(cause, "embedding failed")
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestCategoryOf(t *testing.T) {
	require.Equal(t, CategoryQueryParse, CategoryOf(QueryParse("bad token")))
	require.Equal(t, Category(""), CategoryOf(errors.New("plain")))
}
