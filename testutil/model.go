package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c360/semmodel/datatype"
	"github.com/c360/semmodel/model"
	"github.com/c360/semmodel/tags"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewRegistry returns a type registry with the built-in types over a small
// tag cache.
func NewRegistry(t testing.TB) *datatype.Registry {
	t.Helper()
	norm, err := tags.NewNormalizer(tags.WithCapacity(64), tags.WithShards(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = norm.Close() })

	reg, err := datatype.NewRegistry(norm, datatype.WithLogger(Logger()))
	require.NoError(t, err)
	return reg
}

// NewModel returns a model holding only the core definitions.
func NewModel(t testing.TB) *model.Model {
	t.Helper()
	m, err := model.New(NewRegistry(t), model.WithLogger(Logger()))
	require.NoError(t, err)
	return m
}
