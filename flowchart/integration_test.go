//go:build integration

package flowchart_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/pdc/flowchart"
	"github.com/liamcoop/pdc/internal/pgtest"
)

func TestPostgresStore_Versioning(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewPostgresStore(pgtest.Setup(t))

	def, err := flowchart.LoadFile(filepath.Join("..", "charts", "de.yaml"))
	require.NoError(t, err)

	_, err = store.Active(ctx, "de")
	assert.ErrorIs(t, err, flowchart.ErrNotFound)

	v1, err := store.Put(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	def.Name = "German copyright term, revised"
	v2, err := store.Put(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	active, err := store.Active(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)
	assert.Equal(t, "German copyright term, revised", active.Name)
	assert.Equal(t, def.Nodes, active.Nodes)

	all, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, store.Deactivate(ctx, "de"))
	assert.ErrorIs(t, store.Deactivate(ctx, "de"), flowchart.ErrNotFound)

	all, err = store.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// A jurisdiction can be reactivated with a new version
	v3, err := store.Put(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, 3, v3)
}
