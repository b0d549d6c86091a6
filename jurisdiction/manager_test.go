package jurisdiction

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/pdc/answerers"
	"github.com/liamcoop/pdc/flowchart"
)

func newManager(t *testing.T, store flowchart.Store) *Manager {
	t.Helper()
	c, err := answerers.NewCompiler()
	require.NoError(t, err)
	r, err := answerers.Builtins(c)
	require.NoError(t, err)
	return NewManager(store, r, c)
}

func loadChart(t *testing.T, name string) *flowchart.Definition {
	t.Helper()
	def, err := flowchart.LoadFile(filepath.Join("..", "charts", name))
	require.NoError(t, err)
	return def
}

// failingStore rejects every write
type failingStore struct {
	flowchart.Store
}

func (failingStore) Put(context.Context, *flowchart.Definition) (int, error) {
	return 0, errors.New("disk full")
}

// TestManager_LoadAll verifies active definitions are compiled on startup
func TestManager_LoadAll(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewInMemoryStore()
	_, err := store.Put(ctx, loadChart(t, "de.yaml"))
	require.NoError(t, err)
	_, err = store.Put(ctx, loadChart(t, "us.json"))
	require.NoError(t, err)

	m := newManager(t, store)
	require.NoError(t, m.LoadAll(ctx))
	assert.Equal(t, []string{"de", "us"}, m.List())

	chart, err := m.Get("de")
	require.NoError(t, err)
	q, err := chart.Initial().Question()
	require.NoError(t, err)
	assert.Equal(t, "official-work", q.ID())

	def, err := m.Definition("us")
	require.NoError(t, err)
	assert.Equal(t, 1, def.Version)
}

// TestManager_LoadAllRejectsBrokenCharts verifies a broken stored chart fails startup
func TestManager_LoadAllRejectsBrokenCharts(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewInMemoryStore()
	def := loadChart(t, "de.yaml")
	def.Nodes[0].Answerer = "crystal-ball"
	_, err := store.Put(ctx, def)
	require.NoError(t, err)

	m := newManager(t, store)
	assert.Error(t, m.LoadAll(ctx))
	assert.Empty(t, m.List())
}

// TestManager_Update verifies new versions are persisted and swapped in
func TestManager_Update(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewInMemoryStore()
	m := newManager(t, store)

	def := loadChart(t, "de.yaml")
	v1, err := m.Update(ctx, def)
	require.NoError(t, err)
	assert.Equal(t, 1, v1)

	first, err := m.Get("de")
	require.NoError(t, err)

	revised := loadChart(t, "de.yaml")
	revised.Name = "revised"
	v2, err := m.Update(ctx, revised)
	require.NoError(t, err)
	assert.Equal(t, 2, v2)

	second, err := m.Get("de")
	require.NoError(t, err)
	assert.NotSame(t, first, second, "update should swap in a new chart")

	got, err := m.Definition("de")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Name)
	assert.Equal(t, 2, got.Version)

	stored, err := store.Active(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

// TestManager_UpdateRejectsInvalid verifies invalid charts never replace a working one
func TestManager_UpdateRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewInMemoryStore()
	m := newManager(t, store)

	_, err := m.Update(ctx, loadChart(t, "de.yaml"))
	require.NoError(t, err)
	before, err := m.Get("de")
	require.NoError(t, err)

	broken := loadChart(t, "de.yaml")
	broken.Nodes[0].Edges["UNKNOWN"] = "protected"
	_, err = m.Update(ctx, broken)
	var verr *flowchart.ValidationError
	assert.True(t, errors.As(err, &verr))

	after, err := m.Get("de")
	require.NoError(t, err)
	assert.Same(t, before, after)

	stored, err := store.Active(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
}

// TestManager_UpdateStoreFailure verifies a failed write leaves the loaded chart untouched
func TestManager_UpdateStoreFailure(t *testing.T) {
	m := newManager(t, failingStore{Store: flowchart.NewInMemoryStore()})

	_, err := m.Update(context.Background(), loadChart(t, "de.yaml"))
	assert.ErrorContains(t, err, "disk full")

	_, err = m.Get("de")
	assert.ErrorIs(t, err, ErrUnknownJurisdiction)
}

// TestManager_Remove verifies removal unloads and deactivates
func TestManager_Remove(t *testing.T) {
	ctx := context.Background()
	store := flowchart.NewInMemoryStore()
	m := newManager(t, store)

	_, err := m.Update(ctx, loadChart(t, "us.json"))
	require.NoError(t, err)

	require.NoError(t, m.Remove(ctx, "us"))
	assert.ErrorIs(t, m.Remove(ctx, "us"), ErrUnknownJurisdiction)

	_, err = m.Get("us")
	assert.ErrorIs(t, err, ErrUnknownJurisdiction)
	_, err = m.Definition("us")
	assert.ErrorIs(t, err, ErrUnknownJurisdiction)
	_, err = store.Active(ctx, "us")
	assert.ErrorIs(t, err, flowchart.ErrNotFound)
}

// TestManager_ConcurrentAccess verifies readers never block on or race with updates
func TestManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, flowchart.NewInMemoryStore())
	_, err := m.Update(ctx, loadChart(t, "de.yaml"))
	require.NoError(t, err)

	defs := make([]*flowchart.Definition, 10)
	for i := range defs {
		defs[i] = loadChart(t, "de.yaml")
	}

	var wg sync.WaitGroup
	for _, def := range defs {
		def := def
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := m.Get("de"); err != nil {
				t.Errorf("Get() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := m.Update(ctx, def); err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	def, err := m.Definition("de")
	require.NoError(t, err)
	assert.Equal(t, 11, def.Version)
}
