package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/engine"
)

var (
	_ engine.KV = (*Store)(nil)
	_ engine.KV = (*MemoryKV)(nil)
)

type kvWithKeys interface {
	engine.KV
	Keys(ctx context.Context, prefix string) ([]string, error)
}

func TestKV(t *testing.T) {
	impls := map[string]func(t *testing.T) kvWithKeys{
		"sqlite": func(t *testing.T) kvWithKeys { return createTestStore(t) },
		"memory": func(*testing.T) kvWithKeys { return NewMemoryKV() },
	}

	for name, newKV := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			kv := newKV(t)

			_, ok, err := kv.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, kv.Set(ctx, "leftover-serials:order-1", `["Z9"]`))
			require.NoError(t, kv.Set(ctx, "leftover-serials:order-1", `["Z9","Y1"]`))
			require.NoError(t, kv.Set(ctx, "leftover-serials:order-0", `[]`))
			require.NoError(t, kv.Set(ctx, "undo:order-1", `{}`))

			v, ok, err := kv.Get(ctx, "leftover-serials:order-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `["Z9","Y1"]`, v)

			keys, err := kv.Keys(ctx, "leftover-serials:")
			require.NoError(t, err)
			assert.Equal(t, []string{"leftover-serials:order-0", "leftover-serials:order-1"}, keys)

			require.NoError(t, kv.Remove(ctx, "leftover-serials:order-1"))
			require.NoError(t, kv.Remove(ctx, "leftover-serials:order-1"))
			_, ok, err = kv.Get(ctx, "leftover-serials:order-1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestKV_ClosedStoreFails(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "k", "v"))
}
