package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) KV {
	t.Helper()
	return map[string]func(t *testing.T) KV{
		BackendMemory: func(t *testing.T) KV { return NewMemory() },
		BackendSQLite: func(t *testing.T) KV {
			s, err := Open(":memory:", Options{})
			require.NoError(t, err)
			return s
		},
		BackendBadger: func(t *testing.T) KV {
			b, err := OpenBadger("")
			require.NoError(t, err)
			return b
		},
		BackendFile: func(t *testing.T) KV {
			f, err := OpenFile(filepath.Join(t.TempDir(), "progress.json"))
			require.NoError(t, err)
			return f
		},
		BackendRedis: func(t *testing.T) KV {
			mr := miniredis.RunT(t)
			r, err := OpenRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
			require.NoError(t, err)
			return r
		},
	}
}

func TestKV_Conformance(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kv := open(t)
			t.Cleanup(func() { _ = kv.Close() })
			ctx := context.Background()

			_, err := kv.Get(ctx, "progress:missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "progress:b", []byte(`{"progress":2}`)))
			require.NoError(t, kv.Set(ctx, "progress:a", []byte(`{"progress":1}`)))
			require.NoError(t, kv.Set(ctx, "progress:ab", []byte(`{"progress":3}`)))
			require.NoError(t, kv.Set(ctx, "settings", []byte(`{}`)))

			got, err := kv.Get(ctx, "progress:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"progress":1}`, string(got))

			keys, err := kv.Keys(ctx, "progress:")
			require.NoError(t, err)
			assert.Equal(t, []string{"progress:a", "progress:ab", "progress:b"}, keys)

			keys, err = kv.Keys(ctx, "progress:a")
			require.NoError(t, err)
			assert.Equal(t, []string{"progress:a", "progress:ab"}, keys)

			require.NoError(t, kv.Delete(ctx, "progress:a"))
			require.NoError(t, kv.Delete(ctx, "progress:never-set"))
			_, err = kv.Get(ctx, "progress:a")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestGlobEscape(t *testing.T) {
	assert.Equal(t, `progress:a\*b\?\[c\]`, globEscape("progress:a*b?[c]"))
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "progress.json")
	ctx := context.Background()

	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Set(ctx, "progress:intro", []byte(`{"progress":40}`)))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "progress:intro")
	require.NoError(t, err)
	assert.JSONEq(t, `{"progress":40}`, string(got))
}

func TestFile_RejectsNonJSON(t *testing.T) {
	f, err := OpenFile(filepath.Join(t.TempDir(), "progress.json"))
	require.NoError(t, err)

	err = f.Set(context.Background(), "progress:intro", []byte("not json"))
	require.Error(t, err)
	_, err = f.Get(context.Background(), "progress:intro")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadger_RunGCInMemory(t *testing.T) {
	b, err := OpenBadger("")
	require.NoError(t, err)
	defer b.Close()

	assert.NoError(t, b.RunGC())
}

func TestNewKV(t *testing.T) {
	ctx := context.Background()

	kv, err := NewKV(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &Store{}, kv)
	require.NoError(t, kv.Close())

	kv, err = NewKV(ctx, Config{Backend: "MEMORY"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	dir := t.TempDir()
	kv, err = NewKV(ctx, Config{Backend: BackendFile, Dir: dir})
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "progress:x", []byte(`{}`)))
	assert.FileExists(t, filepath.Join(dir, "progress.json"))

	_, err = NewKV(ctx, Config{Backend: BackendFile})
	assert.Error(t, err)

	_, err = NewKV(ctx, Config{Backend: "etcd"})
	assert.ErrorContains(t, err, `unknown backend "etcd"`)

	_, err = NewKV(ctx, Config{Backend: BackendPostgres})
	assert.ErrorContains(t, err, "connection string is required")
}
