package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "b", []byte(`{"version":"0.1.0","steps":{}}`)))
	require.NoError(t, store.Put(ctx, " a ", []byte(`{"version":"0.2.0","steps_data":[]}`)))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0.2.0","steps_data":[]}`, string(got))

	require.NoError(t, store.Put(ctx, "b", []byte(`{"version":"0.1.0","steps_data":[]}`)))
	got, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0.1.0","steps_data":[]}`, string(got))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	assert.ErrorIs(t, store.Put(ctx, "", []byte("{}")), ErrInvalidID)
	assert.ErrorIs(t, store.Put(ctx, "../escape", []byte("{}")), ErrInvalidID)
	assert.ErrorIs(t, store.Put(ctx, ".draft", []byte("{}")), ErrInvalidID)
	assert.ErrorIs(t, store.Put(ctx, "..", []byte("{}")), ErrInvalidID)
	_, err = store.Get(ctx, "nested/id")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = store.Get(ctx, ".draft")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	buf := []byte(`{"version":"1.0.0"}`)
	require.NoError(t, store.Put(ctx, "x", buf))
	buf[0] = 'X'

	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, byte('{'), got[0])
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStoreIgnoresForeignFiles(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".partial.json"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "dir.json"), 0o755))
	require.NoError(t, store.Put(context.Background(), "real", []byte("{}")))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, ids)
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ANALYSIS_PG_TEST_DSN")
	if dsn == "" {
		t.Skip("ANALYSIS_PG_TEST_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	_, err = store.db.ExecContext(ctx, `DROP TABLE IF EXISTS saved_analyses`)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestS3Store(t *testing.T) {
	endpoint := os.Getenv("ANALYSIS_S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("ANALYSIS_S3_TEST_ENDPOINT not set")
	}
	store, err := NewS3Store(S3Config{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("ANALYSIS_S3_TEST_ACCESS_KEY"),
		SecretKey: os.Getenv("ANALYSIS_S3_TEST_SECRET_KEY"),
		Bucket:    "saved-analyses-test",
		Prefix:    t.Name(),
	})
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestNewS3StoreValidatesConfig(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")
}

func TestFileStoreListsEveryStoredID(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ids := []string{"q3.draft", "-x", "report.json", "sales 2024"}
	for _, id := range ids {
		require.NoError(t, store.Put(ctx, id, []byte("{}")))
	}
	listed, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids, listed)
}
