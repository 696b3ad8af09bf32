package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("finserve_settings", []byte(`{"platformName":"Empower"}`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("finserve_settings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"platformName":"Empower"}`, string(got))
}

func TestSQLiteStore_KeysPrefixIsLiteral(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("finserve_users", []byte("[]")))
	require.NoError(t, s.Put("finserveXusers", []byte("[]")))

	keys, err := s.Keys("finserve_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"finserve_users"}, keys)
}

func TestSQLiteStore_BadPath(t *testing.T) {
	_, err := NewSQLiteStore(filepath.Join(t.TempDir(), "missing", "dir", "cache.db"))
	assert.Error(t, err)
}
