package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "connections.yaml")
	s, err := NewStore(path)
	require.NoError(t, err)
	return s
}

func TestIdentityKey(t *testing.T) {
	id := Identity{Hostname: "web1", Username: "deploy", Port: 22}
	assert.Equal(t, "web1_deploy_22", id.Key())
	assert.Equal(t, "deploy@web1:22", id.String())
}

func TestIdentityEquality(t *testing.T) {
	a := Identity{Hostname: "web1", Username: "deploy", Port: 22}
	b := Identity{Hostname: "web1", Username: "deploy", Port: 22}
	c := Identity{Hostname: "web1", Username: "deploy", Port: 2222}

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestProfileNormalize(t *testing.T) {
	p := Profile{Hostname: "web1", Username: "deploy", Password: "pw"}.Normalize()
	assert.Equal(t, 22, p.Port)
	assert.Equal(t, "deploy@web1:22", p.DisplayName)

	// Explicit values are kept.
	q := Profile{Hostname: "web1", Username: "deploy", Port: 2222, DisplayName: "staging"}.Normalize()
	assert.Equal(t, 2222, q.Port)
	assert.Equal(t, "staging", q.DisplayName)
}

func TestStoreSaveAndList(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(Profile{Hostname: "web1", Username: "deploy", Password: "a"}))
	require.NoError(t, s.Save(Profile{Hostname: "web2", Username: "deploy", Password: "b"}))

	profiles := s.List()
	require.Len(t, profiles, 2)
	assert.Equal(t, "web1", profiles[0].Hostname)
	assert.Equal(t, "web2", profiles[1].Hostname)
}

func TestStoreUpsertByIdentity(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(Profile{Hostname: "web1", Username: "deploy", Password: "old", DisplayName: "prod"}))
	require.NoError(t, s.Save(Profile{Hostname: "web1", Username: "deploy", Password: "new", DisplayName: "prod-east"}))

	// Same identity replaces in place; no duplicate entry.
	assert.Equal(t, 1, s.Len())

	p, ok := s.Find(Identity{Hostname: "web1", Username: "deploy", Port: 22})
	require.True(t, ok)
	assert.Equal(t, "new", p.Password)
	assert.Equal(t, "prod-east", p.DisplayName)
}

func TestStoreUpsertPreservesOrder(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(Profile{Hostname: "a", Username: "u", Password: "1"}))
	require.NoError(t, s.Save(Profile{Hostname: "b", Username: "u", Password: "2"}))
	require.NoError(t, s.Save(Profile{Hostname: "a", Username: "u", Password: "3"}))

	profiles := s.List()
	require.Len(t, profiles, 2)
	assert.Equal(t, "a", profiles[0].Hostname)
	assert.Equal(t, "3", profiles[0].Password)
	assert.Equal(t, "b", profiles[1].Hostname)
}

func TestStoreRemove(t *testing.T) {
	s := tempStore(t)

	require.NoError(t, s.Save(Profile{Hostname: "web1", Username: "deploy", Password: "a"}))
	require.NoError(t, s.Remove(Identity{Hostname: "web1", Username: "deploy", Port: 22}))
	assert.Equal(t, 0, s.Len())

	// Removing an absent identity is a no-op.
	require.NoError(t, s.Remove(Identity{Hostname: "gone", Username: "x", Port: 22}))
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")

	s1, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(Profile{Hostname: "web1", Username: "deploy", Password: "secret", Port: 2222}))

	// File is written with owner-only permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s2, err := NewStore(path)
	require.NoError(t, err)
	p, ok := s2.Find(Identity{Hostname: "web1", Username: "deploy", Port: 2222})
	require.True(t, ok)
	assert.Equal(t, "secret", p.Password)
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "nope", "connections.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}
