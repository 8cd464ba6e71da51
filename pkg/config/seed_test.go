package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: carol
    password: admin-pw
    role: admin
  - username: bob
    password: teacher-pw
    role: teacher
`), 0o600))

	users, err := LoadSeedUsers(path)
	require.NoError(t, err)
	assert.Equal(t, []SeedUser{
		{Username: "carol", Password: "admin-pw", Role: "admin"},
		{Username: "bob", Password: "teacher-pw", Role: "teacher"},
	}, users)
}

func TestParseSeedUsersRejectsIncompleteEntries(t *testing.T) {
	_, err := ParseSeedUsers([]byte("users:\n  - username: carol\n    role: admin\n"))
	assert.Error(t, err)

	_, err = ParseSeedUsers([]byte("users: [oops"))
	assert.Error(t, err)

	_, err = LoadSeedUsers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
