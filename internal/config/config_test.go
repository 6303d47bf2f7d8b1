package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quickscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
fqdn: quay.io
repo_namespace: acme
cnf_prefix: univ-nf-
tag_type: name
auth_json: /tmp/auth.json
parallel: 6
timeout_minutes: 45
output_csv: out.csv
db_driver: sqlite
db_dsn: history.db
metrics_addr: ":9099"
`)

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "quay.io", f.FQDN)
	assert.Equal(t, "acme", f.RepoNamespace)
	assert.Equal(t, "univ-nf-", f.CnfPrefix)
	assert.Equal(t, 6, f.Parallel)
	assert.Equal(t, 45, f.TimeoutMinutes)
	assert.Equal(t, "out.csv", f.OutputCSV)
	assert.Equal(t, "sqlite", f.DBDriver)
	assert.Equal(t, ":9099", f.MetricsAddr)
	assert.Empty(t, f.ImageFile)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	path := writeConfig(t, "paralell: 4\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing config file")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, &File{}, f)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}
