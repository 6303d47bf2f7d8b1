package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreRunE(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "registry mode requires a namespace",
			args:    []string{"--api-token", "tok"},
			wantErr: "repo-namespace is required and cannot be empty",
		},
		{
			name:    "registry mode requires a token",
			args:    []string{"--repo-namespace", "acme"},
			wantErr: "api-token is required and cannot be empty",
		},
		{
			name:    "registry mode requires an fqdn",
			args:    []string{"--repo-namespace", "acme", "--api-token", "tok", "--fqdn", ""},
			wantErr: "fqdn is required and cannot be empty",
		},
		{
			name: "image file mode needs no registry flags",
			args: []string{"--image-file", "images.txt"},
		},
		{
			name: "registry mode with all flags",
			args: []string{"--repo-namespace", "acme", "--api-token", "tok"},
		},
		{
			name:    "unknown tag type rejected",
			args:    []string{"--image-file", "images.txt", "--tag-type", "branch"},
			wantErr: "unsupported tag-type: branch",
		},
		{
			name: "digest tag type accepted",
			args: []string{"--image-file", "images.txt", "--tag-type", "digest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			require.NoError(t, cmd.ParseFlags(tt.args))

			err := cmd.PreRunE(cmd, nil)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGatherSettings_FileFillsUnsetFlags(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "quickscan.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
fqdn: registry.example.com
repo_namespace: acme
parallel: 9
timeout_minutes: 5
output_xlsx: results.xlsx
`), 0o600))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", cfg,
		"--parallel", "2", // explicit flag beats the file
	}))

	s, err := gatherSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com", s.fqdn)
	assert.Equal(t, "acme", s.repoNamespace)
	assert.Equal(t, 2, s.parallel)
	assert.Equal(t, 5, s.timeoutMinutes)
	assert.Equal(t, "results.xlsx", s.outputXLSX)
	// file keys that are absent leave the flag defaults alone
	assert.Equal(t, "preflight_image_scan_result.csv", s.outputCSV)
}

func TestGatherSettings_NoConfigKeepsDefaults(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))

	s, err := gatherSettings(cmd)
	require.NoError(t, err)
	assert.Equal(t, "quay.io", s.fqdn)
	assert.Equal(t, 4, s.parallel)
	assert.Equal(t, 30, s.timeoutMinutes)
	assert.False(t, s.skipPrereq)
}

func TestGatherSettings_BadConfigFile(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	_, err := gatherSettings(cmd)
	require.Error(t, err)
}

func TestBackupExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, backupExisting(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	saved, err := os.ReadFile(filepath.Join(dir, "results_saved.csv"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(saved))
}

func TestBackupExisting_NoPreviousReport(t *testing.T) {
	assert.NoError(t, backupExisting(filepath.Join(t.TempDir(), "absent.csv")))
}
