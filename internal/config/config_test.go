package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs and
// clears every DECODER_ variable.
func isolate(t *testing.T) (home, work string) {
	t.Helper()
	root := t.TempDir()
	home = filepath.Join(root, "home")
	work = filepath.Join(root, "work")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.MkdirAll(work, 0o755))
	t.Setenv("HOME", home)
	for _, key := range []string{
		"DECODER_HTTP_ADDR", "DECODER_GRPC_ADDR", "DECODER_AUDIT_LOG",
		"DECODER_LOG_LEVEL", "DECODER_SEED", "DECODER_MAX_IMAGE_BYTES",
	} {
		t.Setenv(key, "")
	}
	t.Chdir(work)
	return home, work
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	home, work := isolate(t)

	dir := filepath.Join(home, ".decoder")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`http_addr = "0.0.0.0:1111"
grpc_addr = "0.0.0.0:2222"
seed = 42
log_level = "debug"
`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(work, "decoder.yml"), []byte(`http_addr: 127.0.0.1:6500
max_image_bytes: 1024
`), 0o644))

	t.Setenv("DECODER_GRPC_ADDR", "127.0.0.1:7000")
	t.Setenv("DECODER_AUDIT_LOG", "/tmp/audit.log")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:6500", cfg.HTTPAddr, "yaml beats toml")
	assert.Equal(t, "127.0.0.1:7000", cfg.GRPCAddr, "env beats toml")
	assert.Equal(t, "/tmp/audit.log", cfg.AuditLog)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, int64(1024), cfg.MaxImageBytes)
}

func TestLoadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		env   map[string]string
		match string
	}{
		{name: "unknown yaml key", yaml: "listen: :80\n", match: "decoder.yml"},
		{name: "malformed yaml", yaml: "http_addr: [\n", match: "decoder.yml"},
		{name: "bad seed env", env: map[string]string{"DECODER_SEED": "-1"}, match: "DECODER_SEED"},
		{name: "bad size env", env: map[string]string{"DECODER_MAX_IMAGE_BYTES": "big"}, match: "DECODER_MAX_IMAGE_BYTES"},
		{name: "bad level", env: map[string]string{"DECODER_LOG_LEVEL": "chatty"}, match: "invalid config"},
		{name: "zero image size", yaml: "max_image_bytes: 0\n", match: "max_image_bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, work := isolate(t)
			if tt.yaml != "" {
				require.NoError(t, os.WriteFile(filepath.Join(work, "decoder.yml"), []byte(tt.yaml), 0o644))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.match)
		})
	}
}

func TestLoadRejectsUnknownTOMLKeys(t *testing.T) {
	home, _ := isolate(t)
	dir := filepath.Join(home, ".decoder")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("server = \"x\"\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.HTTPAddr = ""
	assert.NoError(t, cfg.Validate(), "grpc alone is enough")

	cfg.GRPCAddr = " "
	assert.Error(t, cfg.Validate())
}
