package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refcask/refcask/internal/errs"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
engine: postgres
dsn: "postgres://cask:secret@db:5432/catalog"
max_conns: 50
connect_timeout: 3s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, EnginePostgres, cfg.Engine)
	assert.Equal(t, 50, cfg.MaxConns)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	// Unset fields fall back to defaults.
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
}

func TestLoadConfigUnknownEngine(t *testing.T) {
	path := writeConfig(t, `
engine: oracle
dsn: "oracle://db"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.True(t, errs.IsUnsupported(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "postgres with dsn", cfg: Config{Engine: EnginePostgres, DSN: "postgres://x"}},
		{name: "postgres with host", cfg: Config{Engine: EnginePostgres, Host: "db"}},
		{name: "sqlite memory", cfg: Config{Engine: EngineSQLite, DSN: ":memory:"}},
		{name: "missing engine", cfg: Config{DSN: "x"}, wantErr: true},
		{name: "sqlite without dsn", cfg: Config{Engine: EngineSQLite}, wantErr: true},
		{name: "no dsn no host", cfg: Config{Engine: EngineMySQL}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
