package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.True(t, cfg.SeedDemoData)
	assert.False(t, cfg.UsesPostgres())
	assert.False(t, cfg.UsesKafka())
	assert.False(t, cfg.UsesOtel())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
database_url: postgres://file
kafka_brokers: [k1:9092, k2:9092]
seed_demo_data: false
shutdown_timeout: 3s
`), 0o600))

	cfg, err := load(envOf(map[string]string{
		FileEnv:             path,
		"DATABASE_URL":      "postgres://env",
		"DB_MAX_OPEN_CONNS": "25",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.UsesPostgres())
	assert.True(t, cfg.UsesKafka())
}

func TestLoad_BrokerList(t *testing.T) {
	cfg, err := load(envOf(map[string]string{"KAFKA_BROKERS": " a:1 , ,b:2"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.KafkaBrokers)
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"bad int":      {"DB_MAX_OPEN_CONNS": "many"},
		"zero conns":   {"DB_MAX_OPEN_CONNS": "0"},
		"bad bool":     {"SEED_DEMO_DATA": "perhaps"},
		"bad duration": {"SHUTDOWN_TIMEOUT": "soon"},
		"missing file": {FileEnv: "/does/not/exist.yaml"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := load(envOf(vars))
			assert.Error(t, err)
		})
	}
}
