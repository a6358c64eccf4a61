package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civilsoul/offlined/schema"
)

func TestProcessAndValidate(t *testing.T) {
	t.Run("defaults apply on empty input", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{}))

		assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
		assert.Equal(t, DefaultUpstreamURL, cfg.UpstreamURL.String())
		assert.Equal(t, schema.SQLiteBackend, cfg.Backend)
		assert.Equal(t, DefaultVersionTag, cfg.VersionTag)
		assert.Equal(t, schema.ProductName, cfg.ProductName)
		assert.Equal(t, DefaultMaxDrainAttempts, cfg.MaxDrainAttempts)
		assert.Equal(t, DefaultNetworkTimeout, cfg.NetworkTimeout)
		assert.Equal(t, DefaultAPIPrefixes, cfg.APIPrefixes)
	})

	t.Run("invalid listen address", func(t *testing.T) {
		err := ProcessAndValidate(&Config{}, &ConfigRawInput{ListenAddr: "not-an-addr"})
		assert.ErrorContains(t, err, "invalid listen address")
	})

	t.Run("invalid upstream url", func(t *testing.T) {
		tests := []string{"://bad", "ftp://host", "relative/path", "http://"}
		for _, raw := range tests {
			err := ProcessAndValidate(&Config{}, &ConfigRawInput{UpstreamURLStr: raw})
			assert.ErrorContains(t, err, "invalid upstream URL", "input %q", raw)
		}
	})

	t.Run("backend validation", func(t *testing.T) {
		err := ProcessAndValidate(&Config{}, &ConfigRawInput{BackendStr: "oracle"})
		assert.ErrorContains(t, err, "invalid store backend")

		err = ProcessAndValidate(&Config{}, &ConfigRawInput{BackendStr: "mysql"})
		assert.ErrorContains(t, err, "requires a connection string")

		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{BackendStr: "MySQL", DBConnect: "u:p@tcp(h:3306)/db"}))
		assert.Equal(t, schema.MySQLBackend, cfg.Backend)
	})

	t.Run("version tag validation", func(t *testing.T) {
		err := ProcessAndValidate(&Config{}, &ConfigRawInput{VersionTag: "v 1"})
		assert.ErrorContains(t, err, "invalid version tag")

		err = ProcessAndValidate(&Config{}, &ConfigRawInput{VersionTag: "v/1"})
		assert.ErrorContains(t, err, "invalid version tag")

		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{VersionTag: "2024-10"}))
		assert.Equal(t, "2024-10", cfg.VersionTag)
	})

	t.Run("drain attempt bounds", func(t *testing.T) {
		err := ProcessAndValidate(&Config{}, &ConfigRawInput{MaxDrainAttempts: -1})
		assert.ErrorContains(t, err, "max-drain-attempts")

		err = ProcessAndValidate(&Config{}, &ConfigRawInput{MaxDrainAttempts: MaxDrainAttemptsCeiling + 1})
		assert.ErrorContains(t, err, "max-drain-attempts")

		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{MaxDrainAttempts: 3}))
		assert.Equal(t, 3, cfg.MaxDrainAttempts)
	})

	t.Run("classification lists extend the defaults", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{
			APIPrefixesStr: "/v2/, /graphql",
			ImageHostsStr:  "cdn.example.com",
		}))

		assert.Contains(t, cfg.APIPrefixes, "/api/")
		assert.Contains(t, cfg.APIPrefixes, "/v2/")
		assert.Contains(t, cfg.APIPrefixes, "/graphql")
		assert.Contains(t, cfg.ImageHosts, "images.unsplash.com")
		assert.Contains(t, cfg.ImageHosts, "cdn.example.com")
	})

	t.Run("network timeout parsing", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, ProcessAndValidate(cfg, &ConfigRawInput{NetworkTimeout: "30s"}))
		assert.Equal(t, 30*time.Second, cfg.NetworkTimeout)

		err := ProcessAndValidate(&Config{}, &ConfigRawInput{NetworkTimeout: "soon"})
		assert.ErrorContains(t, err, "invalid network-timeout")

		err = ProcessAndValidate(&Config{}, &ConfigRawInput{NetworkTimeout: "-5s"})
		assert.ErrorContains(t, err, "invalid network-timeout")
	})
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.NoneBackend, ""))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, ""))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "   "))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost"))
}
