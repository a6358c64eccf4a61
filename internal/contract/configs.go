package contract

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/civilsoul/offlined/schema"
)

// Default values for configuration.
const (
	DefaultListenAddr       = "127.0.0.1:8787"
	DefaultUpstreamURL      = "https://civilsoul.org"
	DefaultVersionTag       = "v1"
	DefaultMaxDrainAttempts = 5
	MaxDrainAttemptsCeiling = 100
	DefaultNetworkTimeout   = 15 * time.Second
)

// Default classification rules. All of them are extendable via config.
var (
	DefaultAPIPrefixes     = []string{"/api/"}
	DefaultIdentityPaths   = []string{"/api/user", "/api/profile", "/api/applications/mine"}
	DefaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".avif"}
	DefaultImageHosts      = []string{"images.unsplash.com"}
)

// Config holds the validated runtime configuration for the agent.
// Fields requiring complex parsing (URLs, comma lists, durations) are set
// by ProcessAndValidate after flags are read.
type Config struct {
	ListenAddr       string                 // Address the agent listens on
	UpstreamURL      *url.URL               // Base URL of the backend API/origin
	Backend          schema.DatabaseBackend // Durable store backend
	DBConnect        string                 // Connection string for mysql/postgresql
	VersionTag       string                 // Cache partition version tag
	ProductName      string                 // Notification title default
	MaxDrainAttempts int                    // Replay attempts before an item is buried
	APIPrefixes      []string               // Path prefixes classified as API traffic
	IdentityPaths    []string               // User/profile-scoped API paths (offline JSON fallback)
	ImageExtensions  []string               // URL suffixes classified as image traffic
	ImageHosts       []string               // Hosts classified as image traffic
	NetworkTimeout   time.Duration          // Per-request upstream timeout
}

// ConfigRawInput holds the raw inputs from flags/env/file that require
// parsing or validation. Viper unmarshals into this struct.
type ConfigRawInput struct {
	ListenAddr       string `mapstructure:"listen"`
	UpstreamURLStr   string `mapstructure:"upstream"`
	BackendStr       string `mapstructure:"store-backend"`
	DBConnect        string `mapstructure:"store-db-connect"`
	VersionTag       string `mapstructure:"version-tag"`
	ProductName      string `mapstructure:"product-name"`
	MaxDrainAttempts int    `mapstructure:"max-drain-attempts"`
	APIPrefixesStr   string `mapstructure:"api-prefixes"`
	IdentityPathsStr string `mapstructure:"identity-paths"`
	ImageExtsStr     string `mapstructure:"image-extensions"`
	ImageHostsStr    string `mapstructure:"image-hosts"`
	NetworkTimeout   string `mapstructure:"network-timeout"`
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// --- 1. Listen address ---
	if input.ListenAddr == "" {
		input.ListenAddr = DefaultListenAddr
	}
	if _, _, err := net.SplitHostPort(input.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", input.ListenAddr, err)
	}
	cfg.ListenAddr = input.ListenAddr

	// --- 2. Upstream URL ---
	if input.UpstreamURLStr == "" {
		input.UpstreamURLStr = DefaultUpstreamURL
	}
	u, err := url.Parse(input.UpstreamURLStr)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid upstream URL %q: must be an absolute http(s) URL", input.UpstreamURLStr)
	}
	cfg.UpstreamURL = u

	// --- 3. Store backend ---
	backend := schema.DatabaseBackend(strings.ToLower(input.BackendStr))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	switch backend {
	case schema.SQLiteBackend, schema.MySQLBackend, schema.PostgreSQLBackend, schema.NoneBackend:
	default:
		return fmt.Errorf("invalid store backend %q. must be sqlite, mysql, postgresql, or none", input.BackendStr)
	}
	if err := ValidateDatabaseConnectionString(backend, input.DBConnect); err != nil {
		return err
	}
	cfg.Backend = backend
	cfg.DBConnect = input.DBConnect

	// --- 4. Version tag ---
	tag := strings.TrimSpace(input.VersionTag)
	if tag == "" {
		tag = DefaultVersionTag
	}
	if strings.ContainsAny(tag, " \t/") {
		return fmt.Errorf("invalid version tag %q: must not contain whitespace or slashes", input.VersionTag)
	}
	cfg.VersionTag = tag

	// --- 5. Product name ---
	cfg.ProductName = input.ProductName
	if cfg.ProductName == "" {
		cfg.ProductName = schema.ProductName
	}

	// --- 6. Drain attempt bound ---
	attempts := input.MaxDrainAttempts
	if attempts == 0 {
		attempts = DefaultMaxDrainAttempts
	}
	if attempts < 1 || attempts > MaxDrainAttemptsCeiling {
		return fmt.Errorf("max-drain-attempts must be between 1 and %d (received %d)", MaxDrainAttemptsCeiling, input.MaxDrainAttempts)
	}
	cfg.MaxDrainAttempts = attempts

	// --- 7. Classification lists ---
	cfg.APIPrefixes = mergeCommaList(DefaultAPIPrefixes, input.APIPrefixesStr)
	cfg.IdentityPaths = mergeCommaList(DefaultIdentityPaths, input.IdentityPathsStr)
	cfg.ImageExtensions = mergeCommaList(DefaultImageExtensions, input.ImageExtsStr)
	cfg.ImageHosts = mergeCommaList(DefaultImageHosts, input.ImageHostsStr)

	// --- 8. Network timeout ---
	cfg.NetworkTimeout = DefaultNetworkTimeout
	if input.NetworkTimeout != "" {
		d, err := time.ParseDuration(input.NetworkTimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid network-timeout %q", input.NetworkTimeout)
		}
		cfg.NetworkTimeout = d
	}

	return nil
}

// ValidateDatabaseConnectionString checks that a connection string is
// present when the backend requires one.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.MySQLBackend, schema.PostgreSQLBackend:
		if strings.TrimSpace(connStr) == "" {
			return fmt.Errorf("backend %s requires a connection string (store-db-connect)", backend)
		}
	}
	return nil
}

// mergeCommaList appends the trimmed, non-empty elements of a
// comma-separated string to a copy of the defaults.
func mergeCommaList(defaults []string, extra string) []string {
	out := make([]string, len(defaults))
	copy(out, defaults)
	if extra == "" {
		return out
	}
	for p := range strings.SplitSeq(extra, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
