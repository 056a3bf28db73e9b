package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches default locations.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// This is useful when the caller needs to know the actual config file location.
func LoadWithPath(configPath string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, getenv)
	if err != nil {
		return nil, "", err
	}

	// Get absolute path and directory for resolving relative paths
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Dir(absPath), getenv)
	if err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Parse decodes configuration data onto the defaults, resolving relative
// paths against baseDir, and validates it.
func Parse(data []byte, baseDir string, getenv func(string) string) (*Config, error) {
	// Interpolate environment variables
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	// Resolve relative data root
	if cfg.Data.Root != "" && !filepath.IsAbs(cfg.Data.Root) {
		cfg.Data.Root = filepath.Join(baseDir, cfg.Data.Root)
	}

	// Resolve relative sqlite databases
	for i := range cfg.Editors {
		sq := &cfg.Editors[i].SQL
		if isSQLite(sq.Driver) && isRelativeFile(sq.DSN) {
			sq.DSN = filepath.Join(baseDir, sq.DSN)
		}
	}

	if err := validateBasic(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isSQLite(driver string) bool {
	d := strings.ToLower(driver)
	return d == "sqlite" || d == "sqlite3"
}

func isRelativeFile(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") && !filepath.IsAbs(dsn)
}

// Validate checks the configuration after CLI overrides have been applied.
func Validate(cfg *Config) error {
	return validateBasic(cfg)
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
// These are problems that won't prevent the server from starting but likely indicate
// a misconfiguration.
func Warnings(cfg *Config) []string {
	var warnings []string

	if len(cfg.Editors) == 0 {
		warnings = append(warnings, "no editors configured - every view will be empty")
	}

	if info, err := os.Stat(cfg.Data.Root); err != nil || !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("data root %s is not a directory - file sources will fail to load", cfg.Data.Root))
	}

	if cfg.Data.Watch && cfg.Data.BaseURL != "" {
		warnings = append(warnings, "data.watch has no effect when documents come from data.base_url")
	}

	if cfg.CORS.Credentials && slices.Contains(cfg.CORS.Origins, "*") {
		warnings = append(warnings, "cors.credentials with origin \"*\" reflects every origin - list the allowed origins instead")
	}

	// Searchable keys should name configured columns
	if len(cfg.Table.Columns) > 0 && !(len(cfg.Table.Searchable) == 1 && cfg.Table.Searchable[0] == "all") {
		known := make(map[string]bool)
		for _, c := range cfg.Table.Columns {
			known[c.Key] = true
			if c.Name != "" {
				known[c.Name] = true
			}
		}
		for _, k := range cfg.Table.Searchable {
			if !known[k] {
				warnings = append(warnings, fmt.Sprintf("table.searchable: %q is not a configured column", k))
			}
		}
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > TABULA_CONFIG env > ./tabula.yaml > ~/.config/tabula/tabula.yaml
func resolveConfigPath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	// Try TABULA_CONFIG environment variable
	if envPath := getenv("TABULA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("TABULA_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	// Try ./tabula.yaml
	if _, err := os.Stat("tabula.yaml"); err == nil {
		return "tabula.yaml", nil
	}

	// Try ~/.config/tabula/tabula.yaml
	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".config", "tabula", "tabula.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no config file found (tried TABULA_CONFIG, tabula.yaml, ~/.config/tabula/tabula.yaml)")
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}

// validateBasic checks the configuration for errors.
func validateBasic(cfg *Config) error {
	var errs []string

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	validCompression := map[string]bool{"fastest": true, "default": true, "best": true, "none": true}
	if cfg.Compression.Enabled && !validCompression[cfg.Compression.Level] {
		errs = append(errs, fmt.Sprintf("invalid compression level: %s (must be fastest, default, best, or none)", cfg.Compression.Level))
	}

	if !strings.HasPrefix(cfg.Data.FileEndpoint, "/") {
		errs = append(errs, fmt.Sprintf("invalid data.file_endpoint: %q (must start with /)", cfg.Data.FileEndpoint))
	}

	// Locale and time zone
	if _, err := language.Parse(cfg.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("invalid locale: %s", cfg.Locale))
	}
	loc, err := cfg.Location()
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone: %s", cfg.Timezone))
		loc = time.UTC
	}

	// Editors validation
	for i := range cfg.Editors {
		if err := cfg.Editors[i].Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("editors[%d]: %v", i, err))
		}
	}

	// Table validation
	if cfg.Table.MaxResultsPerPage < 0 {
		errs = append(errs, fmt.Sprintf("table.max_results_per_page: %d must not be negative", cfg.Table.MaxResultsPerPage))
	}
	seen := make(map[string]bool)
	for i, spec := range cfg.Table.Columns {
		if spec.Key == "" {
			errs = append(errs, fmt.Sprintf("table.columns[%d]: key is required", i))
			continue
		}
		if seen[spec.Key] {
			errs = append(errs, fmt.Sprintf("table.columns[%d]: duplicate key %q", i, spec.Key))
		}
		seen[spec.Key] = true
		if _, err := spec.Column(loc, cfg.Locale); err != nil {
			errs = append(errs, fmt.Sprintf("table.columns[%d] (%s): %v", i, spec.Key, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
