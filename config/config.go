package config

import (
	"time"

	"github.com/sambeau/tabula/pkg/loader"
)

// Config represents the complete tabula configuration
type Config struct {
	BaseDir     string            `yaml:"-"` // Directory containing config file, for resolving relative paths
	Server      ServerConfig      `yaml:"server"`
	Compression CompressionConfig `yaml:"compression"`
	CORS        CORSConfig        `yaml:"cors"`
	Logging     LoggingConfig     `yaml:"logging"`
	Data        DataConfig        `yaml:"data"`
	Locale      string            `yaml:"locale"`   // BCP 47 tag for dates and numbers (default: "en-US")
	Timezone    string            `yaml:"timezone"` // IANA zone for parsed dates (default: "UTC")
	Editors     []loader.Editor   `yaml:"editors"`
	Table       TableConfig       `yaml:"table"`
}

// ServerConfig holds server settings
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Dev             bool          `yaml:"-"` // Set via CLI flag, not config
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CompressionConfig holds HTTP response compression settings
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`  // Enable gzip compression (default: true)
	Level   string `yaml:"level"`    // Compression level: "fastest", "default", "best", "none" (default: "default")
	MinSize int    `yaml:"min_size"` // Minimum response size to compress in bytes (default: 1024)
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	Origins     StringOrSlice `yaml:"origins"` // "*" allows any origin; empty disables CORS
	Methods     []string      `yaml:"methods"` // preflight methods (default: GET, POST)
	Headers     []string      `yaml:"headers"` // preflight headers; empty echoes the request's
	Credentials bool          `yaml:"credentials"`
	MaxAge      int           `yaml:"max_age"` // preflight cache seconds
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
	Output string `yaml:"output"` // stderr, stdout, or file path
	Quiet  bool   `yaml:"quiet"`  // suppress request logs
}

// DataConfig holds where documents are read from
type DataConfig struct {
	Root         string        `yaml:"root"`          // Directory file sources are resolved in (default: ".")
	FileEndpoint string        `yaml:"file_endpoint"` // URL the loader posts file requests to
	DraftDir     string        `yaml:"draft_dir"`     // Draft directory, relative to root
	BaseURL      string        `yaml:"base_url"`      // Remote server for file requests; empty reads root directly
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	Watch        bool          `yaml:"watch"` // Reload documents when their files change
}

// TableConfig holds the table view settings
type TableConfig struct {
	Paginate          bool          `yaml:"paginate"`
	MaxResultsPerPage int           `yaml:"max_results_per_page"`
	Searchable        StringOrSlice `yaml:"searchable"` // column keys, or "all"
	ColumnOrder       []string      `yaml:"column_order"`
	NoDataNote        string        `yaml:"no_data_note"`
	ShowCheckboxes    bool          `yaml:"show_checkboxes"`
	Columns           []ColumnSpec  `yaml:"columns"`
}

// StringOrSlice supports YAML fields that can be either a string or a slice of strings
type StringOrSlice []string

// UnmarshalYAML implements yaml.Unmarshaler to handle both string and []string
func (s *StringOrSlice) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}

	var slice []string
	if err := unmarshal(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Data: DataConfig{
			Root:         ".",
			FileEndpoint: loader.DefaultFileEndpoint,
			DraftDir:     loader.DefaultDraftDir,
			FetchTimeout: 30 * time.Second,
		},
		Locale:   "en-US",
		Timezone: "UTC",
		Table: TableConfig{
			Paginate:          true,
			MaxResultsPerPage: 25,
			Searchable:        StringOrSlice{"all"},
		},
	}
}
