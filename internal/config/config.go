package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/projdock/internal/filelock"
)

// FileName is the config file name inside the home directory
const FileName = "config.yaml"

// SearchConfig controls the search service and the interactive picker
type SearchConfig struct {
	// Limit is the maximum number of results shown (0 = unlimited)
	Limit int `yaml:"limit"`

	// Debounce is the delay between the last keystroke and a search
	Debounce time.Duration `yaml:"debounce"`

	// Fuzzy enables subsequence matching when nothing else matches
	Fuzzy bool `yaml:"fuzzy"`
}

// DocumentsConfig controls the document scanner
type DocumentsConfig struct {
	// Extensions limits listed files, e.g. [".dwg", ".pdf"] (empty = all)
	Extensions []string `yaml:"extensions"`

	// ExcludeDirs are folder names skipped inside projects
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// MaxDepth bounds each walk (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`

	// IncludeOther lists files outside discipline and Revit folders
	IncludeOther bool `yaml:"include_other"`
}

// TelemetryConfig controls local usage events
type TelemetryConfig struct {
	// Enabled records usage events in the local database
	Enabled bool `yaml:"enabled"`

	// KeepDays is how long events are kept by "stats --purge" (0 = forever)
	KeepDays int `yaml:"keep_days"`
}

// Config represents projdock configuration options
type Config struct {
	// Roots are the project drive folders to scan
	Roots []string `yaml:"roots"`

	// ScanDepth is how many grouping folder levels are searched for projects
	ScanDepth int `yaml:"scan_depth"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is where projdock.log is written ("" = <home>/logs)
	LogDir string `yaml:"log_dir"`

	// DBPath is the SQLite database file ("" = <home>/projdock.db)
	DBPath string `yaml:"db_path"`

	Search    SearchConfig    `yaml:"search"`
	Documents DocumentsConfig `yaml:"documents"`

	// Disciplines maps a discipline name to the folder aliases that identify it
	Disciplines map[string][]string `yaml:"disciplines"`

	// RevitFolderNames are folder names treated as the Revit model folder
	RevitFolderNames []string `yaml:"revit_folder_names"`

	// CheatsheetDir holds markdown cheat sheets ("" = <home>/cheatsheets)
	CheatsheetDir string `yaml:"cheatsheet_dir"`

	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Roots:     []string{},
		ScanDepth: 2,
		LogLevel:  "info",
		Search: SearchConfig{
			Limit:    50,
			Debounce: 150 * time.Millisecond,
			Fuzzy:    true,
		},
		Documents: DocumentsConfig{
			Extensions:  []string{".dwg", ".pdf", ".rvt", ".docx", ".xlsx"},
			ExcludeDirs: []string{"Backup", "_backup", "Incoming", "Superseded"},
			MaxDepth:    0,
		},
		Disciplines: map[string][]string{
			"electrical": {"electrical", "elec"},
			"mechanical": {"mechanical", "mech", "hvac"},
			"plumbing":   {"plumbing", "plumb"},
		},
		RevitFolderNames: []string{"Revit File", "Revit Files", "Revit"},
		Telemetry: TelemetryConfig{
			Enabled:  true,
			KeepDays: 90,
		},
	}
}

// yamlSearch mirrors SearchConfig with the duration as text
type yamlSearch struct {
	Limit    int    `yaml:"limit"`
	Debounce string `yaml:"debounce"`
	Fuzzy    bool   `yaml:"fuzzy"`
}

type yamlConfig struct {
	Roots            []string            `yaml:"roots"`
	ScanDepth        int                 `yaml:"scan_depth"`
	LogLevel         string              `yaml:"log_level"`
	LogDir           string              `yaml:"log_dir,omitempty"`
	DBPath           string              `yaml:"db_path,omitempty"`
	Search           yamlSearch          `yaml:"search"`
	Documents        DocumentsConfig     `yaml:"documents"`
	Disciplines      map[string][]string `yaml:"disciplines"`
	RevitFolderNames []string            `yaml:"revit_folder_names"`
	CheatsheetDir    string              `yaml:"cheatsheet_dir,omitempty"`
	Telemetry        TelemetryConfig     `yaml:"telemetry"`
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	// Presence map so explicit false, zero and empty values override defaults
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if raw == nil {
		return cfg, nil
	}

	if has(raw, "roots") {
		cfg.Roots = nonNil(yamlCfg.Roots)
	}
	if has(raw, "scan_depth") {
		cfg.ScanDepth = yamlCfg.ScanDepth
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.LogLevel)
	}
	if has(raw, "log_dir") {
		cfg.LogDir = yamlCfg.LogDir
	}
	if has(raw, "db_path") {
		cfg.DBPath = yamlCfg.DBPath
	}
	if has(raw, "cheatsheet_dir") {
		cfg.CheatsheetDir = yamlCfg.CheatsheetDir
	}
	if has(raw, "revit_folder_names") {
		cfg.RevitFolderNames = nonNil(yamlCfg.RevitFolderNames)
	}

	if section := subsection(raw, "search"); section != nil {
		if has(section, "limit") {
			cfg.Search.Limit = yamlCfg.Search.Limit
		}
		if has(section, "fuzzy") {
			cfg.Search.Fuzzy = yamlCfg.Search.Fuzzy
		}
		if yamlCfg.Search.Debounce != "" {
			d, err := time.ParseDuration(yamlCfg.Search.Debounce)
			if err != nil {
				return nil, fmt.Errorf("invalid search.debounce %q: %w", yamlCfg.Search.Debounce, err)
			}
			cfg.Search.Debounce = d
		}
	}

	if section := subsection(raw, "documents"); section != nil {
		if has(section, "extensions") {
			cfg.Documents.Extensions = nonNil(yamlCfg.Documents.Extensions)
		}
		if has(section, "exclude_dirs") {
			cfg.Documents.ExcludeDirs = nonNil(yamlCfg.Documents.ExcludeDirs)
		}
		if has(section, "max_depth") {
			cfg.Documents.MaxDepth = yamlCfg.Documents.MaxDepth
		}
		if has(section, "include_other") {
			cfg.Documents.IncludeOther = yamlCfg.Documents.IncludeOther
		}
	}

	// Discipline entries replace the default alias list one discipline at a time
	for name, aliases := range yamlCfg.Disciplines {
		cfg.Disciplines[strings.ToLower(name)] = nonNil(aliases)
	}

	if section := subsection(raw, "telemetry"); section != nil {
		if has(section, "enabled") {
			cfg.Telemetry.Enabled = yamlCfg.Telemetry.Enabled
		}
		if has(section, "keep_days") {
			cfg.Telemetry.KeepDays = yamlCfg.Telemetry.KeepDays
		}
	}

	return cfg, nil
}

// LoadConfigFromHome loads <home>/config.yaml
func LoadConfigFromHome(home string) (*Config, error) {
	return LoadConfig(filepath.Join(home, FileName))
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	out := yamlConfig{
		Roots:     nonNil(c.Roots),
		ScanDepth: c.ScanDepth,
		LogLevel:  c.LogLevel,
		LogDir:    c.LogDir,
		DBPath:    c.DBPath,
		Search: yamlSearch{
			Limit:    c.Search.Limit,
			Debounce: c.Search.Debounce.String(),
			Fuzzy:    c.Search.Fuzzy,
		},
		Documents:        c.Documents,
		Disciplines:      c.Disciplines,
		RevitFolderNames: c.RevitFolderNames,
		CheatsheetDir:    c.CheatsheetDir,
		Telemetry:        c.Telemetry,
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration atomically, holding "<path>.lock"
func (c *Config) Save(ctx context.Context, path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := filelock.LockAndWrite(ctx, path, data); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// ResolvePaths fills empty path settings with locations under home and
// makes relative paths absolute against home
func (c *Config) ResolvePaths(home string) {
	c.LogDir = resolve(home, c.LogDir, "logs")
	c.DBPath = resolve(home, c.DBPath, "projdock.db")
	c.CheatsheetDir = resolve(home, c.CheatsheetDir, "cheatsheets")
}

func resolve(home, value, fallback string) string {
	if value == "" {
		return filepath.Join(home, fallback)
	}
	if value == ":memory:" || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(home, value)
}

// FlagOverrides carries CLI flag values; nil fields are left unchanged
type FlagOverrides struct {
	Roots     []string
	ScanDepth *int
	LogLevel  *string
	DBPath    *string
	Limit     *int
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f FlagOverrides) {
	if len(f.Roots) > 0 {
		c.Roots = f.Roots
	}
	if f.ScanDepth != nil {
		c.ScanDepth = *f.ScanDepth
	}
	if f.LogLevel != nil {
		c.LogLevel = strings.ToLower(*f.LogLevel)
	}
	if f.DBPath != nil {
		c.DBPath = *f.DBPath
	}
	if f.Limit != nil {
		c.Search.Limit = *f.Limit
	}
}

// KnownDisciplines are the accepted keys of the disciplines section
var KnownDisciplines = []string{"electrical", "mechanical", "plumbing"}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.ScanDepth < 0 {
		return fmt.Errorf("scan_depth must be >= 0, got %d", c.ScanDepth)
	}
	for i, root := range c.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("roots[%d] is empty", i)
		}
	}

	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must be >= 0, got %d", c.Search.Limit)
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search.debounce must be >= 0, got %v", c.Search.Debounce)
	}

	if c.Documents.MaxDepth < 0 {
		return fmt.Errorf("documents.max_depth must be >= 0, got %d", c.Documents.MaxDepth)
	}
	for _, ext := range c.Documents.Extensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			return fmt.Errorf("documents.extensions contains an empty extension")
		}
	}

	known := make(map[string]bool, len(KnownDisciplines))
	for _, d := range KnownDisciplines {
		known[d] = true
	}
	for name, aliases := range c.Disciplines {
		if !known[name] {
			return fmt.Errorf("unknown discipline %q, must be one of: %s", name, strings.Join(KnownDisciplines, ", "))
		}
		if len(aliases) == 0 {
			return fmt.Errorf("disciplines.%s needs at least one alias", name)
		}
	}

	if c.Telemetry.KeepDays < 0 {
		return fmt.Errorf("telemetry.keep_days must be >= 0, got %d", c.Telemetry.KeepDays)
	}

	return nil
}

func has(m map[string]interface{}, key string) bool {
	_, ok := m[key]
	return ok
}

func subsection(m map[string]interface{}, key string) map[string]interface{} {
	section, _ := m[key].(map[string]interface{})
	return section
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
