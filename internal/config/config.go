// Package config provides configuration management for curator.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (CURATOR_*)
// 3. Project config (.curator.yaml in cwd)
// 4. Home config (~/.curator/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all curator configuration.
type Config struct {
	// Output controls the default output format (table, json).
	Output string `yaml:"output" json:"output"`

	// CorpusRoot is the corpus directory (default: .claude).
	CorpusRoot string `yaml:"corpus_root" json:"corpus_root"`

	// CoreDir is the core-tier directory name under the corpus root.
	CoreDir string `yaml:"core_dir" json:"core_dir"`

	// LibraryDir is the library-tier directory name under the corpus root.
	LibraryDir string `yaml:"library_dir" json:"library_dir"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// Workers bounds the audit worker pool (0 = NumCPU).
	Workers int `yaml:"workers" json:"workers"`

	// Audit settings
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Gateways settings
	Gateways GatewayConfig `yaml:"gateways" json:"gateways"`
}

// AuditConfig holds per-phase audit settings.
type AuditConfig struct {
	// DescriptionMaxLen is the ceiling for frontmatter descriptions.
	DescriptionMaxLen int `yaml:"description_max_len" json:"description_max_len"`

	// KnownTools lists valid entries for the allowed-tools frontmatter key.
	KnownTools []string `yaml:"known_tools" json:"known_tools"`

	// KnownKeys lists recognized frontmatter keys. Keys outside this list
	// raise an unknown-key warning.
	KnownKeys []string `yaml:"known_keys" json:"known_keys"`
}

// GatewayConfig holds gateway synchronization settings.
type GatewayConfig struct {
	// CategoryMap maps a library path category prefix to the gateway that
	// should route to documents under it (e.g. "frontend" -> "gateway-frontend").
	CategoryMap map[string]string `yaml:"category_map" json:"category_map"`

	// ExemptPatterns lists gitignore-syntax patterns for library documents
	// that are allowed to have no gateway routing to them.
	ExemptPatterns []string `yaml:"exempt_patterns" json:"exempt_patterns"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput     = "table"
	defaultCorpusRoot = ".claude"
	defaultCoreDir    = "skills"
	defaultLibraryDir = "skill-library"
	defaultDescMaxLen = 500
)

// defaultKnownKeys are the frontmatter keys the loader understands.
var defaultKnownKeys = []string{
	"name", "description", "allowed-tools", "skills", "replaced-by",
}

// defaultKnownTools is the tool vocabulary accepted in allowed-tools.
var defaultKnownTools = []string{
	"Read", "Write", "Edit", "Bash", "Glob", "Grep", "WebFetch", "WebSearch", "Task",
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:     defaultOutput,
		CorpusRoot: defaultCorpusRoot,
		CoreDir:    defaultCoreDir,
		LibraryDir: defaultLibraryDir,
		Verbose:    false,
		Workers:    0,
		Audit: AuditConfig{
			DescriptionMaxLen: defaultDescMaxLen,
			KnownTools:        append([]string(nil), defaultKnownTools...),
			KnownKeys:         append([]string(nil), defaultKnownKeys...),
		},
		Gateways: GatewayConfig{
			CategoryMap:    map[string]string{},
			ExemptPatterns: nil,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".curator", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("CURATOR_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".curator.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("CURATOR_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("CURATOR_CORPUS_ROOT"); v != "" {
		cfg.CorpusRoot = v
	}
	if os.Getenv("CURATOR_VERBOSE") == "true" || os.Getenv("CURATOR_VERBOSE") == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("CURATOR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.CorpusRoot, src.CorpusRoot)
	mergeStr(&dst.CoreDir, src.CoreDir)
	mergeStr(&dst.LibraryDir, src.LibraryDir)
	mergeInt(&dst.Workers, src.Workers)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeInt(&dst.Audit.DescriptionMaxLen, src.Audit.DescriptionMaxLen)
	if len(src.Audit.KnownTools) > 0 {
		dst.Audit.KnownTools = src.Audit.KnownTools
	}
	if len(src.Audit.KnownKeys) > 0 {
		dst.Audit.KnownKeys = src.Audit.KnownKeys
	}

	if len(src.Gateways.CategoryMap) > 0 {
		dst.Gateways.CategoryMap = src.Gateways.CategoryMap
	}
	if len(src.Gateways.ExemptPatterns) > 0 {
		dst.Gateways.ExemptPatterns = src.Gateways.ExemptPatterns
	}

	return dst
}
