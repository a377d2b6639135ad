package agent

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable per-session runtime configuration.
type Config struct {
	WorkspaceRoot      string
	StateDir           string
	APIKey             string
	Provider           string
	Model              string
	BaseURL            string
	MaxIterations      int
	ToolTimeout        time.Duration
	MaxToolOutputChars int
	MaxScanFiles       int
	AutoRepairRounds   int
	AutoVerify         bool
}

// Overrides are explicit settings, typically CLI flags, that win over the
// config file and the environment. Zero values mean "not set".
type Overrides struct {
	APIKey        string
	Provider      string
	Model         string
	BaseURL       string
	StateDir      string
	MaxIterations int
}

// fileConfig is the optional <stateDir>/config.yaml shape.
type fileConfig struct {
	Provider           string `yaml:"provider"`
	Model              string `yaml:"model"`
	BaseURL            string `yaml:"baseUrl"`
	MaxIterations      *int   `yaml:"maxIterations"`
	ToolTimeoutMs      *int   `yaml:"toolTimeoutMs"`
	MaxToolOutputChars *int   `yaml:"maxToolOutputChars"`
	MaxScanFiles       *int   `yaml:"maxScanFiles"`
	AutoRepairRounds   *int   `yaml:"autoRepairRounds"`
	AutoVerify         *bool  `yaml:"autoVerify"`
}

// LoadConfig builds the session configuration for workspaceRoot. Sources
// in ascending precedence: built-in defaults, <stateDir>/config.yaml, the
// environment, explicit overrides. Invalid numeric values are ignored and
// the lower-precedence value stands.
func LoadConfig(workspaceRoot string, overrides Overrides) Config {
	cfg := Config{
		WorkspaceRoot:      workspaceRoot,
		MaxIterations:      6,
		ToolTimeout:        120 * time.Second,
		MaxToolOutputChars: 18000,
		MaxScanFiles:       6000,
		AutoRepairRounds:   3,
		AutoVerify:         true,
	}

	cfg.StateDir = filepath.Join(workspaceRoot, ".vibe-agent")
	if v := os.Getenv("VIBE_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if overrides.StateDir != "" {
		cfg.StateDir = overrides.StateDir
	}

	applyFileConfig(&cfg)
	applyEnvConfig(&cfg)

	if overrides.APIKey != "" {
		cfg.APIKey = overrides.APIKey
	}
	if overrides.Provider != "" {
		cfg.Provider = overrides.Provider
	}
	if overrides.Model != "" {
		cfg.Model = overrides.Model
	}
	if overrides.BaseURL != "" {
		cfg.BaseURL = overrides.BaseURL
	}
	if overrides.MaxIterations > 0 {
		cfg.MaxIterations = overrides.MaxIterations
	}
	return cfg
}

func applyFileConfig(cfg *Config) {
	data, err := os.ReadFile(filepath.Join(cfg.StateDir, "config.yaml"))
	if err != nil {
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return
	}
	if fc.Provider != "" {
		cfg.Provider = fc.Provider
	}
	if fc.Model != "" {
		cfg.Model = fc.Model
	}
	if fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if fc.MaxIterations != nil && *fc.MaxIterations > 0 {
		cfg.MaxIterations = *fc.MaxIterations
	}
	if fc.ToolTimeoutMs != nil && *fc.ToolTimeoutMs > 0 {
		cfg.ToolTimeout = time.Duration(*fc.ToolTimeoutMs) * time.Millisecond
	}
	if fc.MaxToolOutputChars != nil && *fc.MaxToolOutputChars > 0 {
		cfg.MaxToolOutputChars = *fc.MaxToolOutputChars
	}
	if fc.MaxScanFiles != nil && *fc.MaxScanFiles > 0 {
		cfg.MaxScanFiles = *fc.MaxScanFiles
	}
	if fc.AutoRepairRounds != nil && *fc.AutoRepairRounds > 0 {
		cfg.AutoRepairRounds = *fc.AutoRepairRounds
	}
	if fc.AutoVerify != nil {
		cfg.AutoVerify = *fc.AutoVerify
	}
}

func applyEnvConfig(cfg *Config) {
	if v := firstEnv("VIBE_API_KEY", "GROQ_API_KEY", "OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("VIBE_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := firstEnv("VIBE_MODEL", "GROQ_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := firstEnv("VIBE_BASE_URL", "GROQ_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if n, ok := envInt("VIBE_MAX_ITERATIONS"); ok {
		cfg.MaxIterations = n
	}
	if n, ok := envInt("VIBE_TOOL_TIMEOUT_MS"); ok {
		cfg.ToolTimeout = time.Duration(n) * time.Millisecond
	}
	if n, ok := envInt("VIBE_MAX_TOOL_OUTPUT_CHARS"); ok {
		cfg.MaxToolOutputChars = n
	}
	if n, ok := envInt("VIBE_MAX_SCAN_FILES"); ok {
		cfg.MaxScanFiles = n
	}
	if n, ok := envInt("VIBE_AUTO_REPAIR_ROUNDS"); ok {
		cfg.AutoRepairRounds = n
	}
	if v := os.Getenv("VIBE_AUTO_VERIFY"); v != "" {
		cfg.AutoVerify = !strings.EqualFold(v, "false") && v != "0"
	}
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// envInt parses a positive integer; anything else counts as unset.
func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
