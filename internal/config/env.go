// Package config loads environment configuration for the server.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from a .env file.
//
// Search order (stops at the first file found):
//  1. Explicit paths passed as arguments (test use).
//  2. Directory of the running executable, walking up to 3 levels.
//  3. Current working directory — fallback for `go run ./cmd/toolbridge`.
//
// If no .env is found anywhere, the process continues with system env vars.
func LoadEnv(paths ...string) {
	if len(paths) > 0 {
		if err := godotenv.Load(paths...); err != nil {
			log.Printf("[Config] No .env file at specified path(s), using system environment variables")
		}
		return
	}

	candidates := resolveEnvCandidates()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				log.Printf("[Config] Failed to load .env from %s: %v", p, err)
			} else {
				log.Printf("[Config] Loaded .env from %s", p)
			}
			return
		}
	}

	log.Printf("[Config] No .env file found (searched: %v), using system environment variables", candidates)
}

// resolveEnvCandidates returns the ordered list of .env paths to probe.
func resolveEnvCandidates() []string {
	var candidates []string
	seen := map[string]bool{}

	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}

	if exe, err := os.Executable(); err == nil {
		if real, err := filepath.EvalSymlinks(exe); err == nil {
			exe = real
		}
		dir := filepath.Dir(exe)
		for i := 0; i <= 3; i++ {
			add(filepath.Join(dir, ".env"))
			parent := filepath.Dir(dir)
			if parent == dir {
				break // reached filesystem root
			}
			dir = parent
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		add(filepath.Join(cwd, ".env"))
	}

	return candidates
}

// Config is the typed view of the server's environment.
type Config struct {
	// Provider keys. A key that is empty or a placeholder leaves the
	// provider disabled.
	GeminiAPIKey     string
	OpenAIAPIKey     string
	XAIAPIKey        string
	DIALAPIKey       string
	OpenRouterAPIKey string

	// Custom OpenAI-compatible endpoint. Empty key is permitted (local
	// inference servers frequently need none).
	CustomAPIURL    string
	CustomAPIKey    string
	CustomModelName string

	DefaultModel  string   // "auto" or a concrete model id
	DisabledTools []string // tool names hidden from the catalogue
	LogLevel      string

	// HTTP transport shell.
	MCPAuthToken   string
	MCPRequireAuth bool
	MCPHost        string
	MCPPort        int

	// Per-provider model allow-lists (empty = all models allowed).
	AllowedModels map[string][]string

	ModelsConfigPath string // optional models.yaml capability overrides
	HTTPTimeoutSecs  int    // provider wall-clock timeout

	// TokenOptimized advertises the two-stage optimizer surface
	// (select_mode / execute_mode plus thin legacy stubs) instead of
	// every tool's full schema.
	TokenOptimized bool
}

// providersWithAllowLists enumerates the providers whose
// <PROVIDER>_ALLOWED_MODELS variable is honoured.
var providersWithAllowLists = []string{"GEMINI", "OPENAI", "XAI", "DIAL", "OPENROUTER", "CUSTOM"}

// FromEnv builds a Config from the current environment.
func FromEnv() *Config {
	cfg := &Config{
		GeminiAPIKey:     apiKey("GEMINI_API_KEY"),
		OpenAIAPIKey:     apiKey("OPENAI_API_KEY"),
		XAIAPIKey:        apiKey("XAI_API_KEY"),
		DIALAPIKey:       apiKey("DIAL_API_KEY"),
		OpenRouterAPIKey: apiKey("OPENROUTER_API_KEY"),
		CustomAPIURL:     strings.TrimSpace(os.Getenv("CUSTOM_API_URL")),
		CustomAPIKey:     strings.TrimSpace(os.Getenv("CUSTOM_API_KEY")),
		CustomModelName:  getEnvOrDefault("CUSTOM_MODEL_NAME", "llama3.2"),
		DefaultModel:     getEnvOrDefault("DEFAULT_MODEL", "auto"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "INFO"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
		MCPRequireAuth:   os.Getenv("MCP_REQUIRE_AUTH") == "true",
		MCPHost:          getEnvOrDefault("MCP_HOST", "127.0.0.1"),
		MCPPort:          getEnvIntOrDefault("MCP_PORT", 8080),
		ModelsConfigPath: os.Getenv("MODELS_CONFIG_PATH"),
		HTTPTimeoutSecs:  getEnvIntOrDefault("LLM_HTTP_TIMEOUT", 300),
		TokenOptimized:   os.Getenv("MCP_TOKEN_OPTIMIZED") == "true",
		AllowedModels:    map[string][]string{},
	}

	if v := os.Getenv("DISABLED_TOOLS"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.DisabledTools = append(cfg.DisabledTools, name)
			}
		}
	}

	for _, p := range providersWithAllowLists {
		if v := os.Getenv(p + "_ALLOWED_MODELS"); v != "" {
			var models []string
			for _, m := range strings.Split(v, ",") {
				if m = strings.TrimSpace(m); m != "" {
					models = append(models, strings.ToLower(m))
				}
			}
			cfg.AllowedModels[strings.ToLower(p)] = models
		}
	}

	return cfg
}

// apiKey reads an API key env var, treating documentation placeholders
// ("your-api-key-here" and friends) as unset.
func apiKey(name string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return ""
	}
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "your_") || strings.HasPrefix(lower, "your-") || lower == "changeme" {
		return ""
	}
	return v
}

// DebugEnabled reports whether LOG_LEVEL requests debug output.
func (c *Config) DebugEnabled() bool {
	return strings.EqualFold(c.LogLevel, "DEBUG")
}

// Debugf logs only when LOG_LEVEL=DEBUG.
func (c *Config) Debugf(format string, args ...any) {
	if c.DebugEnabled() {
		log.Printf(format, args...)
	}
}

// ListenAddr returns the HTTP shell's host:port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.MCPHost, c.MCPPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
		log.Printf("[Config] WARNING: invalid value for %s=%q, using default %d", key, v, defaultValue)
	}
	return defaultValue
}
