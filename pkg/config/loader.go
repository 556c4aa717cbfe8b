package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "symfony-entrypoints.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".symfony-entrypoints"

// GlobalConfigDir is the name of the global config directory inside the
// user's config directory.
const GlobalConfigDir = "symfony-entrypoints"

// EnvPrefix prefixes environment variables that override config fields.
const EnvPrefix = "SYMFONY_ENTRYPOINTS_"

// Load loads configuration for the current working directory.
// CLI flags are applied separately after Load returns.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration starting from a specific directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := NewConfig()

	// Layer 2: global user config
	if path := GetGlobalConfigPath(); path != "" {
		global, err := loadConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(global)
	}

	// Layer 3: project config, searched upward
	project, projectDir, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	cfg.Merge(project)

	switch {
	case cfg.Root == "" && projectDir != "":
		cfg.Root = projectDir
	case cfg.Root == "":
		cfg.Root = dir
	case !filepath.IsAbs(cfg.Root) && projectDir != "":
		cfg.Root = filepath.Join(projectDir, cfg.Root)
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	// Layer 4: .env files and process environment
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	applyEnvironmentVariables(cfg)

	return cfg, nil
}

// loadProjectConfigFrom looks for a project config in dir and its parents,
// stopping at a workspace root. It returns the config and the project
// directory it belongs to.
func loadProjectConfigFrom(dir string) (*Config, string, error) {
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(path)
			if err != nil {
				return nil, "", err
			}
			if cfg != nil {
				cfg.Path = path
				return cfg, current, nil
			}
		}

		if isWorkspaceRoot(current) {
			break
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return nil, "", nil
}

// isWorkspaceRoot checks for a VCS or package manager marker in dir.
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", "composer.json", "package.json"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile decodes a TOML file. A missing file yields nil, nil.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", entrypoints.ErrIO, path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entrypoints.ErrConfiguration, path, err)
	}
	return &cfg, nil
}

// EnvFiles returns the dotenv files read for mode, lowest precedence first.
func EnvFiles(dir, mode string) []string {
	return []string{
		filepath.Join(dir, ".env"),
		filepath.Join(dir, ".env.local"),
		filepath.Join(dir, ".env."+mode),
		filepath.Join(dir, ".env."+mode+".local"),
	}
}

// EnvPaths returns the dotenv files consulted for the configured mode,
// whether or not they exist.
func (c *Config) EnvPaths() []string {
	dir := c.Root
	if c.EnvDir != "" {
		dir = c.abs(c.EnvDir)
	}
	return EnvFiles(dir, c.Mode)
}

// loadEnv merges .env files with the process environment, which wins.
func (c *Config) loadEnv() error {
	if mode := os.Getenv(EnvPrefix + "MODE"); mode != "" {
		c.Mode = mode
	}

	env := make(map[string]string)
	for _, path := range c.EnvPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", entrypoints.ErrConfiguration, path, err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	c.Env = env
	return nil
}

// applyEnvironmentVariables applies SYMFONY_ENTRYPOINTS_* values from the
// merged environment.
func applyEnvironmentVariables(cfg *Config) {
	get := func(key string) string { return cfg.Env[EnvPrefix+key] }

	if v := get("BASE"); v != "" {
		cfg.Base = v
	}
	if v := get("OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := get("SRI_ALGORITHM"); v != "" {
		cfg.SRIAlgorithm = v
	}
	if v := get("REPORTS"); v != "" {
		cfg.Reports = splitAndTrim(v)
	}
	if v := get("EXTERNAL"); v != "" {
		cfg.External = splitAndTrim(v)
	}
	if v := get("EXPOSED_ENV_VARS"); v != "" {
		cfg.ExposedEnvVars = splitAndTrim(v)
	}

	if v := get("SERVER_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := get("SERVER_ORIGIN"); v != "" {
		cfg.Server.Origin = v
	}
	if v := get("ORIGIN_OVERRIDE"); v != "" {
		cfg.Server.OriginOverride = v
	}
	if v := get("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	applyBoolEnv(get("SERVER_HTTPS"), &cfg.Server.HTTPS)
	if v := get("HMR_CLIENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.HMRClientPort = port
		}
	}
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv sets target from a boolean string; other values are ignored.
func applyBoolEnv(v string, target **bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		t := true
		*target = &t
	case "false", "0", "no":
		f := false
		*target = &f
	}
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given
// directory, in lookup order.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
