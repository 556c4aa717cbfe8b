// Package config loads symfony-entrypoints settings. Layers, lowest first:
//  1. Built-in defaults
//  2. Global user config (~/.config/symfony-entrypoints/config.toml)
//  3. Project config (.symfony-entrypoints/config.toml or symfony-entrypoints.toml)
//  4. .env files and the process environment (SYMFONY_ENTRYPOINTS_*)
//  5. CLI flags
package config

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/lhapaipai/vite-plugin-symfony/pkg/entrypoints"
	"github.com/lhapaipai/vite-plugin-symfony/pkg/util"
)

// Config is the resolved configuration of one project.
type Config struct {
	// Root is the project root entry paths are relative to. Relative values
	// are resolved against the directory holding the project config.
	Root string `toml:"root"`

	// Base is the public URL prefix of emitted files.
	Base string `toml:"base"`

	// OutDir is the bundler output directory. Defaults to "public/<base>".
	OutDir string `toml:"out_dir"`

	// Input declares the entrypoints as a table of name = "path". It is kept
	// undecoded so that malformed shapes are reported with context.
	Input any `toml:"input"`

	// Reports lists the bundle reports of one build, one per output target.
	Reports []string `toml:"reports"`

	Mode           string   `toml:"mode"`
	EnvDir         string   `toml:"env_dir"`
	SRIAlgorithm   string   `toml:"sri_algorithm"`
	External       []string `toml:"external"`
	ExposedEnvVars []string `toml:"exposed_env_vars"`

	Server ServerConfig `toml:"server"`

	// Env is the merged view of .env files and the process environment.
	Env map[string]string `toml:"-"`

	// Path is the project config file that was loaded, if any.
	Path string `toml:"-"`
}

// ServerConfig holds dev-server settings.
type ServerConfig struct {
	Listen         string `toml:"listen"`
	Origin         string `toml:"origin"`
	OriginOverride string `toml:"origin_override"`
	Host           string `toml:"host"`
	Hostname       string `toml:"hostname"`
	HTTPS          *bool  `toml:"https"`
	HMRProtocol    string `toml:"hmr_protocol"`
	HMRHost        string `toml:"hmr_host"`
	HMRClientPort  int    `toml:"hmr_client_port"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Base:           "/build/",
		Mode:           "production",
		ExposedEnvVars: []string{"APP_ENV"},
		Server: ServerConfig{
			Listen: "127.0.0.1:5173",
		},
		Env: map[string]string{},
	}
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Root != "" {
		c.Root = other.Root
	}
	if other.Base != "" {
		c.Base = other.Base
	}
	if other.OutDir != "" {
		c.OutDir = other.OutDir
	}
	if other.Input != nil {
		c.Input = other.Input
	}
	if len(other.Reports) > 0 {
		c.Reports = other.Reports
	}
	if other.Mode != "" {
		c.Mode = other.Mode
	}
	if other.EnvDir != "" {
		c.EnvDir = other.EnvDir
	}
	if other.SRIAlgorithm != "" {
		c.SRIAlgorithm = other.SRIAlgorithm
	}
	if len(other.External) > 0 {
		c.External = append(c.External, other.External...)
	}
	if other.ExposedEnvVars != nil {
		c.ExposedEnvVars = other.ExposedEnvVars
	}
	if other.Path != "" {
		c.Path = other.Path
	}

	c.Server.merge(other.Server)
}

func (s *ServerConfig) merge(other ServerConfig) {
	if other.Listen != "" {
		s.Listen = other.Listen
	}
	if other.Origin != "" {
		s.Origin = other.Origin
	}
	if other.OriginOverride != "" {
		s.OriginOverride = other.OriginOverride
	}
	if other.Host != "" {
		s.Host = other.Host
	}
	if other.Hostname != "" {
		s.Hostname = other.Hostname
	}
	if other.HTTPS != nil {
		s.HTTPS = other.HTTPS
	}
	if other.HMRProtocol != "" {
		s.HMRProtocol = other.HMRProtocol
	}
	if other.HMRHost != "" {
		s.HMRHost = other.HMRHost
	}
	if other.HMRClientPort != 0 {
		s.HMRClientPort = other.HMRClientPort
	}
}

// Catalog parses the declared entrypoints.
func (c *Config) Catalog() (*entrypoints.Catalog, error) {
	return entrypoints.ParseInputs(c.Root, c.Input)
}

// SRI returns the integrity algorithm; unsupported names disable hashing.
func (c *Config) SRI() entrypoints.HashAlgorithm {
	return entrypoints.ParseHashAlgorithm(c.SRIAlgorithm)
}

// ExternalFunc compiles the external import patterns.
func (c *Config) ExternalFunc() (entrypoints.ExternalFunc, error) {
	return entrypoints.MatchExternal(c.External)
}

// ServerOptions converts the dev-server settings.
func (c *Config) ServerOptions() entrypoints.ServerOptions {
	return entrypoints.ServerOptions{
		OriginOverride: c.Server.OriginOverride,
		Origin:         c.Server.Origin,
		HTTPS:          c.Server.HTTPS != nil && *c.Server.HTTPS,
		Host:           c.Server.Host,
		Hostname:       c.Server.Hostname,
		HMRProtocol:    c.Server.HMRProtocol,
		HMRHost:        c.Server.HMRHost,
		HMRClientPort:  c.Server.HMRClientPort,
	}
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string {
	dir := c.OutDir
	if dir == "" {
		dir = filepath.Join("public", filepath.FromSlash(strings.Trim(c.Base, "/")))
	}
	return c.abs(dir)
}

// ManifestPath returns where the entrypoints manifest is written.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.OutputDir(), filepath.FromSlash(entrypoints.ManifestFileName))
}

// ReportPaths returns the configured reports as absolute paths.
func (c *Config) ReportPaths() []string {
	out := make([]string, len(c.Reports))
	for i, r := range c.Reports {
		out[i] = c.abs(r)
	}
	return out
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// Defines returns the bundler define table for the exposed environment
// variables: import.meta.env.KEY mapped to a JSON string literal. Variables
// that are not set are omitted.
func (c *Config) Defines() map[string]string {
	defines := make(map[string]string, len(c.ExposedEnvVars))
	for _, key := range c.ExposedEnvVars {
		v, ok := c.Env[key]
		if !ok {
			continue
		}
		lit, _ := json.Marshal(v)
		defines["import.meta.env."+key] = string(lit)
	}
	return defines
}

// DefineKeys returns the define keys in sorted order.
func (c *Config) DefineKeys() []string {
	return util.SortedKeys(c.Defines())
}
