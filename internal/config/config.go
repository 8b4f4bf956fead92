// Package config provides configuration management for pagesmith using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// Configuration comes from .pagesmith.yml (or the file named by
// PAGESMITH_CONFIG_FILE / --config), from PAGESMITH_* environment variables
// and from an optional .env file. It covers the site layout, the tag and
// placeholder grammar, the external compilers, the preview server and the
// watcher. Loaded values are validated with ozzo-validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full pagesmith configuration.
type Config struct {
	Paths  PathsConfig  `mapstructure:"paths" yaml:"paths"`
	Syntax SyntaxConfig `mapstructure:"syntax" yaml:"syntax"`
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// PathsConfig locates the source tree, the output tree and the files the
// build reads and writes besides them.
type PathsConfig struct {
	Source       string `mapstructure:"source" yaml:"source"`
	Output       string `mapstructure:"output" yaml:"output"`
	Components   string `mapstructure:"components" yaml:"components"`
	SharedCode   string `mapstructure:"shared_code" yaml:"shared_code"`
	PageText     string `mapstructure:"page_text" yaml:"page_text"`
	PriorityList string `mapstructure:"priority_list" yaml:"priority_list"`
	StateFile    string `mapstructure:"state_file" yaml:"state_file"`
}

// SyntaxConfig is the tag grammar plus the root placeholder markers.
type SyntaxConfig struct {
	registry.Syntax `mapstructure:",squash" yaml:",inline"`
	RootPlaceholder string `mapstructure:"root_placeholder" yaml:"root_placeholder"`
	ScssImport      string `mapstructure:"scss_import" yaml:"scss_import"`
}

// BuildConfig controls expansion limits and the external compilers.
type BuildConfig struct {
	// MaxExpansions caps the component tags resolved per file. It counts
	// every tag, not nesting depth, so a page using many components needs
	// a limit above its tag count.
	MaxExpansions int      `mapstructure:"max_expansions" yaml:"max_expansions"`
	StyleCommand  string   `mapstructure:"style_command" yaml:"style_command"`
	StyleArgs     []string `mapstructure:"style_args" yaml:"style_args"`
	ScriptCommand string   `mapstructure:"script_command" yaml:"script_command"`
	ScriptArgs    []string `mapstructure:"script_args" yaml:"script_args"`
	Publish       bool     `mapstructure:"publish" yaml:"publish"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	syntax := registry.DefaultSyntax()

	v.SetDefault("paths.source", "edit-me")
	v.SetDefault("paths.output", "actual-website-do-not-edit")
	v.SetDefault("paths.components", filepath.Join("edit-me", "shared", "reusables"))
	v.SetDefault("paths.shared_code", filepath.Join("edit-me", "shared", "code"))
	v.SetDefault("paths.page_text", filepath.Join("edit-me", "shared", "page_text"))
	v.SetDefault("paths.priority_list", filepath.Join("edit-me", "shared", "reusables-compilation-order.txt"))
	v.SetDefault("paths.state_file", ".last_compiled")

	v.SetDefault("syntax.tag_start", syntax.TagStart)
	v.SetDefault("syntax.tag_end", syntax.TagEnd)
	v.SetDefault("syntax.param_start", syntax.ParamStart)
	v.SetDefault("syntax.param_end", syntax.ParamEnd)
	v.SetDefault("syntax.template_prefix", syntax.TemplatePrefix)
	v.SetDefault("syntax.none_prefix", syntax.NonePrefix)
	v.SetDefault("syntax.root_placeholder", "<root>")
	v.SetDefault("syntax.scss_import", "@use")

	v.SetDefault("build.max_expansions", 1000)
	v.SetDefault("build.style_command", "sass")
	v.SetDefault("build.style_args", []string{"{src}", "{dst}"})
	v.SetDefault("build.script_command", "tsc")
	v.SetDefault("build.script_args", []string{"--target", "es2015", "{src}", "--outFile", "{dst}"})
	v.SetDefault("build.publish", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("watch.ignore", []string{".git", "node_modules"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom decodes and validates the configuration held by v. Keys without
// a value fall back to the defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	// Defaults also register every key, which AutomaticEnv alone does not.
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the default configuration.
func Default() *Config {
	config, err := LoadFrom(viper.New())
	if err != nil {
		// Defaults always validate; failing here is a programming error.
		panic(err)
	}
	return config
}

// LoadDotEnv loads environment variables from the given .env files. Missing
// files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// ComponentsURL returns the components directory relative to the source
// root, slash-separated, as it appears in the output tree.
func (c *Config) ComponentsURL() string {
	rel, err := filepath.Rel(c.Paths.Source, c.Paths.Components)
	if err != nil {
		return filepath.ToSlash(c.Paths.Components)
	}
	return filepath.ToSlash(rel)
}

// Address returns the preview server listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
