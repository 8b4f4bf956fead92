package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	secvalidation "github.com/conneroisu/pagesmith/internal/validation"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func init() {
	// Report field names as they are spelled in the config file.
	validation.ErrorTag = "mapstructure"
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Paths.Validate(); err != nil {
		return fmt.Errorf("paths: %w", err)
	}
	if err := c.Syntax.Validate(); err != nil {
		return fmt.Errorf("syntax: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.Required),
		validation.Field(&c.Output, validation.Required, validation.By(distinctFrom(c.Source))),
		validation.Field(&c.Components, validation.Required, validation.By(within(c.Source))),
		validation.Field(&c.SharedCode, validation.Required),
		validation.Field(&c.PageText, validation.Required),
		validation.Field(&c.PriorityList, validation.Required),
		validation.Field(&c.StateFile, validation.Required),
	)
}

// Validate validates the syntax configuration.
func (c *SyntaxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TagStart, validation.Required),
		validation.Field(&c.TagEnd, validation.Required),
		validation.Field(&c.ParamStart, validation.Required),
		validation.Field(&c.ParamEnd, validation.Required),
		validation.Field(&c.TemplatePrefix, validation.Required),
		validation.Field(&c.NonePrefix, validation.Required),
		validation.Field(&c.RootPlaceholder, validation.Required),
		validation.Field(&c.ScssImport, validation.Required),
	)
}

// Validate validates the build configuration.
func (c *BuildConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxExpansions, validation.Required, validation.Min(1)),
		validation.Field(&c.StyleCommand, validation.Required, validation.By(allowedInvocation(c.StyleArgs))),
		validation.Field(&c.ScriptCommand, validation.Required, validation.By(allowedInvocation(c.ScriptArgs))),
	)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	if c.Debounce < 0 {
		return errors.New("debounce: must not be negative")
	}
	return nil
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	// Normalise so that "INFO" and "info" are treated alike.
	c.Level = strings.ToLower(c.Level)
	c.Format = strings.ToLower(c.Format)
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "warning", "error", "fatal")),
		validation.Field(&c.Format, validation.In("text", "json")),
	)
}

func distinctFrom(source string) validation.RuleFunc {
	return func(value interface{}) error {
		output, _ := value.(string)
		if filepath.Clean(output) == filepath.Clean(source) {
			return errors.New("must differ from the source directory")
		}
		return nil
	}
}

func within(source string) validation.RuleFunc {
	return func(value interface{}) error {
		dir, _ := value.(string)
		rel, err := filepath.Rel(filepath.Clean(source), filepath.Clean(dir))
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("must be inside the source directory %q", source)
		}
		return nil
	}
}

func allowedInvocation(args []string) validation.RuleFunc {
	return func(value interface{}) error {
		command, _ := value.(string)
		if command == "" {
			return nil
		}
		return secvalidation.ValidateCompiler(command, args, secvalidation.Compilers)
	}
}
