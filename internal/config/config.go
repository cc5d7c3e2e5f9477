// Package config loads parsley settings from .parsley.yaml, PARSLEY_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	LSP       LSPConfig       `mapstructure:"lsp"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig configures `parsley serve`.
type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	Metrics bool   `mapstructure:"metrics"`
}

// HighlightConfig configures terminal highlighting. Theme maps capture
// labels to color names; labels may be nested in YAML (string: {escape: cyan})
// or written dotted.
type HighlightConfig struct {
	Theme        map[string]any `mapstructure:"theme"`
	CommentLabel string         `mapstructure:"comment_label"`
}

// LSPConfig configures `parsley lsp`.
type LSPConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

// TracingConfig configures OTLP span export for `parsley serve` and
// `parsley mcp`. An empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Default values.
const (
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultServerAddr   = "localhost:8080"
	DefaultCommentLabel = "comment"
	DefaultLSPVerbosity = 1
	DefaultSampleRatio  = 1.0
)

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Log:       LogConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Server:    ServerConfig{Addr: DefaultServerAddr, Metrics: true},
		Highlight: HighlightConfig{CommentLabel: DefaultCommentLabel},
		LSP:       LSPConfig{Verbosity: DefaultLSPVerbosity},
		Tracing:   TracingConfig{SampleRatio: DefaultSampleRatio},
	}
}

// DefaultTheme is the terminal palette used for labels the configured
// theme does not set.
var DefaultTheme = map[string]string{
	"keyword":             "magenta",
	"operator":            "white",
	"function":            "blue",
	"variable.parameter":  "yellow",
	"variable.builtin":    "red",
	"property":            "cyan",
	"namespace":           "cyan",
	"number":              "yellow",
	"boolean":             "yellow",
	"constant":            "yellow",
	"constant.builtin":    "red",
	"string":              "green",
	"string.escape":       "cyan",
	"string.regex":        "red",
	"string.special":      "green",
	"punctuation.special": "magenta",
	"comment":             "hiblack",
	"tag":                 "blue",
	"tag.delimiter":       "hiblack",
	"attribute":           "cyan",
}

// ColorNames are the accepted theme colors.
var ColorNames = []string{
	"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
	"hiblack", "hired", "higreen", "hiyellow", "hiblue", "himagenta", "hicyan", "hiwhite",
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidLogLevel indicates log.level is not a slog level name.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates log.format is neither text nor json.
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
	// ErrInvalidAddr indicates server.addr is not host:port.
	ErrInvalidAddr = errors.New("server.addr must be host:port")
	// ErrInvalidColor indicates a theme entry names an unknown color.
	ErrInvalidColor = errors.New("highlight.theme color is not recognized")
	// ErrInvalidVerbosity indicates lsp.verbosity is out of range.
	ErrInvalidVerbosity = errors.New("lsp.verbosity must be between -1 and 5")
	// ErrInvalidSampleRatio indicates tracing.sample_ratio is outside [0, 1].
	ErrInvalidSampleRatio = errors.New("tracing.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAddr, c.Server.Addr)
	}
	if err := c.Highlight.validate(); err != nil {
		return err
	}
	if c.LSP.Verbosity < -1 || c.LSP.Verbosity > 5 {
		return fmt.Errorf("%w: %d", ErrInvalidVerbosity, c.LSP.Verbosity)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Tracing.SampleRatio)
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
	return level, nil
}

func (h HighlightConfig) validate() error {
	valid := make(map[string]bool, len(ColorNames))
	for _, name := range ColorNames {
		valid[name] = true
	}
	labels := h.configured()
	keys := make([]string, 0, len(labels))
	for label := range labels {
		keys = append(keys, label)
	}
	sort.Strings(keys)
	for _, label := range keys {
		if !valid[labels[label]] {
			return fmt.Errorf("%w: %s: %q", ErrInvalidColor, label, labels[label])
		}
	}
	return nil
}

// ThemeColors returns DefaultTheme overlaid with the configured theme.
func (h HighlightConfig) ThemeColors() map[string]string {
	out := make(map[string]string, len(DefaultTheme))
	for label, color := range DefaultTheme {
		out[label] = color
	}
	for label, color := range h.configured() {
		out[label] = color
	}
	return out
}

// configured flattens Theme into dotted labels with lowercased colors.
func (h HighlightConfig) configured() map[string]string {
	out := make(map[string]string)
	flattenTheme("", h.Theme, out)
	return out
}

func flattenTheme(prefix string, m map[string]any, out map[string]string) {
	for key, v := range m {
		label := key
		if prefix != "" {
			label = prefix + "." + key
		}
		switch v := v.(type) {
		case map[string]any:
			flattenTheme(label, v, out)
		default:
			out[label] = strings.ToLower(fmt.Sprint(v))
		}
	}
}
