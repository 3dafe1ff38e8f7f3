// Package logging builds the zap logger used by the command line tools.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines where and how verbosely to log.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is console (default) or json.
	Format string `yaml:"format"`
	// Path enables logging to a rotated file instead of stderr.
	Path string `yaml:"path"`
	// MaxSize is the size in megabytes before rotation.
	MaxSize int `yaml:"max_size"`
	// MaxBackups is how many rotated files are kept.
	MaxBackups int `yaml:"max_backups"`
	// MaxAge is how many days rotated files are kept.
	MaxAge int `yaml:"max_age"`
	// Compress gzips rotated files.
	Compress bool `yaml:"compress"`
}

// Defaults for file rotation.
const (
	DefaultMaxSize    = 10
	DefaultMaxBackups = 3
	DefaultMaxAge     = 28
)

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}

	level, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zapcore.InfoLevel, errors.Wrapf(err, "invalid log level %q", name)
	}
	return level, nil
}

// New builds a logger from cfg. Without a path it writes to stderr.
func New(cfg Config) (*zap.Logger, error) {
	var sink io.Writer = os.Stderr

	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create log directory")
		}

		sink = &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    orDefault(cfg.MaxSize, DefaultMaxSize),
			MaxBackups: orDefault(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     orDefault(cfg.MaxAge, DefaultMaxAge),
			Compress:   cfg.Compress,
		}
	}

	return NewWithWriter(cfg, sink)
}

// NewWithWriter builds a logger from cfg that writes to w, ignoring cfg.Path.
func NewWithWriter(cfg Config, w io.Writer) (*zap.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, errors.Newf("invalid log format %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)

	return zap.New(core, zap.AddCaller()), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
