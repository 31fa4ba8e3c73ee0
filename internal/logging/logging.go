// Package logging provides structured logging configuration.
package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration options.
type Config struct {
	Level  string // debug|info|warn|error
	Format string // json|console
}

// New creates a new configured zap logger.
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
			return nil, err
		}
	}

	var zcfg zap.Config
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}

	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.LevelKey = "level"
	zcfg.EncoderConfig.MessageKey = "msg"
	zcfg.EncoderConfig.CallerKey = "caller"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// Spot lines are written to stdout by the console sink.
	zcfg.OutputPaths = []string{"stderr"}

	logger, err := zcfg.Build(zap.AddCaller())
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "dxrelay")), nil
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

// FromEnv creates a Config from environment variables.
func FromEnv() Config {
	return Config{
		Level:  getenv("DXRELAY_LOG_LEVEL", "info"),
		Format: getenv("DXRELAY_LOG_FORMAT", "json"),
	}
}

func getenv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Component returns a zap field for the component name.
func Component(name string) zap.Field { return zap.String("component", name) }

// Host returns a zap field for the configured cluster host.
func Host(host string) zap.Field { return zap.String("host", host) }

// Addr returns a zap field for a resolved socket address.
func Addr(addr string) zap.Field { return zap.String("addr", addr) }

// Username returns a zap field for the cluster login name.
func Username(name string) zap.Field { return zap.String("username", name) }

// Line returns a zap field for a raw telnet line.
func Line(line string) zap.Field { return zap.String("line", line) }

// State returns a zap field for a session state.
func State(state string) zap.Field { return zap.String("state", state) }

// Delay returns a zap field for a reconnect delay.
func Delay(d time.Duration) zap.Field { return zap.Duration("delay", d) }

// Listen returns a zap field for a listen address.
func Listen(addr string) zap.Field { return zap.String("listen", addr) }

// Room returns a zap field for a Matrix room ID.
func Room(id string) zap.Field { return zap.String("room_id", id) }

// Nameserver returns a zap field for a DNS server address.
func Nameserver(addr string) zap.Field { return zap.String("nameserver", addr) }

// Task returns a zap field for a supervised task name.
func Task(name string) zap.Field { return zap.String("task", name) }
