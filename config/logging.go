package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the application logger. Output goes to stdout and, when the
// log file can be opened, to the file at s.LogFile as well.
func InitLogger(s *Settings) (*zap.Logger, error) {
	var cfg zap.Config
	if s.IsProduction() {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if s.LogLevel != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(s.LogLevel)); err == nil {
			cfg.Level.SetLevel(level)
		}
	}

	if path := LogFilePath(s); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err == nil {
			cfg.OutputPaths = append(cfg.OutputPaths, path)
		}
	}

	return cfg.Build()
}

// LogFilePath returns the path to the backend log file.
func LogFilePath(s *Settings) string {
	if s == nil || s.LogFile == "" {
		return filepath.Join("logs", "paper-api.log")
	}
	return s.LogFile
}
