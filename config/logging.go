package config

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger writing to w at the given level and format.
func NewLogger(level, format string, w io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch format {
	case LogFormatJSON:
		enc = zapcore.NewJSONEncoder(encCfg)
	case LogFormatConsole, "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), zap.NewAtomicLevelAt(lvl))
	return zap.New(core), nil
}

// Log logs the resolved settings at debug level.
func Log(s *Settings, logger *zap.Logger) {
	logger.Debug("config",
		zap.String("cache_dir", s.CacheDir),
		zap.Int("resolution", s.Resolution),
		zap.Int("min_change_distance", s.MinChangeDistance),
		zap.Int("memory_entries", s.MemoryEntries),
		zap.Int("load_workers", s.LoadWorkers),
		zap.Bool("filter_case", s.Tokenizer.FilterCase),
		zap.Bool("filter_punctuation", s.Tokenizer.FilterPunctuation),
		zap.Bool("filter_whitespace", s.Tokenizer.FilterWhitespace),
	)
	if s.Moves != "" {
		logger.Debug("config", zap.String("moves", s.Moves))
	}
	if s.MetricsAddr != "" {
		logger.Debug("config", zap.String("metrics_addr", s.MetricsAddr))
	}
}
