package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gosuda/taskflow/internal/config"
)

// setupLogging configures the global zerolog logger. It returns a closer for
// the rotating file writer, which is a no-op without a log file.
func setupLogging(cfg config.LogConfig) func() error {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stdout
	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		// The file always gets JSON, whatever the console format.
		out = zerolog.MultiLevelWriter(out, file)
		closer = file.Close
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer
}
