package dlog

import (
	"fmt"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
	slogmulti "github.com/samber/slog-multi"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Log is the process logger. It writes to stderr until Setup replaces it.
var Log = slog.Default()

type Options struct {
	Dir         string
	Level       string
	ArchiveCron string
	Console     io.Writer
}

// Setup builds the fanout logger and schedules the archive job. The returned
// function stops the cron and flushes the log file.
func Setup(options Options) (func(), error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, err
	}
	if options.Dir == "" {
		options.Dir = "logs"
	}
	if options.Console == nil {
		options.Console = os.Stdout
	}
	if err = os.MkdirAll(options.Dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	archiver := &Archiver{Dir: options.Dir}
	file, err := archiver.open("default.json")
	if err != nil {
		return nil, err
	}

	c := cron.New()
	if options.ArchiveCron != "" {
		if _, err = c.AddFunc(options.ArchiveCron, archiver.process); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("schedule log archive %q: %w", options.ArchiveCron, err)
		}
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}
	Log = slog.New(slogmulti.Fanout(
		tint.NewHandler(options.Console, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		}),
		slog.NewJSONHandler(file, opts),
	))
	slog.SetDefault(Log)

	c.Start()
	Debug("Logger ready", "dir", options.Dir, "level", level.String(), "archiveCron", options.ArchiveCron)

	return func() {
		<-c.Stop().Done()
		_ = file.Close()
	}, nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Err is the attribute used for errors across the bot.
func Err(err error) slog.Attr {
	return tint.Err(err)
}

func logPath(dir, name string) string {
	return filepath.Join(dir, name)
}
