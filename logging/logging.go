package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName     = "newsbrief.log"
	maxSizeMB       = 5
	maxBackups      = 3
	maxAgeDays      = 28
	compressOldLogs = true
)

// Setup routes the standard logger and slog through a size-capped rotating
// file in dir, mirrored to stdout. An empty dir leaves logging on stdout
// only, which is what tests and container setups want.
func Setup(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compressOldLogs,
	}

	out := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime)
	slog.SetDefault(slog.New(slog.NewTextHandler(out, nil)))
	return nil
}
