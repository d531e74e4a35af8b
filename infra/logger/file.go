package logger

import (
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig copies the logs to a rotated file when Path is set. Sizes
// are in megabytes and ages in days.
type FileConfig struct {
	Path       string `json:"path" yaml:"path"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days"`
}

var rotating *lumberjack.Logger

// openFile sends the output to stdout and to the rotated file. A file
// opened by a previous call is closed.
func openFile(cfg FileConfig) error {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	outMu.Lock()
	prev := rotating
	rotating = lj
	output = io.MultiWriter(os.Stdout, lj)
	outMu.Unlock()
	if prev != nil {
		return prev.Close()
	}
	return nil
}

// CloseFile closes the rotated log file, if any, and restores stdout.
func CloseFile() error {
	outMu.Lock()
	defer outMu.Unlock()
	if rotating == nil {
		return nil
	}
	err := rotating.Close()
	rotating = nil
	output = os.Stdout
	return err
}
