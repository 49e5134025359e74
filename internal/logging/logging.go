// Package logging builds the component loggers used across campussync.
//
// Every component takes a *log.Logger with its own prefix. A Sink decides
// where they all write: stderr, and optionally a size-rotated log file.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the rotating log file. An empty File disables it.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Sink is the shared destination for component loggers.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// NewSink writes to console, and also to the rotating file when opts.File is
// set. A nil console means os.Stderr.
func NewSink(opts Options, console io.Writer) *Sink {
	if console == nil {
		console = os.Stderr
	}
	if opts.File == "" {
		return &Sink{w: console}
	}

	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	return &Sink{
		w:    io.MultiWriter(console, file),
		file: file,
	}
}

// Logger returns a logger writing to the sink with the given prefix,
// e.g. "[sync] ".
func (s *Sink) Logger(prefix string) *log.Logger {
	return log.New(s.w, prefix, log.LstdFlags)
}

// Writer returns the sink's underlying writer.
func (s *Sink) Writer() io.Writer {
	return s.w
}

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
