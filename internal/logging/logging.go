// Package logging builds the app logger: a rotating log file, optionally
// teed into the in-app log view.
package logging

import (
	"bytes"
	"io"
	"log"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type SetupParams struct {
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	// UI receives a copy of every line when set.
	UI io.Writer
}

// Setup returns a logger writing to a lumberjack-rotated file. The returned
// closer flushes and closes the file.
func Setup(params SetupParams) (*log.Logger, io.Closer) {
	fileName := params.FileName
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	maxSize := params.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := params.MaxBackups
	if maxBackups <= 0 {
		maxBackups = 3
	}

	lumberJackLogger := &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    maxSize, // megabytes
		MaxBackups: maxBackups,
		LocalTime:  true,
		Compress:   true,
	}

	out := NewCombinedWriter(lumberJackLogger, params.UI)
	return log.New(out, "", log.LstdFlags|log.Lmicroseconds), lumberJackLogger
}

// UILogWriter turns written bytes into lines on a channel. Sends never
// block: when the reader falls behind, lines are dropped rather than
// stalling the code that logs.
type UILogWriter struct {
	mu      sync.Mutex
	ch      chan string
	partial []byte
	dropped int
}

func NewUILogWriter(buffer int) *UILogWriter {
	if buffer <= 0 {
		buffer = 256
	}
	return &UILogWriter{ch: make(chan string, buffer)}
}

// Lines is the channel the UI model reads from.
func (w *UILogWriter) Lines() <-chan string {
	return w.ch
}

// Dropped returns how many lines were discarded because the channel was full.
func (w *UILogWriter) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *UILogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial = append(w.partial, p...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		line := string(w.partial[:idx+1])
		w.partial = w.partial[idx+1:]
		select {
		case w.ch <- line:
		default:
			w.dropped++
		}
	}
	if len(w.partial) == 0 {
		w.partial = nil
	}
	return len(p), nil
}
