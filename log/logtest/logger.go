/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-utilkit/log"
)

type syncWriter struct {
	mu      sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

//nolint:gocritic // logf.EntryWriter interface requires passing by value
func (w *syncWriter) WriteEntry(e logf.Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var buf logf.Buffer
	if err := w.encoder.Encode(&buf, e); err != nil {
		_, _ = io.WriteString(w.output, err.Error())
		return
	}
	_, _ = w.output.Write(buf.Data)
}

// LoggerOpts represents options for the test logger.
type LoggerOpts struct {
	// Output is where JSON entries are written. os.Stderr is used by default.
	Output io.Writer
}

// NewLogger returns a debug-level logger writing JSON to stderr.
// Entries are written synchronously, so it's too slow for production.
func NewLogger() log.FieldLogger {
	return NewLoggerWithOpts(LoggerOpts{})
}

// NewLoggerWithOpts returns a debug-level logger writing JSON to opts.Output.
func NewLoggerWithOpts(opts LoggerOpts) log.FieldLogger {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	w := &syncWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{FieldKeyTime: "time", EncodeTime: logf.RFC3339NanoTimeEncoder}),
		output:  output,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, w)}
}
