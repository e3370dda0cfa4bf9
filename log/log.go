// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides a leveled, pluggable logger used across the module.
package log

import (
	"fmt"
	"io"
	stdlog "log"
)

// Logger is the logging abstraction accepted by the library. Any backend
// implementing Log can be plugged in via Options.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

type stdLogger struct {
	log *stdlog.Logger
}

// NewStdLogger returns a Logger backed by the standard library log package.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{log: stdlog.New(w, "", stdlog.LstdFlags)}
}

// Log prints the keyvals pairs prefixed with the level string.
func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "")
	}
	buf := level.String()
	for i := 0; i < len(keyvals); i += 2 {
		buf += fmt.Sprintf(" %v=%v", keyvals[i], keyvals[i+1])
	}
	l.log.Output(4, buf)
	return nil
}
