package models

import (
	"fmt"
	"io"
	"sync"

	"github.com/mgutz/ansi"
)

type Logger interface {
	Debugf(tag, format string, a ...interface{})
	Infof(tag, format string, a ...interface{})
	Errorf(tag, format string, a ...interface{})
}

var (
	logDebug = ansi.ColorCode("black+h")
	logInfo  = ansi.ColorCode("cyan")
	logError = ansi.ColorCode("red+b")
)

type logger struct {
	sync.Mutex
	w       io.Writer
	color   bool
	verbose bool
}

func NewLogger(w io.Writer, color, verbose bool) Logger {
	return &logger{w: w, color: color, verbose: verbose}
}

func (l *logger) emit(color, tag, format string, a []interface{}) {
	msg := fmt.Sprintf(format, a...)
	l.Lock()
	defer l.Unlock()
	if l.color {
		fmt.Fprintf(l.w, "%s[%s]%s %s\n", color, tag, ansi.Reset, msg)
	} else {
		fmt.Fprintf(l.w, "[%s] %s\n", tag, msg)
	}
}

func (l *logger) Debugf(tag, format string, a ...interface{}) {
	if l.verbose {
		l.emit(logDebug, tag, format, a)
	}
}

func (l *logger) Infof(tag, format string, a ...interface{}) {
	l.emit(logInfo, tag, format, a)
}

func (l *logger) Errorf(tag, format string, a ...interface{}) {
	l.emit(logError, tag, format, a)
}

type nullLogger struct{}

func (nullLogger) Debugf(tag, format string, a ...interface{}) {}
func (nullLogger) Infof(tag, format string, a ...interface{})  {}
func (nullLogger) Errorf(tag, format string, a ...interface{}) {}

// NullLogger discards everything.
var NullLogger Logger = nullLogger{}
