package storefront

import (
	"io"
	"os"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
)

// NewLogger builds the root logger. format is "json" or "pretty"; debug
// lowers the level to Debug. Components take named children through
// GetLogger.
func NewLogger(w io.Writer, format string, debug bool) *glog.BaseLogger {
	if w == nil {
		w = os.Stdout
	}

	level := glog.Info
	if debug {
		level = glog.Debug
	}

	kind := glog.WithLoggerTypePretty()
	if strings.EqualFold(format, "json") {
		kind = glog.WithLoggerTypeJSON()
	}

	return glog.NewLogger(
		kind,
		glog.WithWriter(w),
		glog.WithLevel(level),
		glog.WithName("storefront"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

type nopLogger struct{}

// NopLogger discards everything
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func defLogger() Logger {
	return NewLogger(os.Stdout, "pretty", false).GetLogger("storefront")
}
