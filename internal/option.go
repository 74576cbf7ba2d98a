package internal

import (
	"io"
	"time"
)

// Option is a functional option for configuring the application.
type Option func(*application)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithIO sets the terminal the application talks to. Defaults to the
// process stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.in = in
		a.out = out
	}
}

// WithLogOutput sends log records to w instead of stderr. It is ignored
// when a log file is configured.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOut = w
	}
}

// WithClock overrides the wall clock used for dates and priorities.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
