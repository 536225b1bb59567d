package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options selects the handler and the attributes every record carries.
type Options struct {
	// Env is "dev" for the console handler; anything else logs JSON.
	Env     string
	Level   slog.Level
	AppName string
}

// New builds the process logger. In dev, records go through tint and are
// colored only when w is a terminal; source locations are added at debug
// level. Other environments get one JSON object per line.
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			AddSource:  opts.Level <= slog.LevelDebug,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
		return slog.New(h).With("app", opts.AppName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       opts.Level,
		ReplaceAttr: utcTime,
	})
	return slog.New(h).With(
		"app", opts.AppName,
		"env", opts.Env,
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// utcTime stamps JSON records in UTC.
func utcTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.TimeValue(a.Value.Time().UTC())
	}
	return a
}
