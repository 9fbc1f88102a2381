package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/lestrrat-go/strftime"
	slogmulti "github.com/samber/slog-multi"

	"github.com/tanema/nodepat/src/conf"
)

// newLogger writes text records to w and, when a log file is configured, json
// records to that file. The returned func closes the file.
func newLogger(cfg conf.LogConfig, w io.Writer) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, err
		}
	}
	var timeFmt *strftime.Strftime
	if cfg.TimeFormat != "" {
		var err error
		if timeFmt, err = strftime.New(cfg.TimeFormat); err != nil {
			return nil, nil, err
		}
	}
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && timeFmt != nil {
				return slog.String(slog.TimeKey, timeFmt.FormatString(a.Value.Time()))
			}
			return a
		},
	}

	handlers := []slog.Handler{slog.NewTextHandler(w, opts)}
	closer := func() error { return nil }
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
		closer = file.Close
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}
