package logging

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// New builds the process logger. Unknown levels fall back to info.
func New(level string, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "timeblocks",
		Level:  lvl,
		Output: out,
	})
}

// Discard is used by tests and by components built without a logger.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
