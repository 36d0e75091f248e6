package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Name is the root logger name. Packages derive sub-loggers with Named.
const Name = "shelf"

// New creates the process logger writing to w (stderr when nil).
// Verbose mode logs at debug level with timestamps; otherwise only warnings
// and errors are shown, without timestamps, to keep CLI output readable.
// SHELF_LOG_LEVEL overrides the level when set to a valid hclog level.
func New(w io.Writer, verbose bool) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level := hclog.Warn
	if verbose {
		level = hclog.Debug
	}
	if env := hclog.LevelFromString(os.Getenv("SHELF_LOG_LEVEL")); env != hclog.NoLevel {
		level = env
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:        Name,
		Level:       level,
		Output:      w,
		DisableTime: !verbose,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
