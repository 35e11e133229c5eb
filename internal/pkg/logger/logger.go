package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Dev environments get a human readable console writer.
func New(level, appEnv string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if env := strings.ToLower(appEnv); env == "" || env == "dev" || env == "local" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Printf adapts l to the loggerf signature used by services.
// A leading "level=<lvl>" token selects the event level; "msg=" is stripped.
func Printf(l zerolog.Logger) func(format string, args ...interface{}) {
	return func(format string, args ...interface{}) {
		line := fmt.Sprintf(format, args...)
		lvl, rest := splitLevel(line)
		l.WithLevel(lvl).Msg(strings.TrimPrefix(rest, "msg="))
	}
}

func splitLevel(line string) (zerolog.Level, string) {
	if !strings.HasPrefix(line, "level=") {
		return zerolog.InfoLevel, line
	}
	token, rest, _ := strings.Cut(strings.TrimPrefix(line, "level="), " ")
	lvl, err := zerolog.ParseLevel(token)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, rest
	}
	return lvl, rest
}
