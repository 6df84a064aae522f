// Package logging builds the zerolog loggers used by the linker and its
// command-line driver.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	FormatPlain = "plain"
	FormatText  = "text"
	FormatJSON  = "json"
)

// New returns a logger writing to w in the given format, filtered at level.
func New(w io.Writer, format, level string) (zerolog.Logger, error) {
	switch strings.ToLower(format) {
	case FormatPlain, FormatText:
		w = &zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    true,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}

	case FormatJSON:

	default:
		return zerolog.Nop(), errors.Errorf("unsupported log format: %s", format)
	}

	logLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), errors.Wrap(err, "failed to parse log level")
	}

	return zerolog.New(w).Level(logLevel).With().Timestamp().Logger(), nil
}
