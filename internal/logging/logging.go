// Package logging sets up the zerolog logger every command shares.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Init returns a console-formatted zerolog.Logger tagged with app,
// mirroring the teacher's InitLogger.
func Init(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", app).Logger()
}
