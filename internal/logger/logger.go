package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global zerolog instance. In debug mode output goes to a
// human-readable console writer; in release mode JSON lines are written both to
// stdout and a size-rotated log file.
func Init(mode string) {
	zerolog.TimeFieldFormat = time.RFC3339

	if mode == "release" {
		fileWriter := &lumberjack.Logger{
			Filename:   "logs/margay.log",
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.Logger = zerolog.New(io.MultiWriter(os.Stdout, fileWriter)).With().Timestamp().Logger()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}
