package logging

import (
	"encoding/hex"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the zerolog logger with the specified debug mode and output format.
func InitLogger(debug, human bool) {
	zerolog.TimeFieldFormat = time.RFC3339Nano                 // always initialize base logger with timestamp.
	base := zerolog.New(os.Stdout).With().Timestamp().Logger() // initialize base logger.
	if human {
		log.Logger = base.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339Nano,
		}) // select output format.
	} else {
		log.Logger = base // use JSON logger.
	}
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel) // set debug level.
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel) // set info level.
	}
}

// LogInvocation logs a received invocation request with structured fields.
func LogInvocation(
	clientIP string,
	function string,
	argBytes []byte,
	activeConns int,
) {
	log.Info().
		Str("event", "invocation_received").
		Str("client_ip", clientIP).
		Str("function", function).
		Str("args_hex", hex.EncodeToString(argBytes)).
		Int("active_connections", activeConns).
		Msg("received invocation")
}

// LogResult logs a sent invocation result with structured fields.
func LogResult(
	clientIP string,
	function string,
	resultBytes []byte,
	failed bool,
	activeConns int,
) {
	log.Info().
		Str("event", "result_sent").
		Str("client_ip", clientIP).
		Str("function", function).
		Str("result_hex", hex.EncodeToString(resultBytes)).
		Bool("failed", failed).
		Int("active_connections", activeConns).
		Msg("sent result")
}
