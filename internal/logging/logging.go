// Package logging configures the process logger and records bus traffic.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Log formats accepted by InitLogFormat.
const (
	TextFormat = "text"
	JSONFormat = "json"
)

// InitLogLevel sets the level of the standard logger.
// debug forces DebugLevel regardless of logLevel.
func InitLogLevel(debug bool, logLevel string) error {
	if debug {
		log.SetLevel(log.DebugLevel)
		return nil
	}

	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}

// InitLogFormat configures the log format, allowing a choice of text or JSON.
func InitLogFormat(logFormat string) error {
	switch strings.ToLower(logFormat) {
	case TextFormat, "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case JSONFormat:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format: %s", logFormat)
	}
	return nil
}

// InitLogOutput redirects the standard logger.
func InitLogOutput(w io.Writer) {
	log.SetOutput(w)
}

// Component returns an entry tagged with the given component name.
func Component(name string) *log.Entry {
	return log.WithField("component", name)
}
