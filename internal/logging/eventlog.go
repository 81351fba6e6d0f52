package logging

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/gatekeep/internal/event"
)

// EventLogger records every published event, whatever its payload.
type EventLogger struct {
	logger *log.Entry
	level  log.Level
}

// NewEventLogger creates an EventLogger writing to logger at the given level.
// A nil logger uses the standard logger.
func NewEventLogger(logger *log.Entry, level log.Level) *EventLogger {
	if logger == nil {
		logger = Component("event-log")
	}
	return &EventLogger{logger: logger, level: level}
}

// Attach subscribes the logger to every event on b.
func (l *EventLogger) Attach(b *event.Bus) (event.Unsubscribe, error) {
	return b.OnAny(l)
}

// HandleAny implements event.WildcardHandler.
func (l *EventLogger) HandleAny(_ context.Context, name string, evt event.Event) error {
	if !l.logger.Logger.IsLevelEnabled(l.level) {
		return nil
	}

	fields := log.Fields{
		"event":       name,
		"eventID":     evt.ID,
		"payloadType": payloadType(evt.Payload),
	}
	if evt.Metadata.CorrelationID != "" {
		fields["correlationID"] = evt.Metadata.CorrelationID
	}
	if evt.Metadata.CausationID != "" {
		fields["causationID"] = evt.Metadata.CausationID
	}
	if evt.Metadata.SourceAddr != "" {
		fields["sourceAddr"] = evt.Metadata.SourceAddr
	}

	l.logger.WithFields(fields).Log(l.level, "event published")
	return nil
}

func payloadType(p any) string {
	if p == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", p)
}
