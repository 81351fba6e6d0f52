package app

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/dshills/gatekeep/internal/event"
	"github.com/dshills/gatekeep/internal/event/events"
	"github.com/dshills/gatekeep/internal/logging"
)

// resetOutbox delivers password reset tokens. Gatekeep has no mail
// transport, so delivery is a log record.
type resetOutbox struct {
	logger *log.Entry
}

func (o *resetOutbox) EventName() string {
	return events.TopicUserPasswordResetRequested.String()
}

func (o *resetOutbox) Handle(_ context.Context, evt event.Event) error {
	p, ok := events.Decode[events.UserPasswordResetRequested](evt)
	if !ok {
		return nil
	}
	o.logger.WithFields(log.Fields{
		"userID":    p.UserID,
		"email":     p.Email,
		"expiresAt": p.ExpiresAt,
	}).Info("Password reset token issued.")
	o.logger.WithField("token", p.Token).Debug("Password reset token.")
	return nil
}

func (o *resetOutbox) OnError(_ context.Context, evt event.Event, err error) {
	o.logger.WithError(err).WithField("eventID", evt.ID).Error("Could not deliver password reset token.")
}

// wireSubscriptions registers application-level subscribers.
func (app *Application) wireSubscriptions() error {
	outbox := event.NewRegistration(app.bus, &resetOutbox{logger: logging.Component("outbox")})
	if err := outbox.Register(); err != nil {
		return err
	}
	app.unsubs = append(app.unsubs, outbox.Unregister)

	security := logging.Component("security")
	unsub, err := events.Subscribe(app.bus, func(_ context.Context, evt event.Event, p events.SecurityRateLimited) error {
		security.WithFields(log.Fields{
			"scope":         p.Scope,
			"key":           p.Key,
			"sourceAddr":    p.SourceAddr,
			"correlationID": evt.Metadata.CorrelationID,
		}).Warn("Rate limit exceeded.")
		return nil
	}, event.WithPriority(event.PriorityLow))
	if err != nil {
		return err
	}
	app.unsubs = append(app.unsubs, unsub)
	return nil
}
