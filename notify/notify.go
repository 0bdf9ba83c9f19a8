// Package notify tells people a run finished: ntfy push and e-mail.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"emojipress/config"
	"emojipress/report"
)

// Notifier delivers a finished report somewhere
type Notifier interface {
	Name() string
	Notify(ctx context.Context, r *report.Report) error
}

// Dispatcher fans a report out to every enabled notifier
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher wires the notifiers enabled in cfg
func NewDispatcher(cfg config.NotifyConfig, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	if cfg.Ntfy.Enabled {
		d.Add(NewNtfySender(cfg.Ntfy, nil, logger))
	}
	if cfg.Email.Enabled {
		d.Add(NewEmailSender(cfg.Email, logger))
	}
	return d
}

// Add registers another notifier
func (d *Dispatcher) Add(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Len returns the number of registered notifiers
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Notify calls every notifier, even after a failure, and joins the errors
func (d *Dispatcher) Notify(ctx context.Context, r *report.Report) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, r); err != nil {
			d.logger.Warn("notification failed", zap.String("notifier", n.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
