// Package mail composes account emails and delivers them through a configured driver.
package mail

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/config"
)

type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Used in development.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	logrus.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Email (log driver)\n" + msg.PlainBody)
	return nil
}

func NewSender(cfg config.MailConfig) (Sender, error) {
	switch cfg.Driver {
	case "", "log":
		return LogSender{}, nil
	case "smtp":
		return NewSMTPSender(cfg), nil
	}
	return nil, fmt.Errorf("unsupported mail driver %q", cfg.Driver)
}
