package mail

import (
	"bytes"
	"context"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/vibast-solutions/ms-go-todo/config"
)

type templateData struct {
	AppName string
	Link    string
}

var (
	activationText = texttemplate.Must(texttemplate.New("activation").Parse(
		"Welcome to {{.AppName}}!\n\nSet your password to activate your account:\n{{.Link}}\n"))
	activationHTML = htmltemplate.Must(htmltemplate.New("activation").Parse(
		`<p>Welcome to {{.AppName}}!</p><p><a href="{{.Link}}">Set your password</a> to activate your account.</p>`))
	resetText = texttemplate.Must(texttemplate.New("reset").Parse(
		"A password reset was requested for your {{.AppName}} account.\n\nChoose a new password:\n{{.Link}}\n\nIf you did not ask for this, ignore this email.\n"))
	resetHTML = htmltemplate.Must(htmltemplate.New("reset").Parse(
		`<p>A password reset was requested for your {{.AppName}} account.</p><p><a href="{{.Link}}">Choose a new password</a></p><p>If you did not ask for this, ignore this email.</p>`))
)

// Notifier renders account emails and hands them to a Sender.
type Notifier struct {
	sender      Sender
	appName     string
	frontendURL string
}

func NewNotifier(sender Sender, cfg config.MailConfig) *Notifier {
	return &Notifier{
		sender:      sender,
		appName:     cfg.FromName,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

func (n *Notifier) SendActivation(ctx context.Context, to, token string) error {
	msg, err := n.render(to, "Activate your account", "/activate", token, activationText, activationHTML)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, to, token string) error {
	msg, err := n.render(to, "Reset your password", "/reset-password", token, resetText, resetHTML)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, msg)
}

func (n *Notifier) render(to, subject, path, token string, text *texttemplate.Template, html *htmltemplate.Template) (Message, error) {
	data := templateData{
		AppName: n.appName,
		Link:    n.frontendURL + path + "?token=" + url.QueryEscape(token),
	}

	var plain, rich bytes.Buffer
	if err := text.Execute(&plain, data); err != nil {
		return Message{}, err
	}
	if err := html.Execute(&rich, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:        to,
		Subject:   subject,
		PlainBody: plain.String(),
		HTMLBody:  rich.String(),
	}, nil
}
