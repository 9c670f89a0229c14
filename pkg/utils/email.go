package utils

import (
	"context"

	"github.com/bilawal506/online-mart/config"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to string, subject string, htmlBody string) error
}

// SMTPMailer delivers mail through the configured SMTP server. gomail upgrades
// the connection with STARTTLS whenever the server offers it; SSLTLS switches
// to implicit TLS instead.
type SMTPMailer struct {
	conf config.MailConfig
}

func NewSMTPMailer(conf config.MailConfig) *SMTPMailer {
	return &SMTPMailer{conf: conf}
}

func (m *SMTPMailer) Send(ctx context.Context, to string, subject string, htmlBody string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.conf.From)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", htmlBody)

	return SendEmail(message, m.conf)
}

func SendEmail(message *gomail.Message, conf config.MailConfig) error {
	d := gomail.NewDialer(conf.Server, conf.Port, conf.Username, conf.Password)
	d.SSL = conf.SSLTLS

	return d.DialAndSend(message)
}
