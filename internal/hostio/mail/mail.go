// Package mail backs the #io_send_mail host facility with gomail's SMTP
// dialer.
package mail

import "gopkg.in/gomail.v2"

// SMTPConfig carries the server connection details; these come from
// ambient configuration, never from the language program itself, so a
// Lambo script can never exfiltrate SMTP credentials it was never given.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
}

// Envelope is one outbound message.
type Envelope struct {
	From    string
	To      string
	Subject string
	Body    string
	HTML    string
}

// Send connects to cfg's SMTP server and delivers env.
func Send(cfg SMTPConfig, env Envelope) error {
	m := gomail.NewMessage()
	m.SetHeader("From", env.From)
	m.SetHeader("To", env.To)
	m.SetHeader("Subject", env.Subject)
	if env.HTML != "" {
		m.SetBody("text/html", env.HTML)
	} else {
		m.SetBody("text/plain", env.Body)
	}
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	return dialer.DialAndSend(m)
}
