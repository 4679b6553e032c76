package lib

import (
	"apaeventus/src/types"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/wneessen/go-mail"
)

func GetSMTPClient(host string, port int, user string, pass string) (*mail.Client, error) {
	c, err := mail.NewClient(
		host,
		mail.WithPort(port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(user),
		mail.WithPassword(pass),
	)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s\n", err.Error())
		return nil, err
	}
	return c, nil
}

// BuildMessage turns an EmailMessage into a MIME message with the PDF
// attached. It is shared by the SMTP and SES senders.
func BuildMessage(from string, fromName string, input types.EmailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("failed to set From address: %w", err)
	}
	if err := msg.To(input.To); err != nil {
		return nil, fmt.Errorf("failed to set To address: %w", err)
	}
	msg.Subject(input.Subject)
	msg.SetBodyString(mail.TypeTextPlain, input.Body)
	if input.AttachmentBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(input.AttachmentBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid attachment encoding: %w", err)
		}
		if err := msg.AttachReader(
			input.AttachmentName,
			bytes.NewReader(raw),
			mail.WithFileContentType(mail.ContentType("application/pdf")),
		); err != nil {
			return nil, fmt.Errorf("failed to attach %s: %w", input.AttachmentName, err)
		}
	}
	return msg, nil
}

type SMTPMailer struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPMailer(client *mail.Client, from string, fromName string) *SMTPMailer {
	return &SMTPMailer{client: client, from: from, fromName: fromName}
}

func (m *SMTPMailer) Send(ctx context.Context, input types.EmailMessage) error {
	msg, err := BuildMessage(m.from, m.fromName, input)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}
	log.Printf("[smtp] Sent %q to %s\n", input.Subject, input.To)
	return nil
}
