package aws

import (
	"apaeventus/src/lib"
	"apaeventus/src/types"
	"bytes"
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESSendRawEmailAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESMailer sends the MIME message built by lib.BuildMessage through SES.
type SESMailer struct {
	client   SESSendRawEmailAPI
	from     string
	fromName string
}

func NewSESMailer(client SESSendRawEmailAPI, from string, fromName string) *SESMailer {
	return &SESMailer{client: client, from: from, fromName: fromName}
}

func (m *SESMailer) Send(ctx context.Context, input types.EmailMessage) error {
	msg, err := lib.BuildMessage(m.from, m.fromName, input)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	out, err := m.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage: &sestypes.RawMessage{Data: buf.Bytes()},
	})
	if err != nil {
		log.Printf("Error sending email: %s\n", err.Error())
		return err
	}
	log.Printf("Sent email with id: %s\n", *out.MessageId)
	return nil
}
