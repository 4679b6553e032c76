package mailer

import (
	"apaeventus/src/config"
	"apaeventus/src/lib"
	awslib "apaeventus/src/lib/aws"
	"apaeventus/src/services"
	"context"
	"fmt"
)

// New returns the mail sender selected by MAIL_PROVIDER ("ses" or "smtp").
func New(ctx context.Context, cfg *config.Config) (services.Mailer, error) {
	switch cfg.MailProvider {
	case "smtp":
		c, err := lib.GetSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
		if err != nil {
			return nil, err
		}
		return lib.NewSMTPMailer(c, cfg.MailFrom, cfg.MailFromName), nil
	case "ses":
		client, err := lib.AWSGetSESClient(ctx)
		if err != nil {
			return nil, err
		}
		return awslib.NewSESMailer(client, cfg.MailFrom, cfg.MailFromName), nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", cfg.MailProvider)
}
