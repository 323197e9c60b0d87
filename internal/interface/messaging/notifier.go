package messaging

import (
	"context"

	"github.com/eduquest/user-service/pkg/helpers"
	"github.com/eduquest/user-service/pkg/mailer"
)

// EmailNotifier hands verification codes to the email worker queue. Sending
// is out of band: the worker renders and delivers the mail, the identity
// flow only enqueues the job.
type EmailNotifier struct {
	pub *helpers.RabbitPublisher
}

func NewEmailNotifier(pub *helpers.RabbitPublisher) *EmailNotifier {
	return &EmailNotifier{pub: pub}
}

func (n *EmailNotifier) ActivationCode(ctx context.Context, name, email, code string) error {
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       email,
		Subject:  "Activate your account",
		Template: mailer.TemplateActivationCode,
		Data: map[string]any{
			"name": name,
			"code": code,
		},
	})
}

func (n *EmailNotifier) ResetCode(ctx context.Context, name, email, userID, code string) error {
	return n.pub.PublishJSON(ctx, mailer.EmailJob{
		To:       email,
		Subject:  "Reset your password",
		Template: mailer.TemplateResetCode,
		Data: map[string]any{
			"name":   name,
			"userId": userID,
			"code":   code,
		},
	})
}
