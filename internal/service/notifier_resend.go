package service

import (
	"context"
	"fmt"
	"strings"

	"vigil/internal/entity"

	"github.com/resend/resend-go/v2"
)

// ResendAlertNotifier emails the security contact when a high-severity
// alert is raised.
type ResendAlertNotifier struct {
	client *resend.Client
	from   string
	to     string
}

func NewResendAlertNotifier(apiKey string, from string, to string) *ResendAlertNotifier {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil
	}
	return &ResendAlertNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (n *ResendAlertNotifier) Notify(ctx context.Context, alert *entity.Alert) error {
	subject := fmt.Sprintf("[%s] security alert: %s", alert.Severity, alert.Type)
	text := fmt.Sprintf("Alert %s\nType: %s\nSeverity: %s\nStatus: %s\n\n%s\n",
		alert.ID, alert.Type, alert.Severity, alert.Status, alert.Description)

	_, err := n.client.Emails.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: subject,
		Text:    text,
	})
	return err
}
