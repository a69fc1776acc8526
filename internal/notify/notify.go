package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/kassslll/learnhub/internal/logger"
)

type Notifier interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type sendgridNotifier struct {
	log  *logger.Logger
	key  string
	from *sgmail.Email
}

func NewSendGrid(log *logger.Logger, apiKey, fromEmail, fromName string) (Notifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(fromEmail) == "" {
		return nil, errors.New("missing SENDGRID_FROM_EMAIL")
	}
	return &sendgridNotifier{
		log:  log.With("client", "SendGridNotifier"),
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromEmail),
	}, nil
}

func (n *sendgridNotifier) SendEmail(ctx context.Context, to, subject, htmlBody string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", htmlBody))

	req := sendgrid.GetRequest(n.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		n.log.Warn("sendgrid rejected message", "status", res.StatusCode, "subject", subject)
		return fmt.Errorf("sendgrid http %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them. Used when
// no SendGrid key is configured.
type LogNotifier struct {
	Log *logger.Logger
}

func (n LogNotifier) SendEmail(_ context.Context, to, subject, _ string) error {
	n.Log.Info("email delivery disabled, message dropped", "email", to, "subject", subject)
	return nil
}
