package mailer

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-wanderplan/internal/pkg/config"
)

var invitationTmpl = template.Must(template.New("invitation").Parse(`Hi,

{{.Inviter}} invited you to plan a trip to {{.Place}}.

Open the plan: {{.Link}}

Happy travels!
`))

type invitationData struct {
	Inviter string
	Place   string
	Link    string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer delivers plan invitations over SMTP.
type SMTPMailer struct {
	client sender
	from   string
	appURL string
	logger *zap.Logger
}

// NoopMailer only logs. It is used when SMTP_HOST is empty.
type NoopMailer struct {
	logger *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return newSMTPMailer(client, cfg.From, cfg.AppURL, logger), nil
}

func newSMTPMailer(client sender, from, appURL string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		client: client,
		from:   from,
		appURL: strings.TrimRight(appURL, "/"),
		logger: logger,
	}
}

func NewNoopMailer(logger *zap.Logger) *NoopMailer {
	return &NoopMailer{logger: logger}
}

func (m *SMTPMailer) SendPlanInvitation(ctx context.Context, to, inviterName, placeName, planID string) error {
	msg, err := m.invitation(to, inviterName, placeName, planID)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation to %s: %w", to, err)
	}
	m.logger.Info("Invitation sent", zap.String("to", to), zap.String("planId", planID))
	return nil
}

func (m *SMTPMailer) invitation(to, inviterName, placeName, planID string) (*mail.Msg, error) {
	var body bytes.Buffer
	if err := invitationTmpl.Execute(&body, invitationData{
		Inviter: inviterName,
		Place:   placeName,
		Link:    fmt.Sprintf("%s/plans/%s", m.appURL, planID),
	}); err != nil {
		return nil, fmt.Errorf("render invitation: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(fmt.Sprintf("You're invited to plan a trip to %s", placeName))
	msg.SetBodyString(mail.TypeTextPlain, body.String())
	return msg, nil
}

func (m *NoopMailer) SendPlanInvitation(_ context.Context, to, _, _, planID string) error {
	m.logger.Info("SMTP disabled, invitation not sent", zap.String("to", to), zap.String("planId", planID))
	return nil
}
