package notifications

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"go.uber.org/zap"

	"github.com/flowoff/assistente/internal/monitoring"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/mail"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind selects the email template.
type Kind string

const (
	KindNotification Kind = "notification"
	KindAlert        Kind = "alert"
	KindReport       Kind = "report"
)

const (
	alertSubjectPrefix = "[ALERTA] "
	reportTextPrefix   = "Relatório: "
	generatedAtLayout  = "02/01/2006 15:04:05"
)

// ErrUnknownKind is returned by Dispatch for an unsupported template kind.
var ErrUnknownKind = errors.New("notifications: unknown kind")

// ReportRow is a label/value line rendered as a table below the report content.
type ReportRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ReportData carries the body of a report email. Content is escaped unless Trusted is
// set, in which case it is inserted as markup.
type ReportData struct {
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Trusted bool        `json:"-"`
	Rows    []ReportRow `json:"rows,omitempty"`
}

// Request describes a templated email independent of its kind.
type Request struct {
	Kind    Kind
	To      []string
	Subject string
	Text    string
	Report  *ReportData
}

// Sender renders the notification templates and hands the result to a mail transport.
// Sending is synchronous; failures are returned to the caller without retry.
type Sender struct {
	mailer    mail.Mailer
	from      string
	templates map[Kind]*pongo2.Template
	location  *time.Location
	now       func() time.Time
	log       *zap.Logger
}

// Option customises a Sender.
type Option func(*Sender)

// WithFrom overrides the sender address used on every message.
func WithFrom(from string) Option {
	return func(s *Sender) {
		s.from = strings.TrimSpace(from)
	}
}

// WithLocation sets the zone used for the report footer timestamp.
func WithLocation(loc *time.Location) Option {
	return func(s *Sender) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the time source used for the report footer.
func WithClock(now func() time.Time) Option {
	return func(s *Sender) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSender parses the embedded templates.
func NewSender(mailer mail.Mailer, opts ...Option) (*Sender, error) {
	if mailer == nil {
		return nil, errors.New("notifications: mailer is required")
	}
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s := &Sender{
		mailer:    mailer,
		templates: templates,
		location:  time.Local,
		now:       time.Now,
		log:       logger.WithModule("email"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func loadTemplates() (map[Kind]*pongo2.Template, error) {
	set := pongo2.NewSet("notifications", pongo2.DefaultLoader)
	templates := make(map[Kind]*pongo2.Template, 3)
	for _, kind := range []Kind{KindNotification, KindAlert, KindReport} {
		raw, err := templateFS.ReadFile("templates/" + string(kind) + ".html")
		if err != nil {
			return nil, fmt.Errorf("notifications: read %s template: %w", kind, err)
		}
		tpl, err := set.FromBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("notifications: parse %s template: %w", kind, err)
		}
		templates[kind] = tpl
	}
	return templates, nil
}

// SendNotification sends a plain informational message.
func (s *Sender) SendNotification(ctx context.Context, to []string, subject, text string) (mail.Receipt, error) {
	html, err := s.render(KindNotification, pongo2.Context{"subject": subject, "text": text})
	if err != nil {
		return mail.Receipt{}, err
	}
	return s.deliver(ctx, KindNotification, mail.Message{To: to, Subject: subject, Body: text, HTML: html})
}

// SendAlert sends a highlighted message whose subject is prefixed with [ALERTA].
func (s *Sender) SendAlert(ctx context.Context, to []string, subject, text string) (mail.Receipt, error) {
	html, err := s.render(KindAlert, pongo2.Context{"subject": subject, "text": text})
	if err != nil {
		return mail.Receipt{}, err
	}
	return s.deliver(ctx, KindAlert, mail.Message{To: to, Subject: alertSubjectPrefix + subject, Body: text, HTML: html})
}

// SendReport renders data as an HTML report with a generated-at footer.
func (s *Sender) SendReport(ctx context.Context, to []string, subject string, data ReportData) (mail.Receipt, error) {
	html, err := s.RenderReport(data)
	if err != nil {
		return mail.Receipt{}, err
	}
	return s.deliver(ctx, KindReport, mail.Message{To: to, Subject: subject, Body: reportTextPrefix + subject, HTML: html})
}

// RenderReport returns the HTML body SendReport would send.
func (s *Sender) RenderReport(data ReportData) (string, error) {
	return s.render(KindReport, pongo2.Context{
		"title":        data.Title,
		"content":      data.Content,
		"trusted":      data.Trusted,
		"rows":         data.Rows,
		"generated_at": s.now().In(s.location).Format(generatedAtLayout),
	})
}

// Send delivers msg as is, filling in the configured sender address.
func (s *Sender) Send(ctx context.Context, msg mail.Message) (mail.Receipt, error) {
	return s.deliver(ctx, "custom", msg)
}

// Dispatch routes req to the matching Send method.
func (s *Sender) Dispatch(ctx context.Context, req Request) (mail.Receipt, error) {
	switch req.Kind {
	case KindNotification, "":
		return s.SendNotification(ctx, req.To, req.Subject, req.Text)
	case KindAlert:
		return s.SendAlert(ctx, req.To, req.Subject, req.Text)
	case KindReport:
		data := ReportData{Title: req.Subject, Content: req.Text}
		if req.Report != nil {
			data = *req.Report
		}
		return s.SendReport(ctx, req.To, req.Subject, data)
	default:
		return mail.Receipt{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
}

// Verify checks that the transport accepts a connection and credentials.
func (s *Sender) Verify(ctx context.Context) bool {
	if err := s.mailer.Verify(ctx); err != nil {
		s.log.Error("email verification failed", zap.Error(err))
		return false
	}
	logger.System("email", "connection verified")
	return true
}

func (s *Sender) render(kind Kind, data pongo2.Context) (string, error) {
	tpl, ok := s.templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out, err := tpl.Execute(data)
	if err != nil {
		return "", fmt.Errorf("notifications: render %s: %w", kind, err)
	}
	return out, nil
}

func (s *Sender) deliver(ctx context.Context, kind Kind, msg mail.Message) (mail.Receipt, error) {
	if msg.From == "" {
		msg.From = s.from
	}
	receipt, err := s.mailer.Send(ctx, msg)
	if err != nil {
		monitoring.RecordEmail(string(kind), "failure")
		s.log.Error("email send failed",
			zap.String("template", string(kind)),
			zap.Strings("to", msg.To),
			zap.Error(err),
		)
		return mail.Receipt{}, err
	}
	monitoring.RecordEmail(string(kind), "success")
	logger.System("email", "email sent",
		zap.String("template", string(kind)),
		zap.String("message_id", receipt.MessageID),
	)
	return receipt, nil
}
