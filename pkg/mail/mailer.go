package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message represents an outbound email. HTML is optional; when present the message is
// sent as multipart/alternative with Body as the plain text part.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    string
}

// Receipt describes an accepted message.
type Receipt struct {
	MessageID string
	Accepted  []string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
	// Verify dials the transport and authenticates without sending anything.
	Verify(ctx context.Context) error
}

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS selects implicit TLS (SMTPS). Otherwise STARTTLS is attempted when offered.
	UseTLS  bool
	Timeout time.Duration
}

type smtpMailer struct {
	cfg    SMTPSettings
	dialFn smtpDialFunc
	authFn smtpAuthFunc
	now    func() time.Time
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) (Receipt, error) {
	if !m.cfg.Enabled {
		return Receipt{}, ErrSMTPDisabled
	}

	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return Receipt{}, errors.New("smtp: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	if from == "" {
		from = m.cfg.Username
	}
	if from == "" {
		return Receipt{}, errors.New("smtp: sender address is required")
	}

	sender, err := mail.ParseAddress(from)
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return Receipt{}, fmt.Errorf("smtp: invalid recipient address %q: %w", rcpt, err)
		}
	}

	messageID := newMessageID(sender.Address)
	payload, err := formatMessage(from, recipients, messageID, m.now(), msg)
	if err != nil {
		return Receipt{}, err
	}

	conn, client, err := m.dialFn(ctx, m.cfg)
	if err != nil {
		return Receipt{}, err
	}
	defer conn.Close()
	defer client.Close()

	if err := m.authFn(client, m.cfg); err != nil {
		return Receipt{}, err
	}

	if err := client.Mail(sender.Address); err != nil {
		return Receipt{}, fmt.Errorf("smtp: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return Receipt{}, fmt.Errorf("smtp: rcpt to %s: %w", rcpt, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return Receipt{}, fmt.Errorf("smtp: data command: %w", err)
	}

	if _, err := wc.Write(payload); err != nil {
		_ = wc.Close()
		return Receipt{}, fmt.Errorf("smtp: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return Receipt{}, fmt.Errorf("smtp: close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		return Receipt{}, fmt.Errorf("smtp: quit: %w", err)
	}
	return Receipt{MessageID: messageID, Accepted: recipients}, nil
}

func (m *smtpMailer) Verify(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrSMTPDisabled
	}
	conn, client, err := m.dialFn(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer client.Close()

	if err := m.authFn(client, m.cfg); err != nil {
		return err
	}
	return client.Quit()
}

func validateSMTPConfig(cfg SMTPSettings) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if cfg.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

type smtpClient interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	StartTLS(*tls.Config) error
	Auth(smtp.Auth) error
	Extension(string) (bool, string)
}

type smtpDialFunc func(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error)
type smtpAuthFunc func(client smtpClient, cfg SMTPSettings) error

// NewSMTPMailer validates cfg and returns a Mailer. A disabled configuration yields a
// mailer whose Send returns ErrSMTPDisabled.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{
		cfg:    cfg,
		dialFn: defaultDialFunc,
		authFn: defaultAuthFunc,
		now:    time.Now,
	}, nil
}

func defaultDialFunc(ctx context.Context, cfg SMTPSettings) (net.Conn, smtpClient, error) {
	address := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		conn net.Conn
		err  error
	)

	if cfg.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: cfg.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("smtp: dial %s: %w", address, err)
	}
	_ = conn.SetDeadline(time.Now().Add(cfg.Timeout))

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("smtp: new client: %w", err)
	}

	if !cfg.UseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = client.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("smtp: start tls: %w", err)
			}
		}
	}

	return conn, &realSMTPClient{Client: client}, nil
}

func defaultAuthFunc(client smtpClient, cfg SMTPSettings) error {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil
	}
	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp: auth: %w", err)
	}
	return nil
}

type realSMTPClient struct {
	*smtp.Client
}

func newMessageID(sender string) string {
	domain := "localhost"
	if at := strings.LastIndex(sender, "@"); at >= 0 && at < len(sender)-1 {
		domain = sender[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

func formatMessage(from string, to []string, messageID string, date time.Time, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	headers := []string{
		"From: " + escapeHeader(from),
		"To: " + escapeHeader(strings.Join(to, ", ")),
		"Subject: " + mime.QEncoding.Encode("UTF-8", escapeHeader(msg.Subject)),
		"Date: " + date.Format(time.RFC1123Z),
		"Message-ID: " + messageID,
		"MIME-Version: 1.0",
	}

	if strings.TrimSpace(msg.HTML) == "" {
		headers = append(headers,
			"Content-Type: text/plain; charset=UTF-8",
			"Content-Transfer-Encoding: quoted-printable",
		)
		buf.WriteString(strings.Join(headers, "\r\n") + "\r\n\r\n")
		if err := writeQuotedPrintable(&buf, msg.Body); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, part := range []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", msg.Body},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("smtp: create part: %w", err)
		}
		if err := writeQuotedPrintable(w, part.content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("smtp: close multipart: %w", err)
	}

	headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q", mw.Boundary()))
	buf.WriteString(strings.Join(headers, "\r\n") + "\r\n\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func writeQuotedPrintable(w io.Writer, content string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := io.WriteString(qp, content); err != nil {
		return fmt.Errorf("smtp: encode body: %w", err)
	}
	return qp.Close()
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
