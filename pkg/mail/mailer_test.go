package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSMTPClient struct {
	from     string
	rcpts    []string
	data     bytes.Buffer
	quit     bool
	closed   bool
	rcptErr  error
	authUser string
}

func (c *fakeSMTPClient) Mail(from string) error { c.from = from; return nil }
func (c *fakeSMTPClient) Rcpt(to string) error {
	if c.rcptErr != nil {
		return c.rcptErr
	}
	c.rcpts = append(c.rcpts, to)
	return nil
}
func (c *fakeSMTPClient) Data() (io.WriteCloser, error)   { return nopWriteCloser{&c.data}, nil }
func (c *fakeSMTPClient) Quit() error                     { c.quit = true; return nil }
func (c *fakeSMTPClient) Close() error                    { c.closed = true; return nil }
func (c *fakeSMTPClient) StartTLS(*tls.Config) error      { return nil }
func (c *fakeSMTPClient) Auth(smtp.Auth) error            { return nil }
func (c *fakeSMTPClient) Extension(string) (bool, string) { return false, "" }

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newFakeMailer(t *testing.T, client *fakeSMTPClient) *smtpMailer {
	t.Helper()
	mailer, err := NewSMTPMailer(SMTPSettings{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     587,
		Username: "robot@example.com",
		From:     "no-reply@example.com",
	})
	require.NoError(t, err)

	sm := mailer.(*smtpMailer)
	sm.dialFn = func(context.Context, SMTPSettings) (net.Conn, smtpClient, error) {
		server, clientConn := net.Pipe()
		t.Cleanup(func() { _ = server.Close() })
		return clientConn, client, nil
	}
	sm.authFn = func(c smtpClient, cfg SMTPSettings) error {
		client.authUser = cfg.Username
		return nil
	}
	sm.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return sm
}

func TestNewSMTPMailerValidatesConfig(t *testing.T) {
	_, err := NewSMTPMailer(SMTPSettings{Enabled: true})
	require.ErrorContains(t, err, "host is required")

	_, err = NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com"})
	require.ErrorContains(t, err, "port is required")

	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, mailer)
}

func TestSMTPMailerDisabled(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: false})
	require.NoError(t, err)

	_, err = mailer.Send(context.Background(), Message{To: []string{"test@example.com"}})
	require.ErrorIs(t, err, ErrSMTPDisabled)
	require.ErrorIs(t, mailer.Verify(context.Background()), ErrSMTPDisabled)
}

func TestSMTPMailerDefaultTimeout(t *testing.T) {
	mailer, err := NewSMTPMailer(SMTPSettings{Enabled: true, Host: "smtp.example.com", Port: 465, UseTLS: true})
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, mailer.(*smtpMailer).cfg.Timeout)
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	sm := newFakeMailer(t, &fakeSMTPClient{})

	_, err := sm.Send(context.Background(), Message{To: []string{"   ", "\t"}})
	require.ErrorContains(t, err, "at least one recipient")
}

func TestSMTPMailerSendValidatesAddresses(t *testing.T) {
	sm := newFakeMailer(t, &fakeSMTPClient{})

	_, err := sm.Send(context.Background(), Message{From: "invalid-from", To: []string{"user@example.com"}})
	require.ErrorContains(t, err, "invalid from address")

	_, err = sm.Send(context.Background(), Message{To: []string{"user@example.com", "bad-address"}})
	require.ErrorContains(t, err, "invalid recipient address")
}

func TestSMTPMailerSendMultipart(t *testing.T) {
	client := &fakeSMTPClient{}
	sm := newFakeMailer(t, client)

	receipt, err := sm.Send(context.Background(), Message{
		To:      []string{"ops@example.com", "ops@example.com", "dev@example.com"},
		Subject: "Backup finished",
		Body:    "All good",
		HTML:    "<p>All good</p>",
	})
	require.NoError(t, err)

	require.Equal(t, "no-reply@example.com", client.from)
	require.Equal(t, []string{"ops@example.com", "dev@example.com"}, client.rcpts)
	require.Equal(t, []string{"ops@example.com", "dev@example.com"}, receipt.Accepted)
	require.True(t, strings.HasSuffix(receipt.MessageID, "@example.com>"))
	require.True(t, client.quit)
	require.Equal(t, "robot@example.com", client.authUser)

	payload := client.data.String()
	require.Contains(t, payload, "Content-Type: multipart/alternative; boundary=")
	require.Contains(t, payload, "text/plain; charset=UTF-8")
	require.Contains(t, payload, "text/html; charset=UTF-8")
	require.Contains(t, payload, "<p>All good</p>")
	require.Contains(t, payload, "Message-ID: "+receipt.MessageID)
}

func TestSMTPMailerSendPropagatesTransportErrors(t *testing.T) {
	client := &fakeSMTPClient{rcptErr: errors.New("550 mailbox unavailable")}
	sm := newFakeMailer(t, client)

	_, err := sm.Send(context.Background(), Message{To: []string{"ops@example.com"}, Body: "x"})
	require.ErrorContains(t, err, "550 mailbox unavailable")
}

func TestSMTPMailerVerify(t *testing.T) {
	client := &fakeSMTPClient{}
	sm := newFakeMailer(t, client)

	require.NoError(t, sm.Verify(context.Background()))
	require.True(t, client.quit)
	require.True(t, client.closed)
}

func TestFormatMessagePlainText(t *testing.T) {
	payload, err := formatMessage("from@example.com", []string{"to@example.com"}, "<id@example.com>",
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message{Subject: "Subject\r\nBreak", Body: "Body"})
	require.NoError(t, err)

	content := string(payload)
	require.Contains(t, content, "From: from@example.com")
	require.Contains(t, content, "Subject: Subject  Break")
	require.Contains(t, content, "Content-Type: text/plain; charset=UTF-8")
	require.True(t, strings.HasSuffix(content, "Body"))
}

func TestUniqueAddresses(t *testing.T) {
	result := uniqueAddresses([]string{"alice@example.com", "bob@example.com", " alice@example.com ", "", "bob@example.com"})
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, result)
}
