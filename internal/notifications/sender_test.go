package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/pkg/mail"
)

type fakeMailer struct {
	sent      []mail.Message
	sendErr   error
	verifyErr error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) (mail.Receipt, error) {
	if f.sendErr != nil {
		return mail.Receipt{}, f.sendErr
	}
	f.sent = append(f.sent, msg)
	return mail.Receipt{MessageID: "<id-1@example.com>", Accepted: msg.To}, nil
}

func (f *fakeMailer) Verify(context.Context) error { return f.verifyErr }

func newTestSender(t *testing.T, mailer *fakeMailer) *Sender {
	t.Helper()
	s, err := NewSender(mailer,
		WithFrom("robot@example.com"),
		WithLocation(time.UTC),
		WithClock(func() time.Time { return time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return s
}

func TestNewSenderRequiresMailer(t *testing.T) {
	_, err := NewSender(nil)
	require.Error(t, err)
}

func TestSendNotification(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)

	receipt, err := s.SendNotification(context.Background(), []string{"ops@example.com"}, "Backup done", "All artifacts written")
	require.NoError(t, err)
	require.Equal(t, "<id-1@example.com>", receipt.MessageID)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	require.Equal(t, "robot@example.com", msg.From)
	require.Equal(t, "Backup done", msg.Subject)
	require.Equal(t, "All artifacts written", msg.Body)
	require.Contains(t, msg.HTML, "<h2>Backup done</h2>")
	require.Contains(t, msg.HTML, "<p>All artifacts written</p>")
	require.Contains(t, msg.HTML, "mensagem automática")
}

func TestSendAlertPrefixesSubject(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)

	_, err := s.SendAlert(context.Background(), []string{"ops@example.com"}, "Disk full", "Only 2% left")
	require.NoError(t, err)

	msg := mailer.sent[0]
	require.Equal(t, "[ALERTA] Disk full", msg.Subject)
	require.Contains(t, msg.HTML, "#f8d7da")
	require.Contains(t, msg.HTML, "Disk full</h2>")
	require.NotContains(t, msg.HTML, "[ALERTA]")
}

func TestTemplatesEscapeUserInput(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)

	_, err := s.SendNotification(context.Background(), []string{"ops@example.com"}, "<b>x</b>", "<script>alert(1)</script>")
	require.NoError(t, err)

	html := mailer.sent[0].HTML
	require.NotContains(t, html, "<script>")
	require.Contains(t, html, "&lt;script&gt;")
	require.Contains(t, html, "&lt;b&gt;x&lt;/b&gt;")
}

func TestSendReport(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)

	_, err := s.SendReport(context.Background(), []string{"boss@example.com"}, "Weekly", ReportData{
		Title:   "Weekly summary",
		Content: "<ul><li>42 orders</li></ul>",
		Trusted: true,
		Rows:    []ReportRow{{Label: "Revenue", Value: "R$ 1.000"}},
	})
	require.NoError(t, err)

	msg := mailer.sent[0]
	require.Equal(t, "Weekly", msg.Subject)
	require.Equal(t, "Relatório: Weekly", msg.Body)
	require.Contains(t, msg.HTML, "<h2>Weekly summary</h2>")
	require.Contains(t, msg.HTML, "<ul><li>42 orders</li></ul>")
	require.Contains(t, msg.HTML, "Revenue")
	require.Contains(t, msg.HTML, "Gerado automaticamente em 01/05/2024 14:30:00")
}

func TestRenderReportEscapesUntrustedContent(t *testing.T) {
	s := newTestSender(t, &fakeMailer{})

	html, err := s.RenderReport(ReportData{Title: "t", Content: "<i>raw</i>"})
	require.NoError(t, err)
	require.Contains(t, html, "&lt;i&gt;raw&lt;/i&gt;")
}

func TestSendPropagatesTransportErrors(t *testing.T) {
	mailer := &fakeMailer{sendErr: errors.New("smtp: 550 rejected")}
	s := newTestSender(t, mailer)

	_, err := s.SendAlert(context.Background(), []string{"ops@example.com"}, "x", "y")
	require.ErrorContains(t, err, "550 rejected")
}

func TestDispatch(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)
	ctx := context.Background()

	_, err := s.Dispatch(ctx, Request{Kind: KindAlert, To: []string{"a@example.com"}, Subject: "s", Text: "t"})
	require.NoError(t, err)
	require.Equal(t, "[ALERTA] s", mailer.sent[0].Subject)

	_, err = s.Dispatch(ctx, Request{Kind: KindReport, To: []string{"a@example.com"}, Subject: "r", Text: "body"})
	require.NoError(t, err)
	require.Contains(t, mailer.sent[1].HTML, "<h2>r</h2>")

	_, err = s.Dispatch(ctx, Request{To: []string{"a@example.com"}, Subject: "n", Text: "t"})
	require.NoError(t, err)
	require.Equal(t, "n", mailer.sent[2].Subject)

	_, err = s.Dispatch(ctx, Request{Kind: "sms"})
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSendKeepsExplicitFrom(t *testing.T) {
	mailer := &fakeMailer{}
	s := newTestSender(t, mailer)

	_, err := s.Send(context.Background(), mail.Message{From: "other@example.com", To: []string{"a@example.com"}, Body: "x"})
	require.NoError(t, err)
	require.Equal(t, "other@example.com", mailer.sent[0].From)
}

func TestVerify(t *testing.T) {
	require.True(t, newTestSender(t, &fakeMailer{}).Verify(context.Background()))
	require.False(t, newTestSender(t, &fakeMailer{verifyErr: errors.New("auth failed")}).Verify(context.Background()))
}
