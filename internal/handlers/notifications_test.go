package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/flowoff/assistente/internal/notifications"
	"github.com/flowoff/assistente/pkg/mail"
)

type stubDispatcher struct {
	requests []notifications.Request
	err      error
}

func (s *stubDispatcher) Dispatch(_ context.Context, req notifications.Request) (mail.Receipt, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return mail.Receipt{}, s.err
	}
	return mail.Receipt{MessageID: "<1@example.com>", Accepted: req.To}, nil
}

func newNotificationRouter(d Dispatcher) *gin.Engine {
	r := newTestEngine()
	r.POST("/notifications", NewNotificationHandler(d).Send)
	return r
}

func TestNotificationHandlerSendAlert(t *testing.T) {
	d := &stubDispatcher{}
	r := newNotificationRouter(d)

	w := doJSON(t, r, http.MethodPost, "/notifications", map[string]any{
		"kind":    "alert",
		"to":      []string{"ops@example.com"},
		"subject": "Disk full",
		"text":    "Only 2% left",
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	data := decodeResponse(t, w).Data.(map[string]any)
	require.Equal(t, "<1@example.com>", data["message_id"])

	require.Len(t, d.requests, 1)
	require.Equal(t, notifications.KindAlert, d.requests[0].Kind)
	require.Nil(t, d.requests[0].Report)
}

func TestNotificationHandlerReportIsUntrusted(t *testing.T) {
	d := &stubDispatcher{}
	r := newNotificationRouter(d)

	w := doJSON(t, r, http.MethodPost, "/notifications", map[string]any{
		"kind":    "report",
		"to":      []string{"boss@example.com"},
		"subject": "Weekly",
		"report": map[string]any{
			"content": "<b>42</b>",
			"rows":    []map[string]string{{"label": "Orders", "value": "42"}},
		},
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	report := d.requests[0].Report
	require.NotNil(t, report)
	require.False(t, report.Trusted)
	require.Equal(t, "Weekly", report.Title)
	require.Equal(t, "Orders", report.Rows[0].Label)
}

func TestNotificationHandlerValidation(t *testing.T) {
	r := newNotificationRouter(&stubDispatcher{})

	cases := []map[string]any{
		{"to": []string{}, "subject": "s"},
		{"to": []string{"not-an-email"}, "subject": "s"},
		{"to": []string{"a@example.com"}},
		{"kind": "sms", "to": []string{"a@example.com"}, "subject": "s"},
	}
	for _, body := range cases {
		w := doJSON(t, r, http.MethodPost, "/notifications", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
}

func TestNotificationHandlerTransportErrors(t *testing.T) {
	w := doJSON(t, newNotificationRouter(&stubDispatcher{err: mail.ErrSMTPDisabled}), http.MethodPost, "/notifications",
		map[string]any{"to": []string{"a@example.com"}, "subject": "s"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "EMAIL_DISABLED", decodeResponse(t, w).Error.Code)

	w = doJSON(t, newNotificationRouter(&stubDispatcher{err: errors.New("550 rejected")}), http.MethodPost, "/notifications",
		map[string]any{"to": []string{"a@example.com"}, "subject": "s"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Equal(t, "EMAIL_SEND_FAILED", decodeResponse(t, w).Error.Code)
}
