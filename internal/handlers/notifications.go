package handlers

import (
	"context"
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowoff/assistente/internal/notifications"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/mail"
	"github.com/flowoff/assistente/pkg/response"
)

// Dispatcher sends a templated email.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notifications.Request) (mail.Receipt, error)
}

// NotificationHandler sends notification, alert and report emails on request.
type NotificationHandler struct {
	sender Dispatcher
}

// NewNotificationHandler constructs a notification handler.
func NewNotificationHandler(sender Dispatcher) *NotificationHandler {
	return &NotificationHandler{sender: sender}
}

type reportPayload struct {
	Title   string                    `json:"title" validate:"max=256"`
	Content string                    `json:"content"`
	Rows    []notifications.ReportRow `json:"rows" validate:"max=200"`
}

type sendNotificationRequest struct {
	Kind    string         `json:"kind" validate:"omitempty,oneof=notification alert report"`
	To      []string       `json:"to" validate:"required,min=1,max=50,dive,email"`
	Subject string         `json:"subject" validate:"required,max=256"`
	Text    string         `json:"text" validate:"max=65536"`
	Report  *reportPayload `json:"report"`
}

type sendNotificationResponse struct {
	MessageID string   `json:"message_id"`
	Accepted  []string `json:"accepted"`
}

// Send handles POST /api/notifications.
func (h *NotificationHandler) Send(c *gin.Context) {
	var req sendNotificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dispatch := notifications.Request{
		Kind:    notifications.Kind(req.Kind),
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Text,
	}
	if req.Report != nil {
		// API content is never trusted markup.
		dispatch.Report = &notifications.ReportData{
			Title:   req.Report.Title,
			Content: req.Report.Content,
			Rows:    req.Report.Rows,
		}
		if dispatch.Report.Title == "" {
			dispatch.Report.Title = req.Subject
		}
	}

	receipt, err := h.sender.Dispatch(requestContext(c), dispatch)
	if err != nil {
		if stdErrors.Is(err, notifications.ErrUnknownKind) {
			response.Error(c, errors.NewBadRequest(err.Error()))
			return
		}
		if stdErrors.Is(err, mail.ErrSMTPDisabled) {
			response.Error(c, errors.New("EMAIL_DISABLED", "Email delivery is not configured", http.StatusServiceUnavailable))
			return
		}
		response.Error(c, errors.New("EMAIL_SEND_FAILED", "Email could not be sent", http.StatusBadGateway).WithInternal(err))
		return
	}

	response.Success(c, http.StatusAccepted, sendNotificationResponse{
		MessageID: receipt.MessageID,
		Accepted:  receipt.Accepted,
	})
}
