package handlers

import (
	stdErrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/flowoff/assistente/internal/auth"
	"github.com/flowoff/assistente/pkg/errors"
	"github.com/flowoff/assistente/pkg/logger"
	"github.com/flowoff/assistente/pkg/response"
)

// AuthHandler exchanges operator credentials for bearer tokens.
type AuthHandler struct {
	admin iauth.AdminCredentials
	jwt   *iauth.JWTService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(admin iauth.AdminCredentials, jwt *iauth.JWTService) *AuthHandler {
	return &AuthHandler{admin: admin, jwt: jwt}
}

type tokenRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.admin.Authenticate(req.Username, req.Password); err != nil {
		if stdErrors.Is(err, iauth.ErrAdminDisabled) {
			response.Error(c, errors.New("AUTH_DISABLED", "Admin login is not configured", http.StatusServiceUnavailable))
			return
		}
		logger.WithModule("http").Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	token, err := h.jwt.Issue(h.admin.Username, iauth.ScopeAdmin)
	if err != nil {
		response.Error(c, errors.Wrap(err, "Failed to issue token"))
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{
		AccessToken: token.Value,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.jwt.TTL().Seconds()),
	})
}
