package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"login-system/internal/domain"
	"login-system/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger *zap.Logger
	auth   *service.AuthService
	cookie *SessionCookie
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, auth *service.AuthService, cookie *SessionCookie) *AuthHandler {
	return &AuthHandler{
		logger: logger,
		auth:   auth,
		cookie: cookie,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// fieldErrorResponse sigue el formato {type,value,msg,path,location}.
type fieldErrorResponse struct {
	Type     string `json:"type"`
	Value    string `json:"value,omitempty"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// Register maneja POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Body invalido: se valida como si los campos vinieran vacios.
		h.logger.Warn("invalid register request", zap.Error(err))
	}

	_, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"errors": toFieldErrors(verr)})
		case errors.Is(err, domain.ErrAlreadyExists):
			h.logger.Info("user already exists", zap.String("username", req.Username))
			c.JSON(http.StatusBadRequest, gin.H{"message": msgUsernameTaken})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"message": msgRegisterFailed})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgRegistered})
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": msgInvalidCredentials})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgLoginFailed})
		return
	}

	// La sesion previa del cliente, si la habia, deja de valer.
	if previous := SessionToken(c); previous != "" {
		if err := h.auth.Logout(c.Request.Context(), previous); err != nil {
			h.logger.Warn("destroy previous session failed", zap.Error(err))
		}
	}

	if err := h.cookie.Set(c, session.Token); err != nil {
		h.logger.Error("session cookie failed", zap.Error(err))
		_ = h.auth.Logout(c.Request.Context(), session.Token)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msgLoginFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgLoggedIn})
}

// Logout maneja POST /logout. Siempre responde 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), SessionToken(c)); err != nil {
		h.logger.Warn("logout failed", zap.Error(err))
	}
	h.cookie.Clear(c)
	c.JSON(http.StatusOK, gin.H{"message": msgLoggedOut})
}

// Dashboard maneja GET /dashboard; requiere RequireSession antes.
func (h *AuthHandler) Dashboard(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok || !identity.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgUnauthorized})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgDashboard})
}

func toFieldErrors(verr *service.ValidationError) []fieldErrorResponse {
	out := make([]fieldErrorResponse, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, fieldErrorResponse{
			Type:     "field",
			Value:    f.Value,
			Msg:      f.Message,
			Path:     f.Field,
			Location: "body",
		})
	}
	return out
}
