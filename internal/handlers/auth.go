package handlers

import (
	"mime"
	"net/http"

	"github.com/pliu/chatd/internal/apperr"
	"github.com/pliu/chatd/internal/auth"
	"github.com/pliu/chatd/internal/metrics"
)

type AuthHandler struct {
	Auth    *auth.Service
	Metrics *metrics.Metrics
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Login accepts a JSON body or an OAuth2 password form where "username" carries the email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, err := loginRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	h.Metrics.Logins.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func loginRequest(r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && err != http.ErrNotMultipart {
			return req, apperr.InvalidArgument("Invalid form body")
		}
		req.Email = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
		return req, validateStruct(req)
	default:
		return req, decodeJSON(r, &req)
	}
}

// Refresh takes the refresh token from the JSON body, or from the query string.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if token := r.URL.Query().Get("refresh_token"); token != "" {
		req.RefreshToken = token
	} else if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), req.RefreshToken)
	h.Metrics.TokenRefresh.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := caller(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}
