package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/kirillkom/file-processor/internal/core/domain"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req tokenRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Username, validation.Required, validation.Length(1, 128)),
		validation.Field(&req.Password, validation.Required, validation.Length(1, 256)),
	)
}

func (rt *Router) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "token request", err))
		return
	}

	token, err := rt.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (rt *Router) authenticated(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="file-processor"`)
			writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing bearer token")))
			return
		}
		owner, err := rt.auth.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="file-processor", error="invalid_token"`)
			writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("invalid token")))
			return
		}
		next(w, r, owner)
	}
}

func bearerToken(headerValue string) (string, bool) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if len(headerValue) <= len(bearerPrefix) || !strings.EqualFold(headerValue[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(headerValue[len(bearerPrefix):])
	return token, token != ""
}
