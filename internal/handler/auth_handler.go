package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/service"
)

var authHandlerTracer = otel.Tracer("handler/auth")

// LoginHandler authenticates the operator and issues an access token.
// POST /v1/auth/login
func LoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := authHandlerTracer.Start(r.Context(), "LoginHandler")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
