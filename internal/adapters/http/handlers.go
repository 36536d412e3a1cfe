package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/deviceautosetup/provisioning/internal/application"
	"github.com/deviceautosetup/provisioning/internal/domain"
)

// Handler is the HTTP adapter entrypoint for provisioning use-cases.
// Keeping only the application dependency here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	readyFn func(ctx context.Context) error
}

// NewHandler constructs an HTTP handler bound to the application
// service. readyFn probes the backing dependencies for /readyz and may
// be nil when no probe is wired (tests).
func NewHandler(service *application.Service, readyFn func(ctx context.Context) error) *Handler {
	return &Handler{service: service, readyFn: readyFn}
}

type registerResult struct {
	Token     string               `json:"jwt"`
	DeviceID  string               `json:"device_id"`
	ExpiresIn int64                `json:"expires_in"`
	Config    domain.ConfigPayload `json:"config"`
}

// register runs the full registration chain: validate, derive identity,
// mint and persist the credential, then resolve configuration. The
// response is emitted only after the whole chain completes.
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	cfg, err := h.service.ResolveConfig(r.Context(), req.DeviceInfo)
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	writeSuccess(w, http.StatusCreated, registerResult{
		Token:     res.Token,
		DeviceID:  res.DeviceID,
		ExpiresIn: res.ExpiresIn,
		Config:    cfg,
	})
}

// fetchConfig serves configuration to an already-registered device. The
// bearer token must verify and its issuance lineage must still be the
// one on record before any payload is returned.
func (h *Handler) fetchConfig(w http.ResponseWriter, r *http.Request) {
	token, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		logHTTPOperationError(r.Context(), "fetch_config", http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", err)
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}

	claims, err := h.service.Authenticate(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "fetch_config", err)
		return
	}

	cfg, err := h.service.ResolveConfig(r.Context(), claims.Attributes)
	if err != nil {
		writeMappedError(r.Context(), w, "fetch_config", err)
		return
	}

	writeSuccess(w, http.StatusOK, application.ConfigResponse{Config: cfg})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.readyFn != nil {
		if err := h.readyFn(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: empty request body", domain.ErrInvalidInput)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	return nil
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	statusCode, code, message := mapDomainError(err)
	logHTTPOperationError(ctx, operation, statusCode, code, message, err)
	writeError(w, statusCode, code, message)
}
