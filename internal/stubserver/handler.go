package stubserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "authsecure/internal/errors"
	api "authsecure/pkg/contracts/api/v1"
)

// Handler answers the single form-POST endpoint of the vendor protocol
type Handler struct {
	backend  *Backend
	validate *validator.Validate
	logger   *slog.Logger
	requests *prometheus.CounterVec
}

// NewHandler creates the protocol handler and registers its metrics on reg
func NewHandler(backend *Backend, reg prometheus.Registerer, logger *slog.Logger) (*Handler, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authsecure_stub_requests_total",
		Help: "Requests handled by the stub backend by operation and outcome",
	}, []string{"type", "outcome"})
	if err := reg.Register(requests); err != nil {
		return nil, fmt.Errorf("failed to register request counter: %w", err)
	}

	validate := validator.New()
	// report wire field names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Handler{
		backend:  backend,
		validate: validate,
		logger:   logger.With(slog.String("handler", "api")),
		requests: requests,
	}, nil
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.fail(w, r, "unknown", "Invalid request body")
		return
	}

	req, err := api.ParseRequest(r.PostForm)
	if err != nil {
		h.fail(w, r, "unknown", "Invalid request type")
		return
	}
	op := string(req.Type())

	if err := h.validate.Struct(req); err != nil {
		h.fail(w, r, op, missingFields(err))
		return
	}

	ip := clientIP(r)
	var env api.Envelope
	switch req := req.(type) {
	case api.InitRequest:
		env.SessionID, err = h.backend.Init(req)
	case api.LoginRequest:
		env.Info, err = h.backend.Login(req, ip)
	case api.RegisterRequest:
		env.Info, err = h.backend.Register(req, ip)
	case api.LicenseRequest:
		env.Info, err = h.backend.License(req, ip)
	}

	if err != nil {
		msg, ok := apperrors.ServerMessage(err)
		if !ok {
			h.logger.ErrorContext(ctx, "Backend failure", slog.String("type", op), slog.String("error", err.Error()))
			h.requests.WithLabelValues(op, "error").Inc()
			render.Render(w, r, apperrors.FailureWithStatus(http.StatusInternalServerError, "Internal server error"))
			return
		}
		h.logger.InfoContext(ctx, "Request rejected", slog.String("type", op), slog.String("message", msg))
		h.fail(w, r, op, msg)
		return
	}

	env.Success = true
	h.requests.WithLabelValues(op, "success").Inc()
	h.logger.DebugContext(ctx, "Request accepted", slog.String("type", op), slog.String("ip", ip))
	render.JSON(w, r, env)
}

// fail answers with HTTP 200 and success:false, as the vendor backend does
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op, message string) {
	h.requests.WithLabelValues(op, "rejected").Inc()
	render.Render(w, r, apperrors.Failure(message))
}

func missingFields(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "Missing required fields: " + strings.Join(fields, ", ")
}

// clientIP prefers the address set by chi's RealIP middleware
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
