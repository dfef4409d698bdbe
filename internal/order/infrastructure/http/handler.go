package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/dmehra2102/Food-Ordering-System/internal/order/application"
	"github.com/dmehra2102/Food-Ordering-System/internal/order/domain"
	"github.com/dmehra2102/Food-Ordering-System/internal/payment/infrastructure/stripe"
	"github.com/dmehra2102/Food-Ordering-System/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxWebhookBody  = 64 << 10
	maxCheckoutBody = 1 << 20
)

type Handler struct {
	log         *slog.Logger
	service     *application.Service
	auth        *Authenticator
	validate    *validator.Validate
	tracer      trace.Tracer
	frontendURL string
}

func NewHandler(log *slog.Logger, service *application.Service, auth *Authenticator, frontendURL string) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		log:         log,
		service:     service,
		auth:        auth,
		validate:    v,
		tracer:      otel.Tracer("order-http"),
		frontendURL: frontendURL,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, metrics.Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/order", func(r chi.Router) {
		// The webhook reads the raw body; nothing may decode it before signature verification.
		r.Post("/checkout/webhook", h.paymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(h.auth.Middleware)
			r.Get("/", h.listMyOrders)
			r.Post("/checkout/create-checkout-session", h.createCheckoutSession)
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{h.frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckoutSession")
	defer span.End()

	var req checkoutSessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckoutBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: validationMessage(err)})
		return
	}
	span.SetAttributes(attribute.String("restaurant.id", req.RestaurantID))

	url, err := h.service.CreateCheckoutSession(ctx, userIDFrom(ctx), req.toApplication())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status, msg := checkoutError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("create checkout session failed", "restaurant_id", req.RestaurantID, "err", err)
		}
		writeJSON(w, status, messageResponse{Message: msg})
		return
	}
	writeJSON(w, http.StatusOK, checkoutSessionResponse{URL: url})
}

func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: "Webhook error: body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Webhook error: unreadable body"})
		return
	}

	outcome, err := h.service.HandlePaymentWebhook(ctx, application.WebhookDelivery{
		Payload:   payload,
		Signature: r.Header.Get(stripe.SignatureHeader),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		status, msg := webhookError(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("payment webhook failed", "err", err)
		}
		writeJSON(w, status, messageResponse{Message: msg})
		return
	}
	span.SetAttributes(attribute.String("webhook.outcome", string(outcome)))
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMyOrders")
	defer span.End()

	orders, err := h.service.ListMyOrders(ctx, userIDFrom(ctx))
	if err != nil {
		span.RecordError(err)
		h.log.Error("list orders failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func checkoutError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrRestaurantNotFound):
		return http.StatusNotFound, "Restaurant not found"
	case errors.Is(err, application.ErrMenuItemNotFound),
		errors.Is(err, application.ErrInvalidQuantity),
		errors.Is(err, application.ErrEmptyCart):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, application.ErrSessionCreationFailed):
		return http.StatusInternalServerError, "Error creating Stripe session"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func webhookError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrInvalidSignature),
		errors.Is(err, application.ErrMalformedEvent):
		return http.StatusBadRequest, "Webhook error: " + err.Error()
	case errors.Is(err, application.ErrMissingOrderID),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, application.ErrOrderNotFound):
		return http.StatusNotFound, "Order not found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "checkoutSessionRequest.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
