package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/application/shopping"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-cart/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	svc *shopping.Service
	log observability.Logger
	tel observability.Observability

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "minishop-cart.http"
)

func NewHandler(svc *shopping.Service, logger observability.Logger, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	if logger == nil {
		logger = tel.Logger()
	}
	return &Handler{
		svc:          svc,
		log:          logger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Trace → request logger → HTTP metrics → access log → handler
	h.handle(r, http.MethodGet, "/products", h.handleListProducts)
	h.handle(r, http.MethodGet, "/cart", h.handleViewCart)
	h.handle(r, http.MethodPost, "/cart/items", h.handleAddItem)
	h.handle(r, http.MethodPost, "/cart/items/{productID}/reduce", h.handleReduceItem)
	h.handle(r, http.MethodDelete, "/cart/items/{productID}", h.handleRemoveItem)
	h.handle(r, http.MethodPost, "/checkout", h.handleCheckout)
	h.handle(r, http.MethodGet, "/health", h.handleHealth)

	return r
}

func (h *Handler) handle(r chi.Router, method, route string, handler http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), method+" "+route)))
	}))
}

type productResponse struct {
	ProductID         string   `json:"product_id"`
	Name              string   `json:"name"`
	Kind              string   `json:"kind"`
	Price             string   `json:"price"`
	QuantityAvailable int      `json:"quantity_available"`
	WeightKg          *float64 `json:"weight_kg,omitempty"`
	DownloadLink      string   `json:"download_link,omitempty"`
}

func toProductResponse(p shopping.ProductView) productResponse {
	out := productResponse{
		ProductID:         p.ID,
		Name:              p.Name,
		Kind:              string(p.Kind),
		Price:             p.Price.StringFixed(2),
		QuantityAvailable: p.QuantityAvailable,
		DownloadLink:      p.DownloadLink,
	}
	if p.Weight != 0 {
		w := p.Weight
		out.WeightKg = &w
	}
	return out
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.svc.ListProducts(r.Context())
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

type lineResponse struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

type cartResponse struct {
	Lines []lineResponse `json:"lines"`
	Total string         `json:"total"`
}

func (h *Handler) handleViewCart(w http.ResponseWriter, r *http.Request) {
	view := h.svc.ViewCart(r.Context())
	out := cartResponse{Lines: make([]lineResponse, 0, len(view.Lines)), Total: view.Total.StringFixed(2)}
	for _, l := range view.Lines {
		out.Lines = append(out.Lines, lineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice.StringFixed(2),
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal.StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"required"`
}

type reduceItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type lineChangeResponse struct {
	ProductID    string `json:"product_id"`
	Moved        int    `json:"moved"`
	LineQuantity int    `json:"line_quantity"`
	Available    int    `json:"available"`
}

func toLineChangeResponse(c shopping.LineChange) lineChangeResponse {
	return lineChangeResponse{
		ProductID:    c.ProductID,
		Moved:        c.Moved,
		LineQuantity: c.LineQuantity,
		Available:    c.Available,
	}
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := validator.DecodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	change, err := h.svc.AddItem(r.Context(), normalizeID(req.ProductID), *req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineChangeResponse(change))
}

func (h *Handler) handleReduceItem(w http.ResponseWriter, r *http.Request) {
	var req reduceItemRequest
	if err := validator.DecodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	change, err := h.svc.UpdateQuantity(r.Context(), normalizeID(chi.URLParam(r, "productID")), *req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineChangeResponse(change))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	change, err := h.svc.RemoveItem(r.Context(), normalizeID(chi.URLParam(r, "productID")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineChangeResponse(change))
}

type billLineResponse struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	UnitPrice    string   `json:"unit_price"`
	Quantity     int      `json:"quantity"`
	Subtotal     string   `json:"subtotal"`
	WeightKg     *float64 `json:"weight_kg,omitempty"`
	DownloadLink string   `json:"download_link,omitempty"`
}

type billResponse struct {
	BillID     string             `json:"bill_id"`
	IssuedAt   time.Time          `json:"issued_at"`
	Lines      []billLineResponse `json:"lines"`
	GrandTotal string             `json:"grand_total"`
}

func toBillResponse(b *billing.Bill) billResponse {
	out := billResponse{
		BillID:     b.ID,
		IssuedAt:   b.IssuedAt,
		Lines:      make([]billLineResponse, 0, len(b.Lines)),
		GrandTotal: b.GrandTotal.StringFixed(2),
	}
	for _, l := range b.Lines {
		line := billLineResponse{
			ProductID:    l.ProductID,
			Name:         l.Name,
			Kind:         string(l.Kind),
			UnitPrice:    l.UnitPrice.StringFixed(2),
			Quantity:     l.Quantity,
			Subtotal:     l.Subtotal.StringFixed(2),
			DownloadLink: l.DownloadLink,
		}
		if l.Weight != 0 {
			w := l.Weight
			line.WeightKg = &w
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	bill, err := h.svc.Checkout(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBillResponse(bill))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		template := route
		if _, after, ok := strings.Cut(route, " "); ok {
			template = after
		}

		ctx, span := otel.Tracer(tracerName).Start(parentCtx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", template),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records request count and latency with low-cardinality labels.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

// normalizeID applies the caller-side id convention: trimmed, upper case.
func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeRequestError(w http.ResponseWriter, err error) {
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields(),
		})
		return
	}
	writeError(w, http.StatusBadRequest, err)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shopping.ErrUnknownProduct),
		errors.Is(err, shopping.ErrNotInCart):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, shopping.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, shopping.ErrInvalidQuantity),
		errors.Is(err, shopping.ErrExceedsLineQuantity):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template so metrics and logs use
// low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
