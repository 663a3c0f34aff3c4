package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ledgerService    = "ledger-service"
	useCaseRecord    = "ledger.record_movement"
	spanPrefix       = "UC."
	ledgerSpanName   = "RecordMovement"
	MovementReserved = "reserved"
	MovementReleased = "released"
	MovementSold     = "sold"
)

var ErrInvalidMovement = errors.New("ledger: invalid movement")

// Movement is a number of units of one product changing hands.
type Movement struct {
	ProductID string
	Kind      string
	Units     int
}

func (m Movement) validate() error {
	if m.ProductID == "" {
		return fmt.Errorf("%w: product id is required", ErrInvalidMovement)
	}
	switch m.Kind {
	case MovementReserved, MovementReleased, MovementSold:
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidMovement, m.Kind)
	}
	if m.Units <= 0 {
		return fmt.Errorf("%w: units must be positive", ErrInvalidMovement)
	}
	return nil
}

// Totals are the cumulative units per movement kind for one product.
type Totals struct {
	ProductID string
	Reserved  int
	Released  int
	Sold      int
}

// Held is what the cart still holds: reserved minus released and sold.
func (t Totals) Held() int { return t.Reserved - t.Released - t.Sold }

// Book accumulates movements in memory.
type Book struct {
	mu     sync.RWMutex
	totals map[string]*Totals
}

func NewBook() *Book {
	return &Book{totals: make(map[string]*Totals)}
}

func (b *Book) apply(m Movement) Totals {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.totals[m.ProductID]
	if !ok {
		t = &Totals{ProductID: m.ProductID}
		b.totals[m.ProductID] = t
	}
	switch m.Kind {
	case MovementReserved:
		t.Reserved += m.Units
	case MovementReleased:
		t.Released += m.Units
	case MovementSold:
		t.Sold += m.Units
	}
	return *t
}

// Snapshot returns the totals ordered by product id.
func (b *Book) Snapshot() []Totals {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Totals, 0, len(b.totals))
	for _, t := range b.totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// RecordMovementUseCase books one movement and exports it as stock_units_total.
type RecordMovementUseCase struct {
	book   *Book
	log    observability.Logger
	tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	units        observability.Counter   // stock_units_total{product_id,movement}
}

func NewRecordMovementUseCase(book *Book, tel observability.Observability) *RecordMovementUseCase {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()
	return &RecordMovementUseCase{
		book:         book,
		log:          tel.Logger().With(observability.F("service", ledgerService)),
		tracer:       tel.Tracer(),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		units:        metrics.Counter(observability.MStockUnits),
	}
}

func (uc *RecordMovementUseCase) Execute(ctx context.Context, m Movement) (_ Totals, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseRecord),
		observability.F("product_id", m.ProductID),
		observability.F("movement", m.Kind),
		observability.F("units", m.Units),
	)

	ctx, span := uc.tracer.Start(ctx, spanPrefix+ledgerSpanName,
		attribute.String("use_case", useCaseRecord),
		attribute.String("product.id", m.ProductID),
		attribute.String("ledger.movement", m.Kind),
		attribute.Int("ledger.units", m.Units),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseRecord),
			observability.L("outcome", outcome),
		)
		uc.durHistogram.Observe(latency, observability.L("use_case", useCaseRecord))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Debug("use_case_done", fields...)
	}()

	if err = m.validate(); err != nil {
		outcome, statusText = "error", "MOVEMENT_INVALID"
		return Totals{}, err
	}

	totals := uc.book.apply(m)
	uc.units.Add(float64(m.Units),
		observability.L("product_id", m.ProductID),
		observability.L("movement", m.Kind),
	)
	span.SetAttributes(attribute.Int("ledger.held", totals.Held()))
	return totals, nil
}
