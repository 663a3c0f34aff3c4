package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/application"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-cart/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const workerService = "ledger_worker"

// Worker turns cart and billing events into ledger movements.
type Worker struct {
	subscriber domoutbox.Subscriber
	useCase    application.UseCase[Movement, Totals]
	tel        observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewWorker(
	subscriber domoutbox.Subscriber,
	useCase application.UseCase[Movement, Totals],
	tel observability.Observability,
) *Worker {
	tel = observability.OrNop(tel)
	metrics := tel.Metrics()
	return &Worker{
		subscriber:   subscriber,
		useCase:      useCase,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", workerService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.useCase == nil {
		return
	}
	w.subscriber.Subscribe(cart.ItemAddedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(cart.ItemReducedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(cart.ItemRemovedEvent{}.EventName(), w.handle)
	w.subscriber.Subscribe(billing.BillGeneratedEvent{}.EventName(), w.handle)
}

// movements maps an event to the ledger entries it implies. ok is false for
// events the ledger does not track.
func movements(e domoutbox.Event) (out []Movement, ok bool) {
	switch evt := e.(type) {
	case cart.ItemAddedEvent:
		return []Movement{{ProductID: evt.ProductID, Kind: MovementReserved, Units: evt.Quantity}}, true
	case cart.ItemReducedEvent:
		return []Movement{{ProductID: evt.ProductID, Kind: MovementReleased, Units: evt.Quantity}}, true
	case cart.ItemRemovedEvent:
		return []Movement{{ProductID: evt.ProductID, Kind: MovementReleased, Units: evt.Quantity}}, true
	case billing.BillGeneratedEvent:
		for _, l := range evt.Lines {
			out = append(out, Movement{ProductID: l.ProductID, Kind: MovementSold, Units: l.Quantity})
		}
		return out, true
	}
	return nil, false
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) error {
	useCase := "ledger.worker." + e.EventName()
	moves, ok := movements(e)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	ctx, span := w.tel.Tracer().Start(ctx, spanPrefix+"LedgerEvent",
		attribute.String("use_case", useCase),
		attribute.String("event", e.EventName()),
		attribute.Int("ledger.movements", len(moves)),
	)
	start := time.Now()
	outcome, status := "success", "OK"

	ctx, logger := logctx.Enrich(ctx, w.log,
		observability.F("use_case", useCase),
		observability.F("event", e.EventName()),
	)

	var errs []error
	defer func() {
		lat := time.Since(start).Seconds()
		w.count(useCase, outcome)
		w.durHistogram.Observe(lat, observability.L("use_case", useCase))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
			observability.F("movements", len(moves)),
		}
		if len(errs) > 0 {
			fields = append(fields, observability.F("error", errors.Join(errs...).Error()))
		}
		logger.Info("use_case_done", fields...)

		if outcome == "error" {
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		span.End()
	}()

	for _, m := range moves {
		if _, err := w.useCase.Execute(ctx, m); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		outcome, status = "error", "MOVEMENT_REJECTED"
		return fmt.Errorf("worker: ledger %s: %w", e.EventName(), errors.Join(errs...))
	}
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}
