package instrumented

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	peerCatalog = "catalog_store"
	peerCart    = "cart_store"
	spanPrefix  = "Store."
)

// recorder times one store call and reports it as an external request.
type recorder struct {
	tel          observability.Observability
	peer         string
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	log          observability.Logger
}

func newRecorder(tel observability.Observability, peer string) recorder {
	tel = observability.OrNop(tel)
	return recorder{
		tel:          tel,
		peer:         peer,
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
		log:          tel.Logger().With(observability.F("peer", peer)),
	}
}

func (r recorder) do(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	ctx, span := r.tel.Tracer().Start(ctx, spanPrefix+r.peer+"."+endpoint,
		attribute.String("peer.service", r.peer),
		attribute.String("store.operation", endpoint),
	)
	start := time.Now()

	err := fn(ctx)

	outcome := "success"
	if err != nil {
		outcome = "error"
		if ctx.Err() != nil {
			outcome = "canceled"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logctx.FromOr(ctx, r.log).Warn("store_call_failed",
			observability.F("endpoint", endpoint),
			observability.F("error", err),
		)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	r.extCounter.Add(1,
		observability.L("peer", r.peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	r.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", r.peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// CatalogRepository decorates a catalog store with tracing and metrics.
type CatalogRepository struct {
	next catalog.Repository
	rec  recorder
}

func NewCatalogRepository(next catalog.Repository, tel observability.Observability) *CatalogRepository {
	return &CatalogRepository{next: next, rec: newRecorder(tel, peerCatalog)}
}

func (r *CatalogRepository) Load(ctx context.Context) (*catalog.Catalog, error) {
	var out *catalog.Catalog
	err := r.rec.do(ctx, "load", func(ctx context.Context) error {
		var err error
		out, err = r.next.Load(ctx)
		return err
	})
	return out, err
}

func (r *CatalogRepository) Save(ctx context.Context, c *catalog.Catalog) error {
	return r.rec.do(ctx, "save", func(ctx context.Context) error {
		return r.next.Save(ctx, c)
	})
}

// CartRepository decorates a cart store with tracing and metrics.
type CartRepository struct {
	next cart.Repository
	rec  recorder
}

func NewCartRepository(next cart.Repository, tel observability.Observability) *CartRepository {
	return &CartRepository{next: next, rec: newRecorder(tel, peerCart)}
}

func (r *CartRepository) Load(ctx context.Context, cat *catalog.Catalog) (*cart.Cart, error) {
	var out *cart.Cart
	err := r.rec.do(ctx, "load", func(ctx context.Context) error {
		var err error
		out, err = r.next.Load(ctx, cat)
		return err
	})
	return out, err
}

func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.rec.do(ctx, "save", func(ctx context.Context) error {
		return r.next.Save(ctx, c)
	})
}

func (r *CartRepository) Reset(ctx context.Context) error {
	return r.rec.do(ctx, "reset", func(ctx context.Context) error {
		return r.next.Reset(ctx)
	})
}
