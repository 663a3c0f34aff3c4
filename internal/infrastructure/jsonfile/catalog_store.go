package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Zhima-Mochi/minishop-cart/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability"
	"github.com/Zhima-Mochi/minishop-cart/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-cart/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

// productRecord is one element of the catalog file. Pointers distinguish an
// absent field from a zero value.
type productRecord struct {
	ProductID         *string      `json:"product_id" validate:"required,min=1"`
	Name              *string      `json:"name" validate:"required"`
	Price             json.Number  `json:"price" validate:"required,numeric"`
	QuantityAvailable *int         `json:"quantity_available" validate:"required,gte=0"`
	Kind              catalog.Kind `json:"kind,omitempty" validate:"omitempty,oneof=generic physical digital"`
	Weight            *float64     `json:"weight,omitempty" validate:"omitempty,gte=0"`
	DownloadLink      *string      `json:"download_link,omitempty"`
}

// CatalogStore persists the catalog as a JSON array of product records.
type CatalogStore struct {
	path string
	log  observability.Logger
}

func NewCatalogStore(path string, logger observability.Logger) *CatalogStore {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CatalogStore{
		path: path,
		log:  logger.With(observability.F("component", "catalog_store"), observability.F("path", path)),
	}
}

// Load reads the catalog file. A missing file yields an empty catalog; a
// record that cannot become a product is skipped and listed in Skipped.
func (s *CatalogStore) Load(ctx context.Context) (*catalog.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := logctx.FromOr(ctx, s.log)

	cat := catalog.New()
	data, ok, err := readFile(s.path)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Info("catalog_file_missing")
		return cat, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cat, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog store: decode %s: %w", s.path, err)
	}

	for i, msg := range raw {
		p, id, err := decodeProduct(msg)
		if err == nil {
			err = cat.Add(p)
		}
		if err != nil {
			cat.Skipped = append(cat.Skipped, catalog.SkippedRecord{Index: i, ID: id, Reason: err.Error()})
			logger.Warn("catalog_record_skipped",
				observability.F("index", i),
				observability.F("product_id", id),
				observability.F("error", err),
			)
		}
	}
	return cat, nil
}

func decodeProduct(msg json.RawMessage) (*catalog.Product, string, error) {
	var rec productRecord
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, "", fmt.Errorf("decode record: %w", err)
	}

	var id string
	if rec.ProductID != nil {
		id = *rec.ProductID
	}
	if err := validator.Validate(rec); err != nil {
		return nil, id, err
	}

	price, err := decimal.NewFromString(rec.Price.String())
	if err != nil {
		return nil, id, fmt.Errorf("price %q: %w", rec.Price, err)
	}

	kind, err := resolveKind(rec)
	if err != nil {
		return nil, id, err
	}

	var p *catalog.Product
	switch kind {
	case catalog.KindPhysical:
		p, err = catalog.NewPhysicalProduct(id, *rec.Name, price, *rec.QuantityAvailable, *rec.Weight)
	case catalog.KindDigital:
		p, err = catalog.NewDigitalProduct(id, *rec.Name, price, *rec.QuantityAvailable, *rec.DownloadLink)
	default:
		p, err = catalog.NewProduct(id, *rec.Name, price, *rec.QuantityAvailable)
	}
	return p, id, err
}

// resolveKind honours an explicit kind and otherwise falls back to field
// presence, where weight wins over download_link.
func resolveKind(rec productRecord) (catalog.Kind, error) {
	hasWeight, hasLink := rec.Weight != nil, rec.DownloadLink != nil

	switch rec.Kind {
	case catalog.KindPhysical:
		if !hasWeight {
			return "", fmt.Errorf("kind %q requires weight", rec.Kind)
		}
		return catalog.KindPhysical, nil
	case catalog.KindDigital:
		if !hasLink {
			return "", fmt.Errorf("kind %q requires download_link", rec.Kind)
		}
		return catalog.KindDigital, nil
	case catalog.KindGeneric:
		if hasWeight || hasLink {
			return "", fmt.Errorf("kind %q cannot carry weight or download_link", rec.Kind)
		}
		return catalog.KindGeneric, nil
	}

	switch {
	case hasWeight:
		return catalog.KindPhysical, nil
	case hasLink:
		return catalog.KindDigital, nil
	default:
		return catalog.KindGeneric, nil
	}
}

// Save writes every product, in catalog order, with its current availability
// and an explicit kind.
func (s *CatalogStore) Save(ctx context.Context, c *catalog.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	products := c.Products()
	records := make([]productRecord, 0, len(products))
	for _, p := range products {
		records = append(records, encodeProduct(p))
	}
	if err := writeJSON(s.path, records); err != nil {
		return fmt.Errorf("catalog store: %w", err)
	}

	logctx.FromOr(ctx, s.log).Debug("catalog_saved", observability.F("products", len(records)))
	return nil
}

func encodeProduct(p *catalog.Product) productRecord {
	id, name, qty := p.ID, p.Name, p.QuantityAvailable()
	rec := productRecord{
		ProductID:         &id,
		Name:              &name,
		Price:             json.Number(p.Price.String()),
		QuantityAvailable: &qty,
		Kind:              p.Kind,
	}
	switch p.Kind {
	case catalog.KindPhysical:
		w := p.Weight
		rec.Weight = &w
	case catalog.KindDigital:
		link := p.DownloadLink
		rec.DownloadLink = &link
	}
	return rec
}
