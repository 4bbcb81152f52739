package usecase

import (
	"context"
	"sync"

	"github.com/productstudio/backend/internal/domain"
	"github.com/productstudio/backend/internal/infrastructure/backend"
	"go.uber.org/zap"
)

// Editable top-level product fields
const (
	FieldName     = "name"
	FieldSKU      = "sku"
	FieldBarcode  = "barcode"
	FieldCategory = "category"
)

// Store holds the ordered products of one completed run.
// Every mutation addresses a record by id and touches nothing else;
// an id that is not in the store makes the call a no-op.
type Store struct {
	mu       sync.RWMutex
	products []domain.Product
	regen    domain.Regenerator
	logger   *zap.Logger
}

// NewStore takes ownership of products
func NewStore(products []domain.Product, regen domain.Regenerator, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{products: products, regen: regen, logger: logger}
}

// Products returns a deep copy of the records in order
func (s *Store) Products() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, len(s.products))
	for i, p := range s.products {
		out[i] = p.Clone()
	}
	return out
}

// Get returns a copy of one record
func (s *Store) Get(id string) (domain.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.index(id); i >= 0 {
		return s.products[i].Clone(), true
	}
	return domain.Product{}, false
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

// SetField sets one top-level scalar field. An empty barcode or category
// removes the optional field.
func (s *Store) SetField(id, field, value string) error {
	var apply func(p *domain.Product)

	switch field {
	case FieldName:
		apply = func(p *domain.Product) { p.Name = value }
	case FieldSKU:
		apply = func(p *domain.Product) { p.SKU = value }
	case FieldBarcode:
		apply = func(p *domain.Product) {
			if value == "" {
				p.Barcode = nil
				return
			}
			v := value
			p.Barcode = &v
		}
	case FieldCategory:
		if value == "" {
			apply = func(p *domain.Product) { p.Category = nil }
			break
		}
		category, ok := domain.ParseCategory(value)
		if !ok {
			return domain.NewValidationError("unknown category %q", value)
		}
		apply = func(p *domain.Product) { p.Category = &category }
	default:
		return domain.NewValidationError("field %q cannot be edited", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		apply(&s.products[i])
	}
	return nil
}

// SetDescriptionField sets one of the three description texts,
// creating the descriptions object when the record has none
func (s *Store) SetDescriptionField(id, which, value string) error {
	switch which {
	case domain.DescriptionShort, domain.DescriptionMeta, domain.DescriptionLong:
	default:
		return domain.NewValidationError("unknown description field %q", which)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return nil
	}
	// a fresh value so copies handed out earlier never observe the edit
	d := domain.Descriptions{}
	if s.products[i].Descriptions != nil {
		d = *s.products[i].Descriptions
	}
	switch which {
	case domain.DescriptionShort:
		d.ShortDescription = value
	case domain.DescriptionMeta:
		d.MetaDescription = value
	case domain.DescriptionLong:
		d.LongDescription = value
	}
	s.products[i].Descriptions = &d
	return nil
}

// Regenerate asks the backend to rewrite one record's content. On success
// the record is replaced and keeps its id; on failure it is left unchanged.
func (s *Store) Regenerate(ctx context.Context, id string) error {
	current, ok := s.Get(id)
	if !ok {
		return nil
	}
	if current.Category == nil {
		return domain.NewValidationError("Please set a category before regenerating %q", current.Name)
	}

	s.logger.Info("regenerating product", zap.String("id", id), zap.String("category", string(*current.Category)))

	body, err := s.regen.GenerateBrandVoice(ctx, []domain.Product{current}, *current.Category)
	if err != nil {
		s.logger.Warn("regeneration failed", zap.String("id", id), zap.Error(err))
		return err
	}
	products := backend.DecodeProducts(body)
	if len(products) == 0 {
		return &domain.Error{Kind: domain.ErrEmptyResult, Message: "Regeneration returned no product"}
	}

	updated := products[0]
	updated.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.products[i] = updated
	}
	return nil
}

func (s *Store) index(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}
