package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

// Lookups resolves reference data (brands, categories, suppliers) with
// process-wide caches. The caches are mutex-guarded; one Lookups value is
// shared by every concurrent message handler.
type Lookups struct {
	db         *gorm.DB
	mu         *sync.Mutex
	brands     map[string]uuid.UUID
	categories map[string]uuid.UUID
	suppliers  map[uuid.UUID]*models.Supplier
}

// NewLookups builds a lookup helper bound to the given connection.
func NewLookups(db *gorm.DB) *Lookups {
	return &Lookups{
		db:         db,
		mu:         &sync.Mutex{},
		brands:     map[string]uuid.UUID{},
		categories: map[string]uuid.UUID{},
		suppliers:  map[uuid.UUID]*models.Supplier{},
	}
}

// WithTx returns a lookup helper bound to the transaction but sharing the
// caches and their lock.
func (l *Lookups) WithTx(tx *gorm.DB) *Lookups {
	return &Lookups{
		db:         tx,
		mu:         l.mu,
		brands:     l.brands,
		categories: l.categories,
		suppliers:  l.suppliers,
	}
}

// ResolveBrand finds or creates the brand for a manufacturer name and caches
// the result for the rest of the run.
func (l *Lookups) ResolveBrand(ctx context.Context, manufacturer string) (uuid.UUID, error) {
	normalized := NormalizeName(manufacturer)
	if normalized == "" {
		return uuid.Nil, errors.New("manufacturer name is empty after normalization")
	}
	l.mu.Lock()
	id, cached := l.brands[normalized]
	l.mu.Unlock()
	if cached {
		return id, nil
	}

	var brand models.Brand
	err := l.db.WithContext(ctx).
		Where("normalized_name = ?", normalized).
		First(&brand).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		brand = models.Brand{Name: manufacturer, NormalizedName: normalized}
		if createErr := l.db.WithContext(ctx).Create(&brand).Error; createErr != nil {
			// A concurrent worker may have created the same brand; re-read.
			if dbpkg.IsUniqueViolation(createErr, "ux_brands_normalized_name") {
				if retryErr := l.db.WithContext(ctx).
					Where("normalized_name = ?", normalized).
					First(&brand).Error; retryErr != nil {
					return uuid.Nil, retryErr
				}
			} else {
				return uuid.Nil, createErr
			}
		}
	} else if err != nil {
		return uuid.Nil, err
	}

	l.mu.Lock()
	l.brands[normalized] = brand.ID
	l.mu.Unlock()
	return brand.ID, nil
}

// ResolveCategory finds or creates the category for a slash-separated path.
// An empty path yields no category.
func (l *Lookups) ResolveCategory(ctx context.Context, path string, family enums.ProductFamily) (*uuid.UUID, error) {
	if path == "" {
		return nil, nil
	}
	l.mu.Lock()
	id, cached := l.categories[path]
	l.mu.Unlock()
	if cached {
		return &id, nil
	}

	var category models.Category
	err := l.db.WithContext(ctx).Where("path = ?", path).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = models.Category{Name: lastPathSegment(path), Path: path}
		if family != enums.FamilyUnknown {
			category.Family = &family
		}
		if createErr := l.db.WithContext(ctx).Create(&category).Error; createErr != nil {
			if dbpkg.IsUniqueViolation(createErr, "ux_categories_path") {
				if retryErr := l.db.WithContext(ctx).
					Where("path = ?", path).
					First(&category).Error; retryErr != nil {
					return nil, retryErr
				}
			} else {
				return nil, createErr
			}
		}
	} else if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.categories[path] = category.ID
	l.mu.Unlock()
	categoryID := category.ID
	return &categoryID, nil
}

// Supplier loads a supplier by id. Cached entries are shared across
// goroutines and must be treated as read-only.
func (l *Lookups) Supplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	l.mu.Lock()
	supplier, cached := l.suppliers[id]
	l.mu.Unlock()
	if cached {
		return supplier, nil
	}
	var row models.Supplier
	if err := l.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.suppliers[id] = &row
	l.mu.Unlock()
	return &row, nil
}

// SupplierByCode resolves a supplier from its stable feed code.
func (l *Lookups) SupplierByCode(ctx context.Context, code string) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := l.db.WithContext(ctx).First(&supplier, "code = ?", code).Error; err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.suppliers[supplier.ID] = &supplier
	l.mu.Unlock()
	return &supplier, nil
}

func lastPathSegment(path string) string {
	segment := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			segment = path[i+1:]
			break
		}
	}
	if segment == "" {
		return path
	}
	return segment
}
