// Package fixture creates the product a run verifies against and deletes it
// exactly once afterwards.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrAlreadyDeleted is returned by a second Delete of the same fixture.
var ErrAlreadyDeleted = errors.New("fixture already deleted")

// Catalog is the back office surface used to create and delete products.
// Both calls return the acknowledgment message shown by the back office.
type Catalog interface {
	CreateProduct(ctx context.Context, p Product) (string, error)
	DeleteProduct(ctx context.Context, p Product) (string, error)
}

// CreationError reports a product the back office did not acknowledge.
type CreationError struct {
	Product string
	Message string
	Err     error
}

func (e *CreationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("create product %q: %v", e.Product, e.Err)
	}
	return fmt.Sprintf("create product %q: unexpected acknowledgment %q", e.Product, e.Message)
}

func (e *CreationError) Unwrap() error { return e.Err }

// DeletionError reports a product deletion the back office did not acknowledge.
type DeletionError struct {
	Product string
	Message string
	Err     error
}

func (e *DeletionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("delete product %q: %v", e.Product, e.Err)
	}
	return fmt.Sprintf("delete product %q: unexpected acknowledgment %q", e.Product, e.Message)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// Fixture is the product created for one run.
type Fixture struct {
	RunID   string
	Product Product

	mu      sync.Mutex
	deleted bool
}

// Name is the product name searched on the storefront.
func (f *Fixture) Name() string { return f.Product.Name }

// Deleted reports whether Delete was attempted.
func (f *Fixture) Deleted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleted
}

// Factory creates and deletes the fixtures of one run, checking the back
// office acknowledgments.
type Factory struct {
	RunID      string
	CreatedAck string
	DeletedAck string
	logger     *zap.Logger
}

func NewFactory(runID, createdAck, deletedAck string, logger *zap.Logger) *Factory {
	return &Factory{
		RunID:      runID,
		CreatedAck: createdAck,
		DeletedAck: deletedAck,
		logger:     logger.Named("fixture"),
	}
}

// Create generates the product for the run and creates it through catalog.
func (f *Factory) Create(ctx context.Context, catalog Catalog, spec Spec) (*Fixture, error) {
	if err := spec.Validate(); err != nil {
		return nil, &CreationError{Product: spec.Name, Err: err}
	}
	product := Generate(f.RunID, spec)
	log := f.logger.With(zap.String("product", product.Name), zap.String("reference", product.Reference))
	log.Info("Creating fixture product.", zap.String("type", product.Type), zap.Int("quantity", product.Quantity))

	msg, err := catalog.CreateProduct(ctx, product)
	if err != nil {
		return nil, &CreationError{Product: product.Name, Message: msg, Err: err}
	}
	if msg != f.CreatedAck {
		return nil, &CreationError{Product: product.Name, Message: msg}
	}
	log.Info("Fixture product created.")
	return &Fixture{RunID: f.RunID, Product: product}, nil
}

// Delete removes the fixture. Deletion is attempted once; later calls return
// ErrAlreadyDeleted without touching the back office.
func (f *Factory) Delete(ctx context.Context, catalog Catalog, fx *Fixture) error {
	fx.mu.Lock()
	if fx.deleted {
		fx.mu.Unlock()
		return ErrAlreadyDeleted
	}
	fx.deleted = true
	fx.mu.Unlock()

	log := f.logger.With(zap.String("product", fx.Product.Name))
	msg, err := catalog.DeleteProduct(ctx, fx.Product)
	if err != nil {
		log.Error("Fixture deletion failed.", zap.Error(err))
		return &DeletionError{Product: fx.Product.Name, Message: msg, Err: err}
	}
	if msg != f.DeletedAck {
		log.Error("Fixture deletion not acknowledged.", zap.String("message", msg))
		return &DeletionError{Product: fx.Product.Name, Message: msg}
	}
	log.Info("Fixture product deleted.")
	return nil
}
