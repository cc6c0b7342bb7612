// internal/domain/customer/repository.go
package customer

import "context"

// FieldSet names the columns touched by a partial update. Keys of the form
// "metadata.<key>" address a single metadata entry; the store must apply
// them atomically without rewriting sibling keys.
type FieldSet map[string]interface{}

// Store is the repository contract the customer service consumes. Store
// failures surface as plain errors and are wrapped as DB errors by the
// service; absent records surface as xerrors.ErrNotFound.
type Store interface {
	FindByID(ctx context.Context, id string, expand ...string) (*Customer, error)
	FindOne(ctx context.Context, filter ListFilter) (*Customer, error)
	Find(ctx context.Context, filter ListFilter) ([]Customer, error)
	Insert(ctx context.Context, c *Customer) error
	UpdatePartial(ctx context.Context, id string, fields FieldSet) error
	DeleteByID(ctx context.Context, id string) error
	AddToGroup(ctx context.Context, id, group string) error
	RemoveFromGroup(ctx context.Context, id, group string) error
}
