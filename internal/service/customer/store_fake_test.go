package customer

import (
	"context"
	"fmt"
	"strings"

	domain "customer-service/internal/domain/customer"
	xerrors "customer-service/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
)

// absentID yields a well-formed id that no test record uses.
func absentID() string {
	return ulid.Make().String()
}

// fakeStore is an in-memory customer.Store for service tests. It applies
// the same field-level update semantics the postgres store does, including
// single-key metadata sets.
type fakeStore struct {
	customers      map[string]*domain.Customer
	groups         map[string]map[string]bool
	failWith       error
	failDeleteWith error
	lastExpand     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[string]*domain.Customer),
		groups:    make(map[string]map[string]bool),
	}
}

func (f *fakeStore) FindByID(ctx context.Context, id string, expand ...string) (*domain.Customer, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastExpand = expand

	c, ok := f.customers[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	out := clone(c)
	for _, rel := range expand {
		if rel == "groups" {
			for g := range f.groups[id] {
				out.Groups = append(out.Groups, g)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) FindOne(ctx context.Context, filter domain.ListFilter) (*domain.Customer, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, c := range f.customers {
		if filter.Email != "" && c.Email != filter.Email {
			continue
		}
		return clone(c), nil
	}
	return nil, xerrors.ErrNotFound
}

func (f *fakeStore) Find(ctx context.Context, filter domain.ListFilter) ([]domain.Customer, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []domain.Customer
	for _, c := range f.customers {
		if filter.Email != "" && c.Email != filter.Email {
			continue
		}
		if filter.HasAccount != nil && c.HasAccount != *filter.HasAccount {
			continue
		}
		out = append(out, *clone(c))
	}
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, c *domain.Customer) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.customers {
		if existing.Email == c.Email {
			return fmt.Errorf("duplicate key value violates unique constraint \"customers_email_key\"")
		}
	}
	f.customers[c.ID] = clone(c)
	return nil
}

func (f *fakeStore) UpdatePartial(ctx context.Context, id string, fields domain.FieldSet) error {
	if f.failWith != nil {
		return f.failWith
	}
	c, ok := f.customers[id]
	if !ok {
		return xerrors.ErrNotFound
	}

	for key, value := range fields {
		if metaKey, found := strings.CutPrefix(key, "metadata."); found {
			if c.Metadata == nil {
				c.Metadata = make(map[string]interface{})
			}
			c.Metadata[metaKey] = value
			continue
		}
		switch key {
		case "email":
			c.Email = value.(string)
		case "first_name":
			c.FirstName = value.(string)
		case "last_name":
			c.LastName = value.(string)
		case "phone":
			c.Phone = value.(string)
		case "password_hash":
			c.PasswordHash = value.(string)
		case "has_account":
			c.HasAccount = value.(bool)
		case "billing_address":
			c.BillingAddress = value.(*domain.Address)
		default:
			return fmt.Errorf("column %q is not updatable", key)
		}
	}
	return nil
}

func (f *fakeStore) DeleteByID(ctx context.Context, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.failDeleteWith != nil {
		return f.failDeleteWith
	}
	if _, ok := f.customers[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(f.customers, id)
	return nil
}

func (f *fakeStore) AddToGroup(ctx context.Context, id, group string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.groups[id] == nil {
		f.groups[id] = make(map[string]bool)
	}
	f.groups[id][group] = true
	return nil
}

func (f *fakeStore) RemoveFromGroup(ctx context.Context, id, group string) error {
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.groups[id], group)
	return nil
}

func clone(c *domain.Customer) *domain.Customer {
	out := *c
	if c.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Groups = nil
	return &out
}

// fakePublisher records published events.
type fakePublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) topics() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Topic)
	}
	return out
}
