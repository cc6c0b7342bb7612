// internal/service/customer/decorate.go
package customer

import (
	"context"

	domain "customer-service/internal/domain/customer"
	xerrors "customer-service/internal/pkg/errors"
)

// Decorate returns a narrowed view of the customer containing only the
// requested fields. The identity and metadata fields (id, metadata) are
// always included whether or not the caller asked for them. Relations named
// in expand are resolved by the store.
func (s *CustomerService) Decorate(ctx context.Context, c *domain.Customer, fields, expand []string) (*domain.Customer, error) {
	if c == nil {
		return nil, xerrors.InvalidArgument("no customer to decorate")
	}

	if len(expand) > 0 {
		resolved, err := s.store.FindByID(ctx, c.ID, expand...)
		if err != nil {
			return nil, xerrors.DB(err)
		}
		c = resolved
	}

	if len(fields) == 0 {
		return c, nil
	}

	out := &domain.Customer{
		ID:       c.ID,
		Metadata: c.Metadata,
	}

	for _, f := range fields {
		switch f {
		case "email":
			out.Email = c.Email
		case "first_name":
			out.FirstName = c.FirstName
		case "last_name":
			out.LastName = c.LastName
		case "phone":
			out.Phone = c.Phone
		case "has_account":
			out.HasAccount = c.HasAccount
		case "billing_address":
			out.BillingAddress = c.BillingAddress
		case "groups":
			out.Groups = c.Groups
		case "created_at":
			out.CreatedAt = c.CreatedAt
		case "updated_at":
			out.UpdatedAt = c.UpdatedAt
		}
	}

	return out, nil
}
