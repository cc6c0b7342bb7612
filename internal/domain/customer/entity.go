// internal/domain/customer/entity.go
package customer

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// Customer is the identity record for a commerce customer. The record is
// owned by the store; the service never caches it beyond a single operation.
type Customer struct {
	ID    string `json:"id" db:"id"`
	Email string `json:"email" db:"email"`

	FirstName string `json:"first_name,omitempty" db:"first_name"`
	LastName  string `json:"last_name,omitempty" db:"last_name"`
	Phone     string `json:"phone,omitempty" db:"phone"`

	// HasAccount is true iff a password credential exists for this record.
	HasAccount bool `json:"has_account" db:"has_account"`

	// PasswordHash is never serialized and never leaves the service layer.
	PasswordHash string `json:"-" db:"password_hash"`

	BillingAddress *Address `json:"billing_address,omitempty" db:"billing_address"`

	// Groups is resolved from the membership table only when the caller asks
	// for the relation to be expanded.
	Groups pq.StringArray `json:"groups,omitempty" db:"-"`

	// Metadata keys are modified one at a time through the dedicated
	// metadata path, never wholesale.
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt sql.NullTime `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Address is the structured billing address. It is validated for shape and
// stored inside the customer record, not persisted separately.
type Address struct {
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	Country    string `json:"country" validate:"required"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}
