// internal/service/customer/validate.go
package customer

import (
	"strings"

	domain "customer-service/internal/domain/customer"
	xerrors "customer-service/internal/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
)

// validate is safe for concurrent use; it caches struct metadata only.
var validate = validator.New()

// ValidateID accepts only well-formed ULIDs, the store's id format, and
// returns the canonical uppercase form. It fails before any store
// round-trip is attempted.
func ValidateID(raw string) (string, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", xerrors.InvalidArgument("%q is not a valid customer id", raw)
	}
	return id, nil
}

// ValidateEmail requires a non-empty, syntactically valid email and returns
// it lower-cased.
func ValidateEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email"); err != nil {
		return "", xerrors.InvalidData("%q is not a valid email", raw)
	}
	return email, nil
}

// ValidateBillingAddress checks the address shape (street, city, country
// required).
func ValidateBillingAddress(addr *domain.Address) error {
	if addr == nil {
		return xerrors.InvalidData("billing address is empty")
	}
	if err := validate.Struct(addr); err != nil {
		return xerrors.InvalidData("invalid billing address: %v", err)
	}
	return nil
}

// validateMetadataKey rejects keys that cannot address a single metadata
// entry.
func validateMetadataKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return xerrors.InvalidArgument("metadata key must be a non-empty string")
	}
	if strings.ContainsAny(key, ".{}") {
		return xerrors.InvalidArgument("metadata key %q contains reserved characters", key)
	}
	return nil
}
