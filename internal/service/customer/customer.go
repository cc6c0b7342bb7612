// internal/service/customer/customer.go
package customer

import (
	"context"
	"fmt"
	"time"

	domain "customer-service/internal/domain/customer"
	"customer-service/internal/events"
	xerrors "customer-service/internal/pkg/errors"
	"customer-service/internal/pkg/ratelimit"
	"customer-service/internal/pkg/resettoken"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost is tuned for interactive login latency.
	bcryptCost = bcrypt.DefaultCost

	// resetTokenTTL is the fixed lifetime of a password-reset token.
	resetTokenTTL = 15 * time.Minute
)

// CustomerService owns the customer record lifecycle. It is stateless
// between calls and safe for concurrent use; all mutation goes through the
// store's own concurrency control.
type CustomerService struct {
	store        domain.Store
	publisher    events.Publisher
	resetLimiter *ratelimit.Limiter // optional, nil disables throttling
	logger       *zap.Logger
}

func NewCustomerService(store domain.Store, publisher events.Publisher, resetLimiter *ratelimit.Limiter, logger *zap.Logger) *CustomerService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &CustomerService{
		store:        store,
		publisher:    publisher,
		resetLimiter: resetLimiter,
		logger:       logger,
	}
}

// Retrieve fetches a customer by id.
func (s *CustomerService) Retrieve(ctx context.Context, id string) (*domain.Customer, error) {
	id, err := ValidateID(id)
	if err != nil {
		return nil, err
	}

	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, xerrors.DB(err)
	}
	return c, nil
}

// RetrieveByEmail fetches a customer by exact (normalized) email match.
func (s *CustomerService) RetrieveByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return nil, err
	}

	c, err := s.store.FindOne(ctx, domain.ListFilter{Email: email})
	if err != nil {
		return nil, xerrors.DB(err)
	}
	return c, nil
}

// List passes the filter through to the store; the filter shape is owned by
// the caller.
func (s *CustomerService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Customer, error) {
	customers, err := s.store.Find(ctx, filter)
	if err != nil {
		return nil, xerrors.DB(err)
	}
	return customers, nil
}

// Create inserts a new customer record. A plaintext password, when present,
// elevates the record to an account: only the bcrypt hash is kept and the
// plaintext never reaches the persistence call.
func (s *CustomerService) Create(ctx context.Context, in *domain.CreateCustomerInput) (*domain.Customer, error) {
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}

	if in.BillingAddress != nil {
		if err := ValidateBillingAddress(in.BillingAddress); err != nil {
			return nil, err
		}
	}

	c := &domain.Customer{
		ID:             ulid.Make().String(),
		Email:          email,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Phone:          in.Phone,
		BillingAddress: in.BillingAddress,
		Metadata:       in.Metadata,
	}

	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		c.PasswordHash = string(hash)
		c.HasAccount = true
	}

	if err := s.store.Insert(ctx, c); err != nil {
		return nil, xerrors.DB(err)
	}

	s.logger.Info("customer created",
		zap.String("customer_id", c.ID),
		zap.Bool("has_account", c.HasAccount),
	)

	s.publish(ctx, events.TopicCustomerCreated, c.ID, events.CustomerPayload{
		CustomerID: c.ID,
		Email:      c.Email,
		HasAccount: c.HasAccount,
	})

	return c, nil
}

// Update applies a partial patch against an existing record. Patches that
// touch metadata wholesale are rejected; metadata has its own single-key
// path (SetMetadata).
func (s *CustomerService) Update(ctx context.Context, id string, patch *domain.UpdateCustomerInput) error {
	existing, err := s.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	if patch.Metadata != nil {
		return xerrors.InvalidData("metadata cannot be replaced through update, use the metadata path")
	}

	fields := domain.FieldSet{}
	email := existing.Email

	if patch.Email != nil {
		normalized, err := ValidateEmail(*patch.Email)
		if err != nil {
			return err
		}
		fields["email"] = normalized
		email = normalized
	}
	if patch.BillingAddress != nil {
		if err := ValidateBillingAddress(patch.BillingAddress); err != nil {
			return err
		}
		fields["billing_address"] = patch.BillingAddress
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fields["password_hash"] = string(hash)
		fields["has_account"] = true
	}
	if patch.FirstName != nil {
		fields["first_name"] = *patch.FirstName
	}
	if patch.LastName != nil {
		fields["last_name"] = *patch.LastName
	}
	if patch.Phone != nil {
		fields["phone"] = *patch.Phone
	}

	if len(fields) == 0 {
		return nil
	}

	if err := s.store.UpdatePartial(ctx, existing.ID, fields); err != nil {
		return xerrors.DB(err)
	}

	s.logger.Info("customer updated", zap.String("customer_id", existing.ID))

	s.publish(ctx, events.TopicCustomerUpdated, existing.ID, events.CustomerPayload{
		CustomerID: existing.ID,
		Email:      email,
	})

	return nil
}

// Delete removes a customer. It is idempotent: if the record cannot be
// retrieved for any reason the deletion is treated as already satisfied.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	existing, err := s.Retrieve(ctx, id)
	if err != nil {
		return nil
	}

	if err := s.store.DeleteByID(ctx, existing.ID); err != nil {
		// A concurrent delete may win between the retrieve and this call;
		// the record being gone is still a satisfied deletion.
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil
		}
		return xerrors.DB(err)
	}

	s.logger.Info("customer deleted", zap.String("customer_id", existing.ID))

	s.publish(ctx, events.TopicCustomerDeleted, existing.ID, events.CustomerPayload{
		CustomerID: existing.ID,
	})

	return nil
}

// SetMetadata sets a single metadata entry at path metadata.<key> without
// touching sibling keys. This is the only sanctioned way to mutate metadata,
// so independent callers writing disjoint keys never race each other.
func (s *CustomerService) SetMetadata(ctx context.Context, id, key string, value interface{}) error {
	id, err := ValidateID(id)
	if err != nil {
		return err
	}
	if err := validateMetadataKey(key); err != nil {
		return err
	}

	fields := domain.FieldSet{"metadata." + key: value}
	if err := s.store.UpdatePartial(ctx, id, fields); err != nil {
		return xerrors.DB(err)
	}

	s.publish(ctx, events.TopicCustomerUpdated, id, events.CustomerPayload{
		CustomerID: id,
	})

	return nil
}

// AddToGroup adds the customer to a named group.
func (s *CustomerService) AddToGroup(ctx context.Context, id, group string) error {
	existing, err := s.Retrieve(ctx, id)
	if err != nil {
		return err
	}
	if group == "" {
		return xerrors.InvalidArgument("group name must not be empty")
	}

	if err := s.store.AddToGroup(ctx, existing.ID, group); err != nil {
		return xerrors.DB(err)
	}

	s.publish(ctx, events.TopicCustomerUpdated, existing.ID, events.CustomerPayload{
		CustomerID: existing.ID,
	})
	return nil
}

// RemoveFromGroup removes the customer from a named group.
func (s *CustomerService) RemoveFromGroup(ctx context.Context, id, group string) error {
	existing, err := s.Retrieve(ctx, id)
	if err != nil {
		return err
	}
	if group == "" {
		return xerrors.InvalidArgument("group name must not be empty")
	}

	if err := s.store.RemoveFromGroup(ctx, existing.ID, group); err != nil {
		return xerrors.DB(err)
	}

	s.publish(ctx, events.TopicCustomerUpdated, existing.ID, events.CustomerPayload{
		CustomerID: existing.ID,
	})
	return nil
}

// GenerateResetPasswordToken issues a reset token signed with the
// customer's current password hash, valid for 15 minutes. Changing the
// password invalidates every outstanding token because the signing secret
// changes with it. Notifying the customer is the job of a downstream
// consumer of the published event.
func (s *CustomerService) GenerateResetPasswordToken(ctx context.Context, id string) (string, error) {
	c, err := s.Retrieve(ctx, id)
	if err != nil {
		return "", err
	}

	if !c.HasAccount {
		return "", xerrors.NotAllowed("customer %s has no account, cannot reset password", c.ID)
	}

	if s.resetLimiter != nil {
		allowed, err := s.resetLimiter.AllowPasswordReset(ctx, c.ID)
		if err != nil {
			s.logger.Warn("reset rate limiter unavailable, allowing request",
				zap.String("customer_id", c.ID), zap.Error(err))
		} else if !allowed {
			return "", fmt.Errorf("%w: password reset requested too often", xerrors.ErrRateLimited)
		}
	}

	token, err := resettoken.Generate(c.ID, c.PasswordHash, resetTokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}

	s.logger.Info("password reset token issued", zap.String("customer_id", c.ID))

	s.publish(ctx, events.TopicPasswordResetRequested, c.ID, events.PasswordResetPayload{
		CustomerID: c.ID,
		Email:      c.Email,
		Token:      token,
	})

	return token, nil
}

// VerifyResetPasswordToken resolves the token's customer, then checks the
// signature against that record's current password hash. The lookup has to
// happen first: the hash is the signing secret.
func (s *CustomerService) VerifyResetPasswordToken(ctx context.Context, token string) (*domain.Customer, error) {
	customerID, err := resettoken.UnverifiedCustomerID(token)
	if err != nil {
		return nil, xerrors.InvalidArgument("malformed reset token")
	}

	c, err := s.Retrieve(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if !c.HasAccount {
		return nil, xerrors.NotAllowed("customer %s has no account", c.ID)
	}

	if _, err := resettoken.Verify(token, c.PasswordHash); err != nil {
		return nil, xerrors.NotAllowed("reset token is invalid or expired")
	}

	return c, nil
}

// publish is fire-and-forget: a broker failure is logged but never fails
// the operation that produced the event.
func (s *CustomerService) publish(ctx context.Context, topic, key string, payload interface{}) {
	if err := s.publisher.Publish(ctx, topic, key, payload); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
