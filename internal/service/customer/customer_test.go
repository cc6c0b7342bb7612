package customer

import (
	"context"
	"errors"
	"strings"
	"testing"

	domain "customer-service/internal/domain/customer"
	"customer-service/internal/events"
	xerrors "customer-service/internal/pkg/errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*CustomerService, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	publisher := &fakePublisher{}
	svc := NewCustomerService(store, publisher, nil, zap.NewNop())
	return svc, store, publisher
}

func TestCreateNormalizesEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "  Jane.Doe@Example.COM "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != "jane.doe@example.com" {
		t.Errorf("email not normalized, got %q", created.Email)
	}
	if created.HasAccount {
		t.Error("customer without password must not have an account")
	}
	if created.PasswordHash != "" {
		t.Error("customer without password must not have a hash")
	}

	found, err := svc.RetrieveByEmail(ctx, "JANE.DOE@example.com")
	if err != nil {
		t.Fatalf("RetrieveByEmail: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("RetrieveByEmail returned %q, want %q", found.ID, created.ID)
	}
}

func TestCreateWithPassword(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{
		Email:    "a@b.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !created.HasAccount {
		t.Error("customer created with password must have an account")
	}
	if created.PasswordHash == "" || created.PasswordHash == "secret" {
		t.Errorf("password hash missing or equals plaintext: %q", created.PasswordHash)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	stored := store.customers[created.ID]
	if stored.PasswordHash != created.PasswordHash {
		t.Error("persisted record carries a different hash")
	}
}

func TestCreateValidationFailsBeforeStore(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   *domain.CreateCustomerInput
		kind error
	}{
		{"empty email", &domain.CreateCustomerInput{Email: ""}, xerrors.ErrInvalidData},
		{"malformed email", &domain.CreateCustomerInput{Email: "not-an-email"}, xerrors.ErrInvalidData},
		{
			"incomplete billing address",
			&domain.CreateCustomerInput{
				Email:          "ok@example.com",
				BillingAddress: &domain.Address{Street: "1 Main St"},
			},
			xerrors.ErrInvalidData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tt.in); !errors.Is(err, tt.kind) {
				t.Errorf("got %v, want %v", err, tt.kind)
			}
			if len(store.customers) != 0 {
				t.Error("store must not be touched on invalid input")
			}
		})
	}
}

func TestCreateDuplicateEmailIsDBError(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	_, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "dup@example.com"})
	if !errors.Is(err, xerrors.ErrDB) {
		t.Fatalf("got %v, want DB error", err)
	}
	if !strings.Contains(err.Error(), "unique constraint") {
		t.Errorf("store message swallowed: %v", err)
	}
}

func TestRetrieve(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "r@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Retrieve(ctx, created.ID); err != nil {
		t.Errorf("Retrieve existing: %v", err)
	}
	if _, err := svc.Retrieve(ctx, strings.ToLower(created.ID)); err != nil {
		t.Errorf("Retrieve must canonicalize id case: %v", err)
	}

	if _, err := svc.Retrieve(ctx, "not-a-ulid"); !errors.Is(err, xerrors.ErrInvalidArgument) {
		t.Errorf("malformed id: got %v, want INVALID_ARGUMENT", err)
	}
	if _, err := svc.Retrieve(ctx, absentID()); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("absent id: got %v, want NOT_FOUND", err)
	}

	store.failWith = errors.New("connection refused")
	_, err = svc.Retrieve(ctx, created.ID)
	if !errors.Is(err, xerrors.ErrDB) {
		t.Errorf("store failure: got %v, want DB error", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("store message swallowed: %v", err)
	}
}

func TestUpdateRejectsWholesaleMetadata(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{
		Email:    "m@example.com",
		Metadata: map[string]interface{}{"plan": "gold"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{
		Metadata: map[string]interface{}{"plan": "bronze"},
	})
	if !errors.Is(err, xerrors.ErrInvalidData) {
		t.Fatalf("got %v, want INVALID_DATA", err)
	}

	stored := store.customers[created.ID]
	if stored.Metadata["plan"] != "gold" {
		t.Error("rejected update must leave the record unchanged")
	}
}

func TestUpdatePartialFields(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{
		Email:     "u@example.com",
		FirstName: "Ada",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newEmail := "New@Example.com"
	lastName := "Lovelace"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{
		Email:    &newEmail,
		LastName: &lastName,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored := store.customers[created.ID]
	if stored.Email != "new@example.com" {
		t.Errorf("email not normalized on update, got %q", stored.Email)
	}
	if stored.LastName != "Lovelace" {
		t.Errorf("last name not updated, got %q", stored.LastName)
	}
	if stored.FirstName != "Ada" {
		t.Error("untouched field must survive a partial update")
	}

	badEmail := "nope"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{Email: &badEmail}); !errors.Is(err, xerrors.ErrInvalidData) {
		t.Errorf("invalid email on update: got %v, want INVALID_DATA", err)
	}
}

func TestUpdateEventCarriesNewEmail(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "old@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	newEmail := "Fresh@Example.com"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{Email: &newEmail}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	last := publisher.events[len(publisher.events)-1]
	if last.Topic != events.TopicCustomerUpdated {
		t.Fatalf("last event %q, want %q", last.Topic, events.TopicCustomerUpdated)
	}
	payload := last.Payload.(events.CustomerPayload)
	if payload.Email != "fresh@example.com" {
		t.Errorf("updated event carries email %q, want the patched address", payload.Email)
	}
}

func TestUpdatePasswordElevatesToAccount(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "guest@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	password := "hunter22"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{Password: &password}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stored := store.customers[created.ID]
	if !stored.HasAccount {
		t.Error("setting a password must elevate the record to an account")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == password {
		t.Errorf("hash missing or equals plaintext: %q", stored.PasswordHash)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "d@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete existing: %v", err)
	}
	if _, ok := store.customers[created.ID]; ok {
		t.Error("record still present after delete")
	}

	// Second delete, malformed id, unknown id: all succeed.
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Errorf("repeated delete: %v", err)
	}
	if err := svc.Delete(ctx, "garbage"); err != nil {
		t.Errorf("delete with malformed id: %v", err)
	}
	if err := svc.Delete(ctx, absentID()); err != nil {
		t.Errorf("delete with unknown id: %v", err)
	}
}

func TestDeleteToleratesConcurrentRemoval(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "race@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Another caller deletes the row between the retrieve and the delete.
	store.failDeleteWith = xerrors.ErrNotFound

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Errorf("delete must treat an already-gone row as success, got %v", err)
	}
}

func TestSetMetadataSingleKeysDoNotClobber(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "meta@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SetMetadata(ctx, created.ID, "a", 1); err != nil {
		t.Fatalf("SetMetadata a: %v", err)
	}
	if err := svc.SetMetadata(ctx, created.ID, "b", 2); err != nil {
		t.Fatalf("SetMetadata b: %v", err)
	}

	stored := store.customers[created.ID]
	if stored.Metadata["a"] != 1 || stored.Metadata["b"] != 2 {
		t.Errorf("metadata clobbered: %#v", stored.Metadata)
	}
}

func TestSetMetadataPublishesUpdate(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "mev@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.SetMetadata(ctx, created.ID, "plan", "gold"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	last := publisher.events[len(publisher.events)-1]
	if last.Topic != events.TopicCustomerUpdated {
		t.Errorf("metadata write must publish %q, got %q", events.TopicCustomerUpdated, last.Topic)
	}
	if payload := last.Payload.(events.CustomerPayload); payload.CustomerID != created.ID {
		t.Errorf("event keyed to %q, want %q", payload.CustomerID, created.ID)
	}
}

func TestSetMetadataRejectsBadKeys(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "k@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for _, key := range []string{"", "  ", "a.b", "a{b}"} {
		if err := svc.SetMetadata(ctx, created.ID, key, 1); !errors.Is(err, xerrors.ErrInvalidArgument) {
			t.Errorf("key %q: got %v, want INVALID_ARGUMENT", key, err)
		}
	}

	if err := svc.SetMetadata(ctx, "bad-id", "a", 1); !errors.Is(err, xerrors.ErrInvalidArgument) {
		t.Errorf("malformed id: got %v, want INVALID_ARGUMENT", err)
	}
	if err := svc.SetMetadata(ctx, absentID(), "a", 1); !errors.Is(err, xerrors.ErrNotFound) {
		t.Errorf("unknown id: got %v, want NOT_FOUND", err)
	}
}

func TestResetTokenRequiresAccount(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	guest, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "noacct@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GenerateResetPasswordToken(ctx, guest.ID); !errors.Is(err, xerrors.ErrNotAllowed) {
		t.Errorf("got %v, want NOT_ALLOWED", err)
	}
}

func TestResetTokenSelfInvalidatesOnPasswordChange(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{
		Email:    "a@b.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.HasAccount || created.Email != "a@b.com" {
		t.Fatalf("unexpected record: %+v", created)
	}

	token, err := svc.GenerateResetPasswordToken(ctx, created.ID)
	if err != nil {
		t.Fatalf("GenerateResetPasswordToken: %v", err)
	}

	verified, err := svc.VerifyResetPasswordToken(ctx, token)
	if err != nil {
		t.Fatalf("token must verify before the password changes: %v", err)
	}
	if verified.ID != created.ID {
		t.Errorf("verified wrong customer: %q", verified.ID)
	}

	// The reset event must carry the token for the downstream notifier.
	var sawResetEvent bool
	for _, e := range publisher.events {
		if e.Topic == events.TopicPasswordResetRequested {
			sawResetEvent = true
			payload := e.Payload.(events.PasswordResetPayload)
			if payload.Token != token {
				t.Error("reset event does not carry the issued token")
			}
		}
	}
	if !sawResetEvent {
		t.Error("no password reset event published")
	}

	newPassword := "newsecret"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{Password: &newPassword}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Signing secret changed with the hash: the old token is dead.
	if _, err := svc.VerifyResetPasswordToken(ctx, token); !errors.Is(err, xerrors.ErrNotAllowed) {
		t.Errorf("stale token: got %v, want NOT_ALLOWED", err)
	}
}

func TestVerifyResetTokenMalformed(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.VerifyResetPasswordToken(context.Background(), "junk"); !errors.Is(err, xerrors.ErrInvalidArgument) {
		t.Errorf("got %v, want INVALID_ARGUMENT", err)
	}
}

func TestGroups(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "g@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.AddToGroup(ctx, created.ID, "vip"); err != nil {
		t.Fatalf("AddToGroup: %v", err)
	}
	if !store.groups[created.ID]["vip"] {
		t.Error("membership not recorded")
	}

	if err := svc.AddToGroup(ctx, created.ID, ""); !errors.Is(err, xerrors.ErrInvalidArgument) {
		t.Errorf("empty group: got %v, want INVALID_ARGUMENT", err)
	}

	if err := svc.RemoveFromGroup(ctx, created.ID, "vip"); err != nil {
		t.Fatalf("RemoveFromGroup: %v", err)
	}
	if store.groups[created.ID]["vip"] {
		t.Error("membership not removed")
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	svc, _, publisher := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &domain.CreateCustomerInput{Email: "e@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	phone := "555-0100"
	if err := svc.Update(ctx, created.ID, &domain.UpdateCustomerInput{Phone: &phone}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{
		events.TopicCustomerCreated,
		events.TopicCustomerUpdated,
		events.TopicCustomerDeleted,
	}
	got := publisher.topics()
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
