// internal/repository/postgres/customer_repository.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"customer-service/internal/domain/customer"
	xerrors "customer-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const customerColumns = `id, email, first_name, last_name, phone, has_account,
	       password_hash, billing_address, metadata, created_at, updated_at, deleted_at`

// CustomerRepository implements customer.Store on top of postgres.
type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindByID retrieves a customer by id. Relations named in expand are
// resolved here; "groups" is currently the only known relation and unknown
// names are ignored.
func (r *CustomerRepository) FindByID(ctx context.Context, id string, expand ...string) (*customer.Customer, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		WHERE id = $1 AND deleted_at IS NULL
	`, customerColumns)

	c, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	for _, rel := range expand {
		if rel == "groups" {
			if err := r.loadGroups(ctx, c); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// FindOne retrieves the first customer matching the filter.
func (r *CustomerRepository) FindOne(ctx context.Context, filter customer.ListFilter) (*customer.Customer, error) {
	where, args := buildWhere(filter)
	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		%s
		ORDER BY created_at
		LIMIT 1
	`, customerColumns, where)

	return r.scanOne(r.db.QueryRow(ctx, query, args...))
}

// Find retrieves all customers matching the filter.
func (r *CustomerRepository) Find(ctx context.Context, filter customer.ListFilter) ([]customer.Customer, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	where, args := buildWhere(filter)
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM customers
		%s
		ORDER BY created_at
		LIMIT $%d OFFSET $%d
	`, customerColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return customers, nil
}

// Insert creates a new customer row. A unique-violation on email surfaces
// as a plain store error for the service to wrap.
func (r *CustomerRepository) Insert(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (
			id, email, first_name, last_name, phone, has_account,
			password_hash, billing_address, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	billingJSON, err := marshalNullable(c.BillingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal billing address: %w", err)
	}
	metadataJSON, err := marshalNullable(c.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = r.db.QueryRow(
		ctx, query,
		c.ID, c.Email, c.FirstName, c.LastName, c.Phone, c.HasAccount,
		nullIfEmpty(c.PasswordHash), billingJSON, metadataJSON,
	).Scan(&c.CreatedAt, &c.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

// UpdatePartial applies a field-level update against a single row. Keys of
// the form metadata.<key> become a jsonb_set on that entry alone, so sibling
// metadata keys written by other callers are never rewritten.
func (r *CustomerRepository) UpdatePartial(ctx context.Context, id string, fields customer.FieldSet) error {
	setClause, args, err := buildUpdateSet(fields)
	if err != nil {
		return err
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE customers
		SET %s
		WHERE id = $%d AND deleted_at IS NULL
	`, setClause, len(args))

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// DeleteByID soft-deletes a customer row.
func (r *CustomerRepository) DeleteByID(ctx context.Context, id string) error {
	query := `
		UPDATE customers
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// AddToGroup records group membership; adding twice is a no-op.
func (r *CustomerRepository) AddToGroup(ctx context.Context, id, group string) error {
	query := `
		INSERT INTO customer_groups (customer_id, group_name)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, group_name) DO NOTHING
	`

	if _, err := r.db.Exec(ctx, query, id, group); err != nil {
		return fmt.Errorf("failed to add customer to group: %w", err)
	}
	return nil
}

// RemoveFromGroup removes group membership; removing an absent membership
// is a no-op.
func (r *CustomerRepository) RemoveFromGroup(ctx context.Context, id, group string) error {
	query := `DELETE FROM customer_groups WHERE customer_id = $1 AND group_name = $2`

	if _, err := r.db.Exec(ctx, query, id, group); err != nil {
		return fmt.Errorf("failed to remove customer from group: %w", err)
	}
	return nil
}

func (r *CustomerRepository) loadGroups(ctx context.Context, c *customer.Customer) error {
	query := `
		SELECT COALESCE(ARRAY_AGG(group_name ORDER BY group_name), '{}')
		FROM customer_groups
		WHERE customer_id = $1
	`

	if err := r.db.QueryRow(ctx, query, c.ID).Scan(&c.Groups); err != nil {
		return fmt.Errorf("failed to load customer groups: %w", err)
	}
	return nil
}

// ---------- row scanning ----------

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *CustomerRepository) scanOne(row rowScanner) (*customer.Customer, error) {
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanCustomer(row rowScanner) (*customer.Customer, error) {
	var c customer.Customer
	var passwordHash *string
	var billingJSON, metadataJSON []byte

	err := row.Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.HasAccount,
		&passwordHash, &billingJSON, &metadataJSON,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan customer: %w", err)
	}

	if passwordHash != nil {
		c.PasswordHash = *passwordHash
	}
	if len(billingJSON) > 0 {
		if err := json.Unmarshal(billingJSON, &c.BillingAddress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal billing address: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &c, nil
}

// ---------- query building ----------

func buildWhere(filter customer.ListFilter) (string, []any) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if filter.Email != "" {
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.HasAccount != nil {
		args = append(args, *filter.HasAccount)
		conditions = append(conditions, fmt.Sprintf("has_account = $%d", len(args)))
	}
	if len(filter.Groups) > 0 {
		args = append(args, pq.Array(filter.Groups))
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM customer_groups g WHERE g.customer_id = customers.id AND g.group_name = ANY($%d))",
			len(args)))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// updatableColumns is the whitelist for UpdatePartial. Anything else,
// metadata paths aside, is rejected before touching the database.
var updatableColumns = map[string]bool{
	"email":         true,
	"first_name":    true,
	"last_name":     true,
	"phone":         true,
	"password_hash": true,
	"has_account":   true,
}

func buildUpdateSet(fields customer.FieldSet) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("no fields to update")
	}

	// Deterministic clause order keeps the generated SQL stable.
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sets []string
	var args []any
	metadataExpr := "COALESCE(metadata, '{}'::jsonb)"
	metadataTouched := false

	for _, key := range keys {
		value := fields[key]

		if metaKey, ok := strings.CutPrefix(key, "metadata."); ok {
			valueJSON, err := json.Marshal(value)
			if err != nil {
				return "", nil, fmt.Errorf("failed to marshal metadata value for %q: %w", metaKey, err)
			}
			args = append(args, pq.Array([]string{metaKey}))
			pathArg := len(args)
			args = append(args, valueJSON)
			metadataExpr = fmt.Sprintf("jsonb_set(%s, $%d, $%d::jsonb, true)", metadataExpr, pathArg, len(args))
			metadataTouched = true
			continue
		}

		if key == "billing_address" {
			valueJSON, err := json.Marshal(value)
			if err != nil {
				return "", nil, fmt.Errorf("failed to marshal billing address: %w", err)
			}
			args = append(args, valueJSON)
			sets = append(sets, fmt.Sprintf("billing_address = $%d", len(args)))
			continue
		}

		if !updatableColumns[key] {
			return "", nil, fmt.Errorf("column %q is not updatable", key)
		}

		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", key, len(args)))
	}

	if metadataTouched {
		sets = append(sets, "metadata = "+metadataExpr)
	}
	sets = append(sets, "updated_at = NOW()")

	return strings.Join(sets, ", "), args, nil
}

func marshalNullable(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *customer.Address:
		if val == nil {
			return nil, nil
		}
	case map[string]interface{}:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
