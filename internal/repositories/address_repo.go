package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nornex-as/portal/internal/database"
	"github.com/nornex-as/portal/internal/models"
)

type AddressRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAddressRepository(db *database.DB) *AddressRepository {
	return &AddressRepository{db: db, pool: db.Pool}
}

const addressColumns = `id, customer_id, type, label, street, postal_code, city, country, is_default, created_at, updated_at`

func scanAddressRow(scanner rowScanner) (*models.Address, error) {
	var a models.Address
	err := scanner.Scan(
		&a.ID, &a.CustomerID, &a.Type, &a.Label, &a.Street, &a.PostalCode,
		&a.City, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

// ListByCustomer returns all addresses of a customer, defaults first
func (r *AddressRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Address, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM addresses
		WHERE customer_id = $1
		ORDER BY is_default DESC, created_at ASC
	`, addressColumns)

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]*models.Address, 0)
	for rows.Next() {
		addr, err := scanAddressRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return addresses, nil
}

func (r *AddressRepository) GetByID(ctx context.Context, customerID, id string) (*models.Address, error) {
	query := fmt.Sprintf(`SELECT %s FROM addresses WHERE id = $1 AND customer_id = $2`, addressColumns)
	return scanAddressRow(r.pool.QueryRow(ctx, query, id, customerID))
}

// Create inserts an address. If it is flagged default, previous defaults of
// the same type are cleared in the same transaction so the single-default-per-
// type rule holds after every write.
func (r *AddressRepository) Create(ctx context.Context, address *models.Address) (*models.Address, error) {
	address.ID = uuid.New().String()
	now := time.Now()
	address.CreatedAt = now
	address.UpdatedAt = now

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if address.IsDefault {
			if err := clearDefault(ctx, tx, address.CustomerID, address.Type); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO addresses (id, customer_id, type, label, street, postal_code, city, country, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		_, err := tx.Exec(ctx, query,
			address.ID, address.CustomerID, address.Type, address.Label, address.Street,
			address.PostalCode, address.City, address.Country, address.IsDefault,
			address.CreatedAt, address.UpdatedAt,
		)
		return database.MapPostgresError(err)
	})
	if err != nil {
		return nil, err
	}

	return address, nil
}

func (r *AddressRepository) Update(ctx context.Context, address *models.Address) (*models.Address, error) {
	address.UpdatedAt = time.Now()

	var updated *models.Address
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if address.IsDefault {
			if err := clearDefault(ctx, tx, address.CustomerID, address.Type); err != nil {
				return err
			}
		}

		query := fmt.Sprintf(`
			UPDATE addresses
			SET label = $1, street = $2, postal_code = $3, city = $4, country = $5, is_default = $6, updated_at = $7
			WHERE id = $8 AND customer_id = $9
			RETURNING %s
		`, addressColumns)

		var err error
		updated, err = scanAddressRow(tx.QueryRow(ctx, query,
			address.Label, address.Street, address.PostalCode, address.City,
			address.Country, address.IsDefault, address.UpdatedAt,
			address.ID, address.CustomerID,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *AddressRepository) Delete(ctx context.Context, customerID, id string) error {
	result, err := r.pool.Exec(ctx,
		`DELETE FROM addresses WHERE id = $1 AND customer_id = $2`, id, customerID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// SetDefault makes the given address the default for its type. The single
// UPDATE toggles is_default across all addresses of that (customer, type)
// pair; addresses of the other type are untouched.
func (r *AddressRepository) SetDefault(ctx context.Context, customerID, id, addressType string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		// Verify the address exists with the requested type before toggling
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM addresses WHERE id = $1 AND customer_id = $2 AND type = $3)`,
			id, customerID, addressType,
		).Scan(&exists)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if !exists {
			return models.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE addresses SET is_default = (id = $1), updated_at = NOW()
			 WHERE customer_id = $2 AND type = $3`,
			id, customerID, addressType,
		)
		return database.MapPostgresError(err)
	})
}

func clearDefault(ctx context.Context, tx pgx.Tx, customerID, addressType string) error {
	_, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = NOW()
		 WHERE customer_id = $1 AND type = $2 AND is_default`,
		customerID, addressType,
	)
	return database.MapPostgresError(err)
}
