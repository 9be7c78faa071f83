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
	"github.com/nornex-as/portal/pkg/auth"
)

type CustomerRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewCustomerRepository(db *database.DB) *CustomerRepository {
	return &CustomerRepository{db: db, pool: db.Pool}
}

const customerColumns = `id, email, password_hash, first_name, last_name, phone, account_type,
		mfa_enabled, totp_secret, totp_nonce, token_key, status, created_at, updated_at, last_login_at`

// rowScanner interface for scanning customer rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomerRow(scanner rowScanner) (*models.Customer, error) {
	var c models.Customer
	var phone *string
	var lastLoginAt *time.Time

	err := scanner.Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FirstName, &c.LastName, &phone,
		&c.AccountType, &c.MFAEnabled, &c.TOTPSecret, &c.TOTPNonce,
		&c.TokenKey, &c.Status, &c.CreatedAt, &c.UpdatedAt, &lastLoginAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	c.Phone = phone
	c.LastLoginAt = lastLoginAt

	return &c, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*models.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)

	customer, err := scanCustomerRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadCompanyProfile(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE email = $1`, customerColumns)

	customer, err := scanCustomerRow(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		return nil, err
	}

	if err := r.loadCompanyProfile(ctx, customer); err != nil {
		return nil, err
	}

	return customer, nil
}

// loadCompanyProfile attaches the company profile and departments for company
// accounts. A company account without a stored profile stays nil.
func (r *CustomerRepository) loadCompanyProfile(ctx context.Context, c *models.Customer) error {
	if !c.IsCompany() {
		return nil
	}

	query := `
		SELECT customer_id, company_name, org_number, vat_number, industry, contact_person,
			billing_street, billing_zip, billing_city, created_at, updated_at
		FROM company_profiles WHERE customer_id = $1
	`

	var p models.CompanyProfile
	err := r.pool.QueryRow(ctx, query, c.ID).Scan(
		&p.CustomerID, &p.CompanyName, &p.OrgNumber, &p.VATNumber, &p.Industry,
		&p.ContactPerson, &p.BillingStreet, &p.BillingZip, &p.BillingCity,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if database.MapPostgresError(err) == models.ErrNotFound {
			return nil
		}
		return database.MapPostgresError(err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, customer_id, name, employee_count, budget FROM departments WHERE customer_id = $1 ORDER BY name`,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.CustomerID, &d.Name, &d.EmployeeCount, &d.Budget); err != nil {
			return fmt.Errorf("failed to scan department: %w", err)
		}
		p.Departments = append(p.Departments, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating departments: %w", err)
	}

	c.Company = &p
	return nil
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	customer.ID = uuid.New().String()

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	customer.TokenKey = tokenKey

	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if customer.Status == "" {
		customer.Status = "active"
	}

	err = r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO customers (id, email, password_hash, first_name, last_name, phone,
				account_type, mfa_enabled, token_key, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := tx.Exec(ctx, query,
			customer.ID, customer.Email, customer.PasswordHash, customer.FirstName,
			customer.LastName, customer.Phone, customer.AccountType, customer.MFAEnabled,
			customer.TokenKey, customer.Status, customer.CreatedAt, customer.UpdatedAt,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if customer.Company != nil {
			customer.Company.CustomerID = customer.ID
			customer.Company.CreatedAt = now
			customer.Company.UpdatedAt = now
			if err := insertCompanyProfile(ctx, tx, customer.Company); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return customer, nil
}

func insertCompanyProfile(ctx context.Context, tx pgx.Tx, p *models.CompanyProfile) error {
	query := `
		INSERT INTO company_profiles (customer_id, company_name, org_number, vat_number, industry,
			contact_person, billing_street, billing_zip, billing_city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.Exec(ctx, query,
		p.CustomerID, p.CompanyName, p.OrgNumber, p.VATNumber, p.Industry,
		p.ContactPerson, p.BillingStreet, p.BillingZip, p.BillingCity,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}

	for i := range p.Departments {
		d := &p.Departments[i]
		d.ID = uuid.New().String()
		d.CustomerID = p.CustomerID
		_, err := tx.Exec(ctx,
			`INSERT INTO departments (id, customer_id, name, employee_count, budget) VALUES ($1, $2, $3, $4, $5)`,
			d.ID, d.CustomerID, d.Name, d.EmployeeCount, d.Budget,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}
	}

	return nil
}

// Update writes the mutable profile fields of a customer
func (r *CustomerRepository) Update(ctx context.Context, id string, customer *models.Customer) (*models.Customer, error) {
	customer.UpdatedAt = time.Now()

	query := fmt.Sprintf(`
		UPDATE customers
		SET first_name = $1, last_name = $2, phone = $3, mfa_enabled = $4,
			totp_secret = $5, totp_nonce = $6, token_key = $7, status = $8, updated_at = $9
		WHERE id = $10
		RETURNING %s
	`, customerColumns)

	updated, err := scanCustomerRow(r.pool.QueryRow(ctx, query,
		customer.FirstName, customer.LastName, customer.Phone, customer.MFAEnabled,
		customer.TOTPSecret, customer.TOTPNonce, customer.TokenKey, customer.Status,
		customer.UpdatedAt, id,
	))
	if err != nil {
		return nil, err
	}

	if err := r.loadCompanyProfile(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdatePassword replaces the password hash and stamps password_changed_at
func (r *CustomerRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE customers SET password_hash = $1, password_changed_at = NOW(), updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// TouchLastLogin stamps the last successful login time
func (r *CustomerRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE customers SET last_login_at = $1 WHERE id = $2`, at, id)
	return database.MapPostgresError(err)
}

// SaveCompanyProfile inserts or replaces the company profile of a company account
func (r *CustomerRepository) SaveCompanyProfile(ctx context.Context, profile *models.CompanyProfile) error {
	now := time.Now()
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO company_profiles (customer_id, company_name, org_number, vat_number, industry,
				contact_person, billing_street, billing_zip, billing_city, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			ON CONFLICT (customer_id) DO UPDATE SET
				company_name = EXCLUDED.company_name,
				org_number = EXCLUDED.org_number,
				vat_number = EXCLUDED.vat_number,
				industry = EXCLUDED.industry,
				contact_person = EXCLUDED.contact_person,
				billing_street = EXCLUDED.billing_street,
				billing_zip = EXCLUDED.billing_zip,
				billing_city = EXCLUDED.billing_city,
				updated_at = EXCLUDED.updated_at
		`
		_, err := tx.Exec(ctx, query,
			profile.CustomerID, profile.CompanyName, profile.OrgNumber, profile.VATNumber,
			profile.Industry, profile.ContactPerson, profile.BillingStreet, profile.BillingZip,
			profile.BillingCity, now,
		)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM departments WHERE customer_id = $1`, profile.CustomerID); err != nil {
			return database.MapPostgresError(err)
		}

		for i := range profile.Departments {
			d := &profile.Departments[i]
			if d.ID == "" {
				d.ID = uuid.New().String()
			}
			d.CustomerID = profile.CustomerID
			_, err := tx.Exec(ctx,
				`INSERT INTO departments (id, customer_id, name, employee_count, budget) VALUES ($1, $2, $3, $4, $5)`,
				d.ID, d.CustomerID, d.Name, d.EmployeeCount, d.Budget,
			)
			if err != nil {
				return database.MapPostgresError(err)
			}
		}

		return nil
	})
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
