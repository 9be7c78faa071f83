package integration

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/google/uuid"
	"github.com/nornex-as/portal/internal/database"
	"github.com/nornex-as/portal/internal/models"
	"github.com/nornex-as/portal/internal/repositories"
	"github.com/nornex-as/portal/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithInitScripts(),
		postgres.WithDatabase("portal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*1000),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(nil, "", 0))

	// Goose needs a stdlib DB connection, so wrap the pgx pool config
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"revoked_tokens",
		"notifications",
		"addresses",
		"departments",
		"company_profiles",
		"customers",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all SQL-backed repository instances
func InitializeRepositories(db *database.DB) (
	*repositories.CustomerRepository,
	*repositories.AddressRepository,
	*repositories.NotificationRepository,
	*repositories.TokenRevocationRepository,
) {
	return repositories.NewCustomerRepository(db),
		repositories.NewAddressRepository(db),
		repositories.NewNotificationRepository(db),
		repositories.NewTokenRevocationRepository(db)
}

// SeedCustomer inserts a test customer with hashed password
func SeedCustomer(ctx context.Context, pool *pgxpool.Pool, email, password, accountType string) (*models.Customer, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}

	query := `
		INSERT INTO customers (id, email, password_hash, first_name, last_name,
			account_type, token_key, status, created_at, updated_at)
		VALUES ($1, $2, $3, 'Test', 'Kunde', $4, $5, 'active', NOW(), NOW())
		RETURNING id, email, password_hash, first_name, last_name, account_type,
			mfa_enabled, token_key, status, created_at, updated_at
	`

	var customer models.Customer
	err = pool.QueryRow(ctx, query, uuid.New().String(), email, hashedPassword, accountType, tokenKey).Scan(
		&customer.ID,
		&customer.Email,
		&customer.PasswordHash,
		&customer.FirstName,
		&customer.LastName,
		&customer.AccountType,
		&customer.MFAEnabled,
		&customer.TokenKey,
		&customer.Status,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}

	return &customer, nil
}

// SeedNotification inserts a notification for a customer
func SeedNotification(ctx context.Context, pool *pgxpool.Pool, customerID, notificationType, title string, read bool) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO notifications (id, customer_id, type, title, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, 'Integrasjonstest', $5, NOW())
	`

	if _, err := pool.Exec(ctx, query, id, customerID, notificationType, title, read); err != nil {
		return "", fmt.Errorf("failed to insert notification: %w", err)
	}

	return id, nil
}
