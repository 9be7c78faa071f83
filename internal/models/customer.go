package models

import (
	"fmt"
	"time"
)

// Account types discriminate which profile fields are valid for a customer.
const (
	AccountTypePrivate = "private"
	AccountTypeCompany = "company"
)

type Customer struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	AccountType  string // "private" or "company"
	Company      *CompanyProfile
	MFAEnabled   bool
	TOTPSecret   []byte // AES-256-GCM encrypted, nil until MFA enrollment
	TOTPNonce    []byte
	TokenKey     string // Per-customer secret for composite token signing
	Status       string // "active", "suspended", "disabled"
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// CompanyProfile carries the company-specific part of a customer account.
// Only company accounts may have one; a company account registered without a
// company name has none until it is filled in later.
type CompanyProfile struct {
	CustomerID    string
	CompanyName   string
	OrgNumber     string // 9-digit Norwegian organization number
	VATNumber     *string
	Industry      *string
	ContactPerson string
	BillingStreet string
	BillingZip    string
	BillingCity   string
	Departments   []Department
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Department is a named unit within a company account.
type Department struct {
	ID            string
	CustomerID    string
	Name          string
	EmployeeCount int
	Budget        int64 // yearly budget in øre
}

// FullName returns "first last", used as the default company contact person.
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Validate checks the account-type/profile pairing. A private account must
// never carry a company profile.
func (c *Customer) Validate() error {
	switch c.AccountType {
	case AccountTypePrivate:
		if c.Company != nil {
			return fmt.Errorf("%w: private account cannot have a company profile", ErrBadRequest)
		}
	case AccountTypeCompany:
		// Company profile is optional until a company name is supplied.
	default:
		return fmt.Errorf("%w: unknown account type %q", ErrBadRequest, c.AccountType)
	}
	return nil
}

func (c *Customer) IsCompany() bool {
	return c.AccountType == AccountTypeCompany
}
