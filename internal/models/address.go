package models

import "time"

// Address kinds. Default flags are scoped per (customer, type): a customer has
// at most one default shipping address and at most one default billing address.
const (
	AddressTypeShipping = "shipping"
	AddressTypeBilling  = "billing"
)

type Address struct {
	ID         string
	CustomerID string
	Type       string // "shipping" or "billing"
	Label      string // e.g. "Hjemme", "Kontor"
	Street     string
	PostalCode string
	City       string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidAddressType reports whether t is a known address type.
func ValidAddressType(t string) bool {
	return t == AddressTypeShipping || t == AddressTypeBilling
}
