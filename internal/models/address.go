package models

import "github.com/gocql/gocql"

// Address is a postal address tied to a party. Once attached to an
// order it is copied by value and never mutated again.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// SavedAddress is an entry in the user's address book.
type SavedAddress struct {
	ID        gocql.UUID `json:"id" db:"address_id"`
	UserID    string     `json:"userId" db:"user_id"`
	Label     string     `json:"label" db:"label"`
	Address   Address    `json:"address"`
	IsDefault bool       `json:"isDefault" db:"is_default"`
}
