package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when inserting a user whose email is
	// already taken. The unique index on users.email is the authority; a
	// losing concurrent insert surfaces here as well.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateAccountLink is returned when inserting an account whose
	// (provider, provider_account_id) pair is already linked.
	ErrDuplicateAccountLink = errors.New("provider account already linked")
)
