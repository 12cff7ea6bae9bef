package store

import "errors"

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrContractFull      = errors.New("contract user limit reached")
	ErrDuplicateUsername = errors.New("username already registered in contract")
	ErrUserNotFound      = errors.New("user not found")
)
