package store

import (
	"context"

	"contractauth/auth-service/internal/models"
)

// MaxUsersPerContract is the hard per-contract registration cap.
const MaxUsersPerContract = 100

// NewUser carries the fields persisted at registration. PasswordHash is the
// bcrypt hash; the store never sees a plaintext password.
type NewUser struct {
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
}

// Store is the storage collaborator for contracts and their users. The
// uniqueness and capacity checks in CreateUser must be atomic with the insert:
// two racing registrations for the same (contract, username), or two racing
// registrations against a contract with one free slot, must not both succeed.
type Store interface {
	CreateContract(ctx context.Context, appName string) (models.Contract, error)
	GetContractByKey(ctx context.Context, key string) (models.Contract, error)
	DeleteContract(ctx context.Context, key string) error

	CreateUser(ctx context.Context, contractKey string, user NewUser) (models.User, error)
	ListUsers(ctx context.Context, contractKey string) ([]models.User, error)
	DeleteAllUsers(ctx context.Context, contractKey string) (int64, error)

	// FindUserForLogin resolves a user by username inside the contract whose
	// app name matches, returning the stored credential hash alongside the
	// sanitized user. App names are not unique; when several contracts share
	// one, the oldest contract wins.
	FindUserForLogin(ctx context.Context, username, appName string) (models.User, string, error)

	// GetContractUser resolves a user by username inside a specific contract.
	GetContractUser(ctx context.Context, contractID, username string) (models.User, error)
}
