// Package auth implements the contract-scoped identity operations: contract
// lifecycle, user registration, credential verification, and the token flows.
// Transport layers call these methods and map the returned sentinels.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"

	"contractauth/auth-service/internal/models"
	"contractauth/auth-service/internal/store"
	"contractauth/auth-service/internal/token"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials covers unknown user, wrong password, and wrong
	// app name alike, so a caller cannot probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized covers missing, malformed, expired, and orphaned
	// tokens. The wrapped cause is for logs only.
	ErrUnauthorized = errors.New("unauthorized")
)

// RegisterInput is a registration request with the plaintext password still
// attached. The password is hashed here and never reaches the store.
type RegisterInput struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// TokenPair is the login result.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type Service struct {
	store  store.Store
	tokens *token.Manager
}

func NewService(st store.Store, tokens *token.Manager) *Service {
	return &Service{store: st, tokens: tokens}
}

func (s *Service) CreateContract(ctx context.Context, appName string) (models.Contract, error) {
	return s.store.CreateContract(ctx, appName)
}

func (s *Service) DeleteContract(ctx context.Context, contractKey string) error {
	return s.store.DeleteContract(ctx, contractKey)
}

// Register hashes the password and creates the user. The store enforces
// contract existence, the capacity cap, and username uniqueness atomically.
func (s *Service) Register(ctx context.Context, contractKey string, input RegisterInput) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.store.CreateUser(ctx, contractKey, store.NewUser{
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: string(hash),
	})
}

func (s *Service) ListUsers(ctx context.Context, contractKey string) ([]models.User, error) {
	return s.store.ListUsers(ctx, contractKey)
}

func (s *Service) DeleteAllUsers(ctx context.Context, contractKey string) (int64, error) {
	return s.store.DeleteAllUsers(ctx, contractKey)
}

// Login verifies the credential triple and issues an access/refresh pair
// scoped to the user's contract.
func (s *Service) Login(ctx context.Context, username, password, appName string) (TokenPair, error) {
	user, passwordHash, err := s.store.FindUserForLogin(ctx, username, appName)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	access, refresh, err := s.tokens.IssuePair(user.Username, user.ContractID)
	if err != nil {
		log.Printf("token issue failed user=%s: %v", user.UserID, err)
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// WhoAmI resolves an access token back to its user. The subject must still
// exist inside the contract the token was issued for; a user or contract
// deleted after issuance yields ErrUnauthorized.
func (s *Service) WhoAmI(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.decodeKind(accessToken, token.KindAccess)
	if err != nil {
		return models.User{}, err
	}
	user, err := s.store.GetContractUser(ctx, claims.ContractID, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: subject no longer exists", ErrUnauthorized)
		}
		return models.User{}, err
	}
	return user, nil
}

// RefreshAccess mints a new access token from a valid refresh token. The
// refresh token itself is not rotated and stays usable until it expires.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.decodeKind(refreshToken, token.KindRefresh)
	if err != nil {
		return "", err
	}
	if _, err := s.store.GetContractUser(ctx, claims.ContractID, claims.Subject); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return "", fmt.Errorf("%w: subject no longer exists", ErrUnauthorized)
		}
		return "", err
	}
	return s.tokens.IssueAccess(claims.Subject, claims.ContractID)
}

func (s *Service) decodeKind(tokenStr, wantKind string) (token.Claims, error) {
	claims, err := s.tokens.Decode(tokenStr)
	if err != nil {
		return token.Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Kind != wantKind {
		return token.Claims{}, fmt.Errorf("%w: wrong token kind", ErrUnauthorized)
	}
	return claims, nil
}
