package postgres

import (
	"context"
	"errors"

	"contractauth/auth-service/internal/models"
	"contractauth/auth-service/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateContract(ctx context.Context, appName string) (models.Contract, error) {
	contract := models.Contract{
		ContractID: uuid.NewString(),
		Key:        uuid.NewString(),
		AppName:    appName,
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO contracts (contract_id, key, app_name)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, contract.ContractID, contract.Key, contract.AppName)
	if err := row.Scan(&contract.Created); err != nil {
		return models.Contract{}, err
	}
	return contract, nil
}

func (s *Store) GetContractByKey(ctx context.Context, key string) (models.Contract, error) {
	var contract models.Contract
	row := s.pool.QueryRow(ctx, `
		SELECT contract_id, key, app_name, created_at
		FROM contracts
		WHERE key = $1
	`, key)
	if err := row.Scan(&contract.ContractID, &contract.Key, &contract.AppName, &contract.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Contract{}, store.ErrContractNotFound
		}
		return models.Contract{}, err
	}
	return contract, nil
}

func (s *Store) DeleteContract(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM contracts
		WHERE key = $1
	`, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrContractNotFound
	}
	return nil
}

// CreateUser locks the contract row for the duration of the transaction so
// the capacity count and the insert observe a stable user set. Duplicate
// usernames are caught by the (contract_id, username) unique index rather
// than the application-level check alone.
func (s *Store) CreateUser(ctx context.Context, contractKey string, user store.NewUser) (models.User, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.User{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var contractID string
	row := tx.QueryRow(ctx, `
		SELECT contract_id
		FROM contracts
		WHERE key = $1
		FOR UPDATE
	`, contractKey)
	if err := row.Scan(&contractID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrContractNotFound
		}
		return models.User{}, err
	}

	var count int
	row = tx.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM users
		WHERE contract_id = $1
	`, contractID)
	if err := row.Scan(&count); err != nil {
		return models.User{}, err
	}
	if count >= store.MaxUsersPerContract {
		return models.User{}, store.ErrContractFull
	}

	created := models.User{
		UserID:     uuid.NewString(),
		ContractID: contractID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
	}
	row = tx.QueryRow(ctx, `
		INSERT INTO users (user_id, contract_id, username, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, created.UserID, created.ContractID, created.Username, created.FirstName, created.LastName, user.PasswordHash)
	if err := row.Scan(&created.Created); err != nil {
		if isUniqueViolation(err) {
			return models.User{}, store.ErrDuplicateUsername
		}
		return models.User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.User{}, err
	}
	return created, nil
}

func (s *Store) ListUsers(ctx context.Context, contractKey string) ([]models.User, error) {
	contract, err := s.GetContractByKey(ctx, contractKey)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT user_id, contract_id, username, first_name, last_name, created_at
		FROM users
		WHERE contract_id = $1
		ORDER BY created_at ASC
	`, contract.ContractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.UserID, &user.ContractID, &user.Username, &user.FirstName, &user.LastName, &user.Created); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) DeleteAllUsers(ctx context.Context, contractKey string) (int64, error) {
	contract, err := s.GetContractByKey(ctx, contractKey)
	if err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM users
		WHERE contract_id = $1
	`, contract.ContractID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) FindUserForLogin(ctx context.Context, username, appName string) (models.User, string, error) {
	var user models.User
	var passwordHash string
	row := s.pool.QueryRow(ctx, `
		SELECT u.user_id, u.contract_id, u.username, u.first_name, u.last_name, u.created_at, u.password_hash
		FROM users u
		JOIN contracts c ON c.contract_id = u.contract_id
		WHERE u.username = $1 AND c.app_name = $2
		ORDER BY c.created_at ASC, c.contract_id ASC
		LIMIT 1
	`, username, appName)
	if err := row.Scan(&user.UserID, &user.ContractID, &user.Username, &user.FirstName, &user.LastName, &user.Created, &passwordHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, "", store.ErrUserNotFound
		}
		return models.User{}, "", err
	}
	return user, passwordHash, nil
}

func (s *Store) GetContractUser(ctx context.Context, contractID, username string) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, contract_id, username, first_name, last_name, created_at
		FROM users
		WHERE contract_id = $1 AND username = $2
	`, contractID, username)
	if err := row.Scan(&user.UserID, &user.ContractID, &user.Username, &user.FirstName, &user.LastName, &user.Created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
