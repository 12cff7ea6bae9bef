// Package memory implements the store against process memory. It enforces the
// same uniqueness and capacity semantics as the postgres store, so the core
// service can be exercised without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"contractauth/auth-service/internal/models"
	"contractauth/auth-service/internal/store"

	"github.com/google/uuid"
)

type userRecord struct {
	user         models.User
	passwordHash string
}

type contractRecord struct {
	contract models.Contract
	seq      int
	users    map[string]*userRecord
}

type Store struct {
	mu    sync.Mutex
	byKey map[string]*contractRecord
	byID  map[string]*contractRecord
	seq   int
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		byKey: make(map[string]*contractRecord),
		byID:  make(map[string]*contractRecord),
		now:   time.Now,
	}
}

// SetClock overrides the timestamp source. Test use only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateContract(_ context.Context, appName string) (models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contract := models.Contract{
		ContractID: uuid.NewString(),
		Key:        uuid.NewString(),
		AppName:    appName,
		Created:    s.now().UTC(),
	}
	s.seq++
	record := &contractRecord{
		contract: contract,
		seq:      s.seq,
		users:    make(map[string]*userRecord),
	}
	s.byKey[contract.Key] = record
	s.byID[contract.ContractID] = record
	return contract, nil
}

func (s *Store) GetContractByKey(_ context.Context, key string) (models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byKey[key]
	if !ok {
		return models.Contract{}, store.ErrContractNotFound
	}
	return record.contract, nil
}

func (s *Store) DeleteContract(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byKey[key]
	if !ok {
		return store.ErrContractNotFound
	}
	delete(s.byKey, key)
	delete(s.byID, record.contract.ContractID)
	return nil
}

func (s *Store) CreateUser(_ context.Context, contractKey string, user store.NewUser) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byKey[contractKey]
	if !ok {
		return models.User{}, store.ErrContractNotFound
	}
	if len(record.users) >= store.MaxUsersPerContract {
		return models.User{}, store.ErrContractFull
	}
	if _, exists := record.users[user.Username]; exists {
		return models.User{}, store.ErrDuplicateUsername
	}

	created := models.User{
		UserID:     uuid.NewString(),
		ContractID: record.contract.ContractID,
		Username:   user.Username,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Created:    s.now().UTC(),
	}
	record.users[user.Username] = &userRecord{user: created, passwordHash: user.PasswordHash}
	return created, nil
}

func (s *Store) ListUsers(_ context.Context, contractKey string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byKey[contractKey]
	if !ok {
		return nil, store.ErrContractNotFound
	}
	var users []models.User
	for _, rec := range record.users {
		users = append(users, rec.user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Store) DeleteAllUsers(_ context.Context, contractKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byKey[contractKey]
	if !ok {
		return 0, store.ErrContractNotFound
	}
	removed := int64(len(record.users))
	record.users = make(map[string]*userRecord)
	return removed, nil
}

func (s *Store) FindUserForLogin(_ context.Context, username, appName string) (models.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Oldest contract wins when app names collide, matching the postgres
	// ORDER BY created_at, contract_id.
	var match *contractRecord
	for _, record := range s.byKey {
		if record.contract.AppName != appName {
			continue
		}
		if _, ok := record.users[username]; !ok {
			continue
		}
		if match == nil || record.seq < match.seq {
			match = record
		}
	}
	if match == nil {
		return models.User{}, "", store.ErrUserNotFound
	}
	rec := match.users[username]
	return rec.user, rec.passwordHash, nil
}

func (s *Store) GetContractUser(_ context.Context, contractID, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[contractID]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	rec, ok := record.users[username]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return rec.user, nil
}
