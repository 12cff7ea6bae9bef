package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"contractauth/auth-service/internal/store"
)

func newUser(username string) store.NewUser {
	return store.NewUser{
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "hash",
	}
}

func TestCreateUserUnknownContract(t *testing.T) {
	st := NewStore()
	_, err := st.CreateUser(context.Background(), "missing-key", newUser("alice"))
	if !errors.Is(err, store.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	contract, err := st.CreateContract(ctx, "shop")
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	if _, err := st.CreateUser(ctx, contract.Key, newUser("alice")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err = st.CreateUser(ctx, contract.Key, newUser("alice"))
	if !errors.Is(err, store.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestSameUsernameAcrossContracts(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	first, _ := st.CreateContract(ctx, "shop")
	second, _ := st.CreateContract(ctx, "blog")

	userA, err := st.CreateUser(ctx, first.Key, newUser("alice"))
	if err != nil {
		t.Fatalf("create in first contract: %v", err)
	}
	userB, err := st.CreateUser(ctx, second.Key, newUser("alice"))
	if err != nil {
		t.Fatalf("create in second contract: %v", err)
	}
	if userA.UserID == userB.UserID {
		t.Fatal("users in different contracts must get distinct IDs")
	}
	if userA.ContractID == userB.ContractID {
		t.Fatal("users must belong to different contracts")
	}
}

func TestCapacityCap(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	contract, _ := st.CreateContract(ctx, "shop")

	for i := 0; i < store.MaxUsersPerContract; i++ {
		if _, err := st.CreateUser(ctx, contract.Key, newUser(fmt.Sprintf("user-%03d", i))); err != nil {
			t.Fatalf("create user %d: %v", i, err)
		}
	}
	_, err := st.CreateUser(ctx, contract.Key, newUser("one-too-many"))
	if !errors.Is(err, store.ErrContractFull) {
		t.Fatalf("expected ErrContractFull, got %v", err)
	}

	// Freeing a slot makes room again.
	if _, err := st.DeleteAllUsers(ctx, contract.Key); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, err := st.CreateUser(ctx, contract.Key, newUser("alice")); err != nil {
		t.Fatalf("create after delete all: %v", err)
	}
}

func TestDeleteAllUsersIdempotent(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	contract, _ := st.CreateContract(ctx, "shop")
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := st.CreateUser(ctx, contract.Key, newUser(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	removed, err := st.DeleteAllUsers(ctx, contract.Key)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	removed, err = st.DeleteAllUsers(ctx, contract.Key)
	if err != nil {
		t.Fatalf("second delete all: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected 0 removed on second call, got %d", removed)
	}
}

func TestDeleteContractRemovesUsers(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	contract, _ := st.CreateContract(ctx, "shop")
	if _, err := st.CreateUser(ctx, contract.Key, newUser("alice")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := st.DeleteContract(ctx, contract.Key); err != nil {
		t.Fatalf("delete contract: %v", err)
	}
	if err := st.DeleteContract(ctx, contract.Key); !errors.Is(err, store.ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound on second delete, got %v", err)
	}
	if _, _, err := st.FindUserForLogin(ctx, "alice", "shop"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after contract delete, got %v", err)
	}
	if _, err := st.GetContractUser(ctx, contract.ContractID, "alice"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound by contract ID, got %v", err)
	}
}

func TestFindUserForLoginPrefersOldestContract(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	older, _ := st.CreateContract(ctx, "shop")
	newer, _ := st.CreateContract(ctx, "shop")

	if _, err := st.CreateUser(ctx, older.Key, newUser("alice")); err != nil {
		t.Fatalf("create in older: %v", err)
	}
	if _, err := st.CreateUser(ctx, newer.Key, newUser("alice")); err != nil {
		t.Fatalf("create in newer: %v", err)
	}

	found, _, err := st.FindUserForLogin(ctx, "alice", "shop")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.ContractID != older.ContractID {
		t.Fatalf("expected user from oldest contract %s, got %s", older.ContractID, found.ContractID)
	}
}

func TestFindUserForLoginWrongAppName(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	contract, _ := st.CreateContract(ctx, "shop")
	if _, err := st.CreateUser(ctx, contract.Key, newUser("alice")); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, _, err := st.FindUserForLogin(ctx, "alice", "blog"); !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for wrong app name, got %v", err)
	}
}

func TestListUsersSorted(t *testing.T) {
	ctx := context.Background()
	st := NewStore()
	st.SetClock(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) })
	contract, _ := st.CreateContract(ctx, "shop")
	for _, name := range []string{"carol", "alice", "bob"} {
		if _, err := st.CreateUser(ctx, contract.Key, newUser(name)); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	users, err := st.ListUsers(ctx, contract.Key)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(users) != len(want) {
		t.Fatalf("expected %d users, got %d", len(want), len(users))
	}
	for i, name := range want {
		if users[i].Username != name {
			t.Fatalf("position %d: expected %s, got %s", i, name, users[i].Username)
		}
	}
}
