package repository

import (
	"context"
	"testing"

	"estate_listing_v1/internal/model"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := &model.User{Email: " Alice@Example.com ", Password: "hash", Role: model.UserRoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("ID 应该被自动分配")
	}

	found, err := repo.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if found == nil || found.ID != user.ID {
		t.Fatalf("GetByEmail() = %v, want id %d", found, user.ID)
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Errorf("Email = %s, want alice@example.com", byID.Email)
	}
}

func TestUserRepo_NotFoundReturnsNil(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user, err := repo.GetByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if user != nil {
		t.Errorf("GetByEmail() = %v, want nil", user)
	}

	user, err = repo.GetByID(ctx, 42)
	if err != nil || user != nil {
		t.Errorf("GetByID() = %v, %v, want nil, nil", user, err)
	}
}

func TestUserRepo_ExistsAndLastLogin(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := &model.User{Email: "bob@example.com", Password: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	exists, err := repo.ExistsByEmail(ctx, "BOB@example.com")
	if err != nil || !exists {
		t.Errorf("ExistsByEmail() = %v, %v, want true", exists, err)
	}

	if err := repo.UpdateLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("UpdateLastLogin() error = %v", err)
	}
	found, _ := repo.GetByID(ctx, user.ID)
	if found.LastLoginAt == nil {
		t.Error("LastLoginAt 应该被更新")
	}
}
