package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

func testCredentials(id, userID, platform, accountID string) *models.PlatformCredentials {
	now := time.Now().UTC()
	return &models.PlatformCredentials{
		ID:             id,
		UserID:         userID,
		Platform:       platform,
		AccountID:      accountID,
		AccountName:    "Test Account",
		AccessTokenEnc: "enc:access",
		TokenType:      "Bearer",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCredentialsRepository_Upsert(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	creds := testCredentials("cred_1", "user_1", models.PlatformMeta, "act_123")
	if err := repos.Credentials.Upsert(ctx, creds); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	t.Run("reconnect updates tokens in place", func(t *testing.T) {
		updated := testCredentials("cred_other_id", "user_1", models.PlatformMeta, "act_123")
		updated.AccessTokenEnc = "enc:access_v2"
		if err := repos.Credentials.Upsert(ctx, updated); err != nil {
			t.Fatalf("Upsert() reconnect error = %v", err)
		}

		all, err := repos.Credentials.GetByUserID(ctx, "user_1")
		if err != nil {
			t.Fatalf("GetByUserID() error = %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("count = %d, want 1 (same account upserted)", len(all))
		}
		if all[0].AccessTokenEnc != "enc:access_v2" {
			t.Errorf("AccessTokenEnc = %q, want enc:access_v2", all[0].AccessTokenEnc)
		}
	})

	t.Run("different account creates second row", func(t *testing.T) {
		second := testCredentials("cred_2", "user_1", models.PlatformMeta, "act_456")
		if err := repos.Credentials.Upsert(ctx, second); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}

		all, _ := repos.Credentials.GetByUserID(ctx, "user_1")
		if len(all) != 2 {
			t.Errorf("count = %d, want 2", len(all))
		}
	})
}

func TestCredentialsRepository_GetByUserAndPlatform(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Credentials.Upsert(ctx, testCredentials("cred_1", "user_1", models.PlatformGoogle, "cust_1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	found, err := repos.Credentials.GetByUserAndPlatform(ctx, "user_1", models.PlatformGoogle)
	if err != nil {
		t.Fatalf("GetByUserAndPlatform() error = %v", err)
	}
	if found == nil || found.AccountID != "cust_1" {
		t.Fatalf("GetByUserAndPlatform() = %+v, want cust_1", found)
	}

	missing, err := repos.Credentials.GetByUserAndPlatform(ctx, "user_1", models.PlatformTikTok)
	if err != nil {
		t.Fatalf("GetByUserAndPlatform() error = %v", err)
	}
	if missing != nil {
		t.Error("should return nil when platform not connected")
	}
}

func TestCredentialsRepository_UpdateTokens(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Credentials.Upsert(ctx, testCredentials("cred_1", "user_1", models.PlatformLinkedIn, "org_1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	if err := repos.Credentials.UpdateTokens(ctx, "cred_1", "enc:new_access", "enc:new_refresh", &expires); err != nil {
		t.Fatalf("UpdateTokens() error = %v", err)
	}

	creds, _ := repos.Credentials.GetByID(ctx, "cred_1")
	if creds.AccessTokenEnc != "enc:new_access" {
		t.Errorf("AccessTokenEnc = %q, want enc:new_access", creds.AccessTokenEnc)
	}
	if creds.RefreshTokenEnc != "enc:new_refresh" {
		t.Errorf("RefreshTokenEnc = %q, want enc:new_refresh", creds.RefreshTokenEnc)
	}
	if creds.ExpiresAt == nil || !creds.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", creds.ExpiresAt, expires)
	}

	if err := repos.Credentials.UpdateTokens(ctx, "cred_missing", "a", "b", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateTokens(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCredentialsRepository_Delete(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	if err := repos.Credentials.Upsert(ctx, testCredentials("cred_1", "user_1", models.PlatformPinterest, "adv_1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repos.Credentials.Delete(ctx, "cred_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repos.Credentials.Delete(ctx, "cred_1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
