package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aureon-one/mediaplan-api/internal/models"
)

func TestPurchaseRepository_Create(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	purchase := &models.CreditPurchase{
		ID:         "pur_1",
		UserID:     "user_1",
		Credits:    500,
		AmountUSD:  9.99,
		Status:     models.PurchaseStatusPending,
		GatewayRef: "cs_test_123",
		CreatedAt:  time.Now().UTC(),
	}
	if err := repos.Purchase.Create(ctx, purchase); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	t.Run("duplicate gateway ref rejected", func(t *testing.T) {
		dup := &models.CreditPurchase{
			ID:         "pur_2",
			UserID:     "user_1",
			Credits:    500,
			AmountUSD:  9.99,
			Status:     models.PurchaseStatusPending,
			GatewayRef: "cs_test_123",
			CreatedAt:  time.Now().UTC(),
		}
		err := repos.Purchase.Create(ctx, dup)
		if !errors.Is(err, ErrDuplicatePurchase) {
			t.Fatalf("error = %v, want ErrDuplicatePurchase", err)
		}
	})

	t.Run("lookup by gateway ref", func(t *testing.T) {
		found, err := repos.Purchase.GetByGatewayRef(ctx, "cs_test_123")
		if err != nil {
			t.Fatalf("GetByGatewayRef() error = %v", err)
		}
		if found == nil || found.ID != "pur_1" {
			t.Fatalf("GetByGatewayRef() = %+v, want pur_1", found)
		}
	})

	t.Run("unknown gateway ref returns nil", func(t *testing.T) {
		found, err := repos.Purchase.GetByGatewayRef(ctx, "cs_test_nope")
		if err != nil {
			t.Fatalf("GetByGatewayRef() error = %v", err)
		}
		if found != nil {
			t.Error("should return nil for unknown ref")
		}
	})
}

func TestPurchaseRepository_MarkRefunded(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	insertTestPurchase(t, db, "pur_done", "user_1", "completed", "cs_ref_1", 500)
	insertTestPurchase(t, db, "pur_pend", "user_1", "pending", "cs_ref_2", 500)

	if err := repos.Purchase.MarkRefunded(ctx, "pur_done"); err != nil {
		t.Fatalf("MarkRefunded() error = %v", err)
	}
	p, _ := repos.Purchase.GetByID(ctx, "pur_done")
	if p.Status != models.PurchaseStatusRefunded {
		t.Errorf("status = %q, want refunded", p.Status)
	}

	// Pending purchases cannot be refunded
	if err := repos.Purchase.MarkRefunded(ctx, "pur_pend"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRefunded(pending) error = %v, want ErrNotFound", err)
	}
}

func TestPurchaseRepository_GetByUserID(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	insertTestPurchase(t, db, "pur_a", "user_1", "completed", "cs_a", 500)
	insertTestPurchase(t, db, "pur_b", "user_1", "pending", "cs_b", 1000)
	insertTestPurchase(t, db, "pur_c", "user_2", "pending", "cs_c", 500)

	purchases, err := repos.Purchase.GetByUserID(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(purchases) != 2 {
		t.Errorf("count = %d, want 2", len(purchases))
	}
}
