package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/testutil"
)

func TestUserRepository_ListBySociety(t *testing.T) {
	db := testutil.DB(t)
	society := testutil.NewSociety(t, db, "Kandy")
	other := testutil.NewSociety(t, db, "Galle")
	testutil.NewUser(t, db, "94770000001", domain.RolePresident, &society.ID)
	testutil.NewUser(t, db, "94770000002", domain.RoleMeterReader, &society.ID)
	testutil.NewUser(t, db, "94770000003", domain.RoleMeterReader, &society.ID)
	testutil.NewUser(t, db, "94770000004", domain.RoleMeterReader, &other.ID)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users, total, err := repo.ListBySociety(ctx, society.ID, "", 0, 10)
	if err != nil {
		t.Fatalf("ListBySociety() error = %v", err)
	}
	if total != 3 || len(users) != 3 {
		t.Errorf("got %d users, total %d; want 3, 3", len(users), total)
	}

	readers, total, err := repo.ListBySociety(ctx, society.ID, string(domain.RoleMeterReader), 0, 1)
	if err != nil {
		t.Fatalf("ListBySociety(role) error = %v", err)
	}
	if total != 2 || len(readers) != 1 {
		t.Errorf("got %d readers, total %d; want 1 page of 2", len(readers), total)
	}
}

func TestUserRepository_BindSocietyAndExists(t *testing.T) {
	db := testutil.DB(t)
	society := testutil.NewSociety(t, db, "Kandy")
	user := testutil.NewUser(t, db, "94770000001", domain.RoleSecretary, nil)
	repo := NewUserRepository(db)
	ctx := context.Background()

	exists, err := repo.ExistsByMobileNumber(ctx, "94770000001")
	if err != nil || !exists {
		t.Fatalf("ExistsByMobileNumber() = %v, %v", exists, err)
	}
	if exists, _ := repo.ExistsByMobileNumber(ctx, "94779999999"); exists {
		t.Error("unknown mobile should not exist")
	}

	if err := repo.BindSociety(ctx, user.ID, society.ID, &user.ID); err != nil {
		t.Fatalf("BindSociety() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, user.ID)
	if got.SocietyID == nil || *got.SocietyID != society.ID {
		t.Errorf("SocietyID = %v, want %s", got.SocietyID, society.ID)
	}
}

func TestSocietyRepository_ListAndUpdate(t *testing.T) {
	db := testutil.DB(t)
	a := testutil.NewSociety(t, db, "A")
	testutil.NewSociety(t, db, "B")
	repo := NewSocietyRepository(db)
	ctx := context.Background()

	societies, total, err := repo.List(ctx, 0, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 || len(societies) != 1 {
		t.Errorf("got %d, total %d; want 1 page of 2", len(societies), total)
	}

	if err := repo.Update(ctx, a.ID, map[string]interface{}{"name": "Renamed", "is_active": false}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, a.ID)
	if got.Name != "Renamed" || got.IsActive {
		t.Errorf("after update: %+v", got)
	}
}

func TestAssignmentRepository_Lifecycle(t *testing.T) {
	db := testutil.DB(t)
	society := testutil.NewSociety(t, db, "Kandy")
	first := testutil.NewUser(t, db, "94770000001", domain.RolePresident, &society.ID)
	second := testutil.NewUser(t, db, "94770000002", domain.RolePresident, &society.ID)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	testutil.Assign(t, db, society.ID, first.ID, domain.RolePresident, t0)

	n, err := repo.DeactivateActive(ctx, society.ID, string(domain.RolePresident), t0.Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeactivateActive() = %d, %v; want 1, nil", n, err)
	}

	latest := testutil.Assign(t, db, society.ID, second.ID, domain.RolePresident, t0.Add(time.Hour))

	count, _ := repo.CountActive(ctx, society.ID, string(domain.RolePresident))
	if count != 1 {
		t.Errorf("CountActive() = %d, want 1", count)
	}

	active, err := repo.ListActiveBySociety(ctx, society.ID)
	if err != nil {
		t.Fatalf("ListActiveBySociety() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != latest.ID {
		t.Fatalf("active = %+v, want only the latest assignment", active)
	}
	if active[0].User == nil || active[0].User.ID != second.ID {
		t.Error("ListActiveBySociety() should preload the user")
	}

	history, _ := repo.ListBySociety(ctx, society.ID)
	if len(history) != 2 || history[0].ID != latest.ID {
		t.Errorf("history should list both assignments newest first, got %d", len(history))
	}
	if history[1].UnassignedAt == nil {
		t.Error("deactivated assignment should record unassigned_at")
	}

	if err := repo.Deactivate(ctx, latest.ID, t0.Add(2*time.Hour)); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	mine, _ := repo.ListActiveByUserID(ctx, second.ID)
	if len(mine) != 0 {
		t.Errorf("ListActiveByUserID() = %d, want 0", len(mine))
	}
}

func TestStore_TransactionRollsBack(t *testing.T) {
	db := testutil.DB(t)
	store := NewStore(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Societies.Create(ctx, testSocietyModel("Rollback")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want boom", err)
	}

	_, total, _ := store.Societies.List(ctx, 0, 10)
	if total != 0 {
		t.Errorf("societies = %d, want 0 after rollback", total)
	}
}

func testSocietyModel(name string) *models.Society {
	return &models.Society{Name: name, WaterBoardRegNo: "WB-" + name, IsActive: true, BillingSchemeJSON: "{}"}
}
