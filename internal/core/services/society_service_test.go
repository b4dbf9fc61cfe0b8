package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/logging"
	"aquora-api/internal/pkg/pagination"
	"aquora-api/internal/testutil"

	"gorm.io/gorm"
)

type societyFixture struct {
	db      *gorm.DB
	store   *repositories.Store
	events  *recordingPublisher
	clock   *testClock
	service *SocietyService
	admin   string
}

func newSocietyFixture(t *testing.T) *societyFixture {
	t.Helper()
	db := testutil.DB(t)
	store := repositories.NewStore(db)
	events := &recordingPublisher{}
	clock := newTestClock()
	admin := testutil.NewUser(t, db, "94770000000", domain.RoleSuperAdmin, nil)

	return &societyFixture{
		db:      db,
		store:   store,
		events:  events,
		clock:   clock,
		service: NewSocietyService(store, events, logging.Discard()).WithClock(clock.Now),
		admin:   admin.ID,
	}
}

func (f *societyFixture) assign(t *testing.T, societyID, userID string, role domain.Role) *AssignOfficerResult {
	t.Helper()
	f.clock.Advance(time.Second)
	result, err := f.service.AssignOfficer(context.Background(), societyID, &AssignOfficerInput{UserID: userID, Role: string(role)}, f.admin)
	if err != nil {
		t.Fatalf("AssignOfficer() error = %v", err)
	}
	return result
}

func TestSocietyService_CreateNormalizesScheme(t *testing.T) {
	f := newSocietyFixture(t)
	ctx := context.Background()

	plain, err := f.service.CreateSociety(ctx, &CreateSocietyInput{Name: "Kandy", WaterBoardRegNo: "WB-1"}, f.admin)
	if err != nil {
		t.Fatalf("CreateSociety() error = %v", err)
	}
	if string(plain.BillingSchemeJSON) != "{}" {
		t.Errorf("BillingSchemeJSON = %s, want {}", plain.BillingSchemeJSON)
	}
	if !plain.IsActive {
		t.Error("new society should be active")
	}

	scheme := json.RawMessage(`{"tiers":[{"upTo":10,"rate":25}]}`)
	tiered, err := f.service.CreateSociety(ctx, &CreateSocietyInput{Name: "Galle", WaterBoardRegNo: "WB-2", BillingSchemeJSON: scheme}, f.admin)
	if err != nil {
		t.Fatalf("CreateSociety() error = %v", err)
	}
	if string(tiered.BillingSchemeJSON) != string(scheme) {
		t.Errorf("BillingSchemeJSON = %s, want %s", tiered.BillingSchemeJSON, scheme)
	}

	list, meta, err := f.service.ListSocieties(ctx, pagination.New(1, 10))
	if err != nil {
		t.Fatalf("ListSocieties() error = %v", err)
	}
	if len(list) != 2 || meta.Total != 2 {
		t.Errorf("ListSocieties() = %d items, total %d", len(list), meta.Total)
	}
}

func TestSocietyService_Update(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	ctx := context.Background()

	_, err := f.service.UpdateSociety(ctx, society.ID, &UpdateSocietyInput{}, f.admin)
	expectKind(t, err, domain.KindValidation, "At least one field is required")

	name := "Kandy North"
	_, err = f.service.UpdateSociety(ctx, "missing", &UpdateSocietyInput{Name: &name}, f.admin)
	expectKind(t, err, domain.KindNotFound, "Society not found")

	inactive := false
	day := 5
	got, err := f.service.UpdateSociety(ctx, society.ID, &UpdateSocietyInput{Name: &name, IsActive: &inactive, BillingDayOfMonth: &day}, f.admin)
	if err != nil {
		t.Fatalf("UpdateSociety() error = %v", err)
	}
	if got.Name != name || got.IsActive || got.BillingDayOfMonth == nil || *got.BillingDayOfMonth != 5 {
		t.Errorf("UpdateSociety() = %+v", got)
	}
}

func TestSocietyService_UpdateRejectsNullScheme(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	ctx := context.Background()

	scheme := json.RawMessage(`{"tiers":[{"upTo":10,"rate":25}]}`)
	if _, err := f.service.UpdateSociety(ctx, society.ID, &UpdateSocietyInput{BillingSchemeJSON: scheme}, f.admin); err != nil {
		t.Fatalf("UpdateSociety() error = %v", err)
	}

	_, err := f.service.UpdateSociety(ctx, society.ID, &UpdateSocietyInput{BillingSchemeJSON: json.RawMessage(" null ")}, f.admin)
	expectKind(t, err, domain.KindValidation, "Invalid request body")

	detail, err := f.service.GetSocietyDetail(ctx, society.ID)
	if err != nil {
		t.Fatalf("GetSocietyDetail() error = %v", err)
	}
	if string(detail.BillingSchemeJSON) != string(scheme) {
		t.Errorf("BillingSchemeJSON = %s, want it unchanged", detail.BillingSchemeJSON)
	}

	// {} is the explicit reset
	got, err := f.service.UpdateSociety(ctx, society.ID, &UpdateSocietyInput{BillingSchemeJSON: json.RawMessage(`{}`)}, f.admin)
	if err != nil {
		t.Fatalf("UpdateSociety() error = %v", err)
	}
	if string(got.BillingSchemeJSON) != "{}" {
		t.Errorf("BillingSchemeJSON = %s, want {}", got.BillingSchemeJSON)
	}
}

func TestSocietyService_AssignReplacesPresident(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	u1 := testutil.NewUser(t, f.db, "94770000001", domain.RoleTreasurer, nil)
	u2 := testutil.NewUser(t, f.db, "94770000002", domain.RoleTreasurer, &society.ID)
	ctx := context.Background()

	first := f.assign(t, society.ID, u1.ID, domain.RolePresident)
	if first.Assignment.UserID != u1.ID || !first.Assignment.IsActive {
		t.Fatalf("first assignment = %+v", first.Assignment)
	}
	if len(first.Officers) != 1 || first.Officers[0].UserID != u1.ID {
		t.Fatalf("officers after first assign = %+v", first.Officers)
	}

	bound, _ := f.store.Users.GetByID(ctx, u1.ID)
	if bound.SocietyID == nil || *bound.SocietyID != society.ID {
		t.Error("assigning an unbound user should bind them to the society")
	}

	second := f.assign(t, society.ID, u2.ID, domain.RolePresident)
	if len(second.Officers) != 1 || second.Officers[0].UserID != u2.ID {
		t.Fatalf("officers after second assign = %+v", second.Officers)
	}

	view, err := f.service.ListOfficers(ctx, society.ID)
	if err != nil {
		t.Fatalf("ListOfficers() error = %v", err)
	}
	if len(view.Officers) != 1 || view.Officers[0].UserID != u2.ID {
		t.Errorf("active officers = %+v, want only U2", view.Officers)
	}
	var prior *OfficerView
	for _, h := range view.History {
		if h.UserID == u1.ID {
			prior = h
		}
	}
	if prior == nil {
		t.Fatal("history should keep U1's assignment")
	}
	if prior.IsActive || prior.UnassignedAt == nil {
		t.Errorf("U1's assignment = %+v, want inactive with unassignedAt", prior)
	}

	if got := len(f.events.named(domain.EventOfficerAssigned)); got != 2 {
		t.Errorf("officer assigned events = %d, want 2", got)
	}
}

func TestSocietyService_OfficerExclusivity(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	ctx := context.Background()

	var users []string
	for _, mobile := range []string{"94770000001", "94770000002", "94770000003", "94770000004"} {
		users = append(users, testutil.NewUser(t, f.db, mobile, domain.RoleTreasurer, nil).ID)
	}

	sequence := []struct {
		user int
		role domain.Role
	}{
		{0, domain.RolePresident},
		{1, domain.RoleSecretary},
		{2, domain.RolePresident},
		{0, domain.RoleSecretary},
		{3, domain.RolePresident},
		{1, domain.RolePresident},
		{1, domain.RolePresident},
	}

	for _, step := range sequence {
		f.assign(t, society.ID, users[step.user], step.role)

		for _, role := range []domain.Role{domain.RolePresident, domain.RoleSecretary} {
			count, err := f.store.Assignments.CountActive(ctx, society.ID, string(role))
			if err != nil {
				t.Fatalf("CountActive() error = %v", err)
			}
			if count > 1 {
				t.Fatalf("%d active %s assignments", count, role)
			}
		}
	}

	view, _ := f.service.ListOfficers(ctx, society.ID)
	holders := map[string]string{}
	for _, o := range view.Officers {
		holders[o.Role] = o.UserID
	}
	if len(view.Officers) != 2 || holders["PRESIDENT"] != users[1] || holders["SECRETARY"] != users[0] {
		t.Errorf("final officers = %v, want PRESIDENT=%s SECRETARY=%s", holders, users[1], users[0])
	}
}

func TestSocietyService_AssignRejections(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	other := testutil.NewSociety(t, f.db, "Galle")
	outsider := testutil.NewUser(t, f.db, "94770000001", domain.RoleTreasurer, &other.ID)
	local := testutil.NewUser(t, f.db, "94770000002", domain.RoleTreasurer, &society.ID)
	ctx := context.Background()

	_, err := f.service.AssignOfficer(ctx, society.ID, &AssignOfficerInput{UserID: outsider.ID, Role: "PRESIDENT"}, f.admin)
	expectKind(t, err, domain.KindValidation, "User belongs to a different society")

	_, err = f.service.AssignOfficer(ctx, society.ID, &AssignOfficerInput{UserID: "missing", Role: "PRESIDENT"}, f.admin)
	expectKind(t, err, domain.KindNotFound, "User not found")

	_, err = f.service.AssignOfficer(ctx, "missing", &AssignOfficerInput{UserID: local.ID, Role: "PRESIDENT"}, f.admin)
	expectKind(t, err, domain.KindNotFound, "Society not found")

	_, err = f.service.AssignOfficer(ctx, society.ID, &AssignOfficerInput{UserID: local.ID, Role: "TREASURER"}, f.admin)
	expectKind(t, err, domain.KindValidation, "")

	f.db.Model(society).Update("is_active", false)
	_, err = f.service.AssignOfficer(ctx, society.ID, &AssignOfficerInput{UserID: local.ID, Role: "PRESIDENT"}, f.admin)
	expectKind(t, err, domain.KindValidation, "Society is inactive")
}

func TestSocietyService_DeactivateOfficer(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	other := testutil.NewSociety(t, f.db, "Galle")
	user := testutil.NewUser(t, f.db, "94770000001", domain.RoleTreasurer, nil)
	ctx := context.Background()

	result := f.assign(t, society.ID, user.ID, domain.RoleSecretary)

	_, err := f.service.DeactivateOfficer(ctx, other.ID, result.Assignment.ID, f.admin)
	expectKind(t, err, domain.KindNotFound, "Assignment not found")

	_, err = f.service.DeactivateOfficer(ctx, society.ID, "missing", f.admin)
	expectKind(t, err, domain.KindNotFound, "Assignment not found")

	officers, err := f.service.DeactivateOfficer(ctx, society.ID, result.Assignment.ID, f.admin)
	if err != nil {
		t.Fatalf("DeactivateOfficer() error = %v", err)
	}
	if len(officers) != 0 {
		t.Errorf("officers = %+v, want none", officers)
	}

	detail, err := f.service.GetSocietyDetail(ctx, society.ID)
	if err != nil {
		t.Fatalf("GetSocietyDetail() error = %v", err)
	}
	if len(detail.Officers) != 0 {
		t.Errorf("detail officers = %+v, want none", detail.Officers)
	}
	if got := len(f.events.named(domain.EventOfficerDeactivated)); got != 1 {
		t.Errorf("officer deactivated events = %d, want 1", got)
	}
}

func TestSocietyService_ListUsers(t *testing.T) {
	f := newSocietyFixture(t)
	society := testutil.NewSociety(t, f.db, "Kandy")
	testutil.NewUser(t, f.db, "94770000001", domain.RoleMeterReader, &society.ID)
	testutil.NewUser(t, f.db, "94770000002", domain.RoleTreasurer, &society.ID)
	ctx := context.Background()

	users, meta, err := f.service.ListUsers(ctx, society.ID, string(domain.RoleMeterReader), pagination.New(1, 20))
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 1 || meta.Total != 1 {
		t.Errorf("ListUsers() = %d users, total %d; want 1", len(users), meta.Total)
	}

	_, _, err = f.service.ListUsers(ctx, "missing", "", pagination.New(1, 20))
	expectKind(t, err, domain.KindNotFound, "Society not found")
}
