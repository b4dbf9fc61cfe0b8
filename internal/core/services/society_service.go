package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/core/domain"
	"aquora-api/internal/pkg/pagination"

	"gorm.io/gorm"
)

// SocietyService manages societies and their elected officers
type SocietyService struct {
	store  *repositories.Store
	events EventPublisher
	logger *slog.Logger
	now    Clock
}

// NewSocietyService creates a new society service
func NewSocietyService(store *repositories.Store, events EventPublisher, logger *slog.Logger) *SocietyService {
	return &SocietyService{
		store:  store,
		events: events,
		logger: logger,
		now:    systemClock,
	}
}

// WithClock replaces the service clock
func (s *SocietyService) WithClock(now Clock) *SocietyService {
	s.now = now
	return s
}

// CreateSocietyInput represents society creation input
type CreateSocietyInput struct {
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Address           *string         `json:"address" validate:"omitempty,min=1,max=500"`
	WaterBoardRegNo   string          `json:"waterBoardRegNo" validate:"required,min=1,max=100"`
	BillingSchemeJSON json.RawMessage `json:"billingSchemeJson"`
	BillingDayOfMonth *int            `json:"billingDayOfMonth" validate:"omitempty,min=1,max=31"`
	DueDays           *int            `json:"dueDays" validate:"omitempty,min=0"`
}

// UpdateSocietyInput is a partial update; at least one field must be set
type UpdateSocietyInput struct {
	Name              *string         `json:"name" validate:"omitempty,min=1,max=200"`
	Address           *string         `json:"address" validate:"omitempty,min=1,max=500"`
	WaterBoardRegNo   *string         `json:"waterBoardRegNo" validate:"omitempty,min=1,max=100"`
	BillingSchemeJSON json.RawMessage `json:"billingSchemeJson"`
	BillingDayOfMonth *int            `json:"billingDayOfMonth" validate:"omitempty,min=1,max=31"`
	DueDays           *int            `json:"dueDays" validate:"omitempty,min=0"`
	IsActive          *bool           `json:"isActive"`
}

// AssignOfficerInput represents officer assignment input
type AssignOfficerInput struct {
	UserID string `json:"userId" validate:"required,min=1"`
	Role   string `json:"role" validate:"required,oneof=PRESIDENT SECRETARY"`
}

// SocietyView is the society projection returned to clients
type SocietyView struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Address           *string         `json:"address"`
	WaterBoardRegNo   string          `json:"waterBoardRegNo"`
	IsActive          bool            `json:"isActive"`
	BillingSchemeJSON json.RawMessage `json:"billingSchemeJson"`
	BillingDayOfMonth *int            `json:"billingDayOfMonth"`
	DueDays           *int            `json:"dueDays"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// SocietyDetail is a society with its active officers
type SocietyDetail struct {
	SocietyView
	Officers []*OfficerView `json:"officers"`
}

// OfficerUser is the user summary shown on an assignment
type OfficerUser struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	MobileNumber string `json:"mobileNumber"`
	Role         string `json:"role"`
}

// OfficerView is one society role assignment
type OfficerView struct {
	ID           string       `json:"id"`
	SocietyID    string       `json:"societyId"`
	UserID       string       `json:"userId"`
	Role         string       `json:"role"`
	IsActive     bool         `json:"isActive"`
	AssignedAt   time.Time    `json:"assignedAt"`
	UnassignedAt *time.Time   `json:"unassignedAt"`
	User         *OfficerUser `json:"user,omitempty"`
}

// OfficersView lists active officers and the full assignment history
type OfficersView struct {
	Officers []*OfficerView `json:"officers"`
	History  []*OfficerView `json:"history"`
}

// AssignOfficerResult is returned by AssignOfficer
type AssignOfficerResult struct {
	Assignment *OfficerView   `json:"assignment"`
	Officers   []*OfficerView `json:"officers"`
}

// CreateSociety creates a society
func (s *SocietyService) CreateSociety(ctx context.Context, input *CreateSocietyInput, actorID string) (*SocietyView, error) {
	society := &models.Society{
		Name:              input.Name,
		Address:           input.Address,
		WaterBoardRegNo:   input.WaterBoardRegNo,
		IsActive:          true,
		BillingSchemeJSON: normalizeScheme(input.BillingSchemeJSON),
		BillingDayOfMonth: input.BillingDayOfMonth,
		DueDays:           input.DueDays,
		CreatedBy:         &actorID,
		UpdatedBy:         &actorID,
	}
	if err := s.store.Societies.Create(ctx, society); err != nil {
		return nil, domain.NewInternal("create society", err)
	}

	s.logger.InfoContext(ctx, "society created", "society_id", society.ID, "actor_id", actorID)
	return toSocietyView(society), nil
}

// ListSocieties lists societies newest first
func (s *SocietyService) ListSocieties(ctx context.Context, params pagination.Params) ([]*SocietyView, pagination.Meta, error) {
	societies, total, err := s.store.Societies.List(ctx, params.Offset, params.Limit)
	if err != nil {
		return nil, pagination.Meta{}, domain.NewInternal("list societies", err)
	}

	views := make([]*SocietyView, 0, len(societies))
	for _, society := range societies {
		views = append(views, toSocietyView(society))
	}
	return views, pagination.MetaFor(params, total), nil
}

// GetSocietyDetail returns a society with its active officers
func (s *SocietyService) GetSocietyDetail(ctx context.Context, societyID string) (*SocietyDetail, error) {
	society, err := s.getSociety(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.Assignments.ListActiveBySociety(ctx, societyID)
	if err != nil {
		return nil, domain.NewInternal("list officers", err)
	}

	return &SocietyDetail{
		SocietyView: *toSocietyView(society),
		Officers:    toOfficerViews(active),
	}, nil
}

// UpdateSociety applies a partial update
func (s *SocietyService) UpdateSociety(ctx context.Context, societyID string, input *UpdateSocietyInput, actorID string) (*SocietyView, error) {
	fields := map[string]interface{}{}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.Address != nil {
		fields["address"] = *input.Address
	}
	if input.WaterBoardRegNo != nil {
		fields["water_board_reg_no"] = *input.WaterBoardRegNo
	}
	if input.BillingSchemeJSON != nil {
		// an explicit null would wipe the scheme; send {} to reset it
		if bytes.Equal(bytes.TrimSpace(input.BillingSchemeJSON), []byte("null")) {
			return nil, domain.NewValidation("Invalid request body", map[string]string{"billingSchemeJson": "required"})
		}
		fields["billing_scheme_json"] = normalizeScheme(input.BillingSchemeJSON)
	}
	if input.BillingDayOfMonth != nil {
		fields["billing_day_of_month"] = *input.BillingDayOfMonth
	}
	if input.DueDays != nil {
		fields["due_days"] = *input.DueDays
	}
	if input.IsActive != nil {
		fields["is_active"] = *input.IsActive
	}
	if len(fields) == 0 {
		return nil, domain.NewValidation("At least one field is required", nil)
	}
	fields["updated_by"] = actorID

	if _, err := s.getSociety(ctx, s.store, societyID); err != nil {
		return nil, err
	}
	if err := s.store.Societies.Update(ctx, societyID, fields); err != nil {
		return nil, domain.NewInternal("update society", err)
	}

	society, err := s.getSociety(ctx, s.store, societyID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "society updated", "society_id", societyID, "actor_id", actorID)
	return toSocietyView(society), nil
}

// ListOfficers returns the active officers and the assignment history
func (s *SocietyService) ListOfficers(ctx context.Context, societyID string) (*OfficersView, error) {
	if _, err := s.getSociety(ctx, s.store, societyID); err != nil {
		return nil, err
	}

	history, err := s.store.Assignments.ListBySociety(ctx, societyID)
	if err != nil {
		return nil, domain.NewInternal("list assignment history", err)
	}

	views := toOfficerViews(history)
	active := make([]*OfficerView, 0, len(views))
	for _, v := range views {
		if v.IsActive {
			active = append(active, v)
		}
	}

	return &OfficersView{Officers: active, History: views}, nil
}

// AssignOfficer elects a user into a society role. Any current holder of the
// role, and any other office the user holds, is ended in the same
// transaction; exactly one active holder must remain afterwards.
func (s *SocietyService) AssignOfficer(ctx context.Context, societyID string, input *AssignOfficerInput, actorID string) (*AssignOfficerResult, error) {
	if !domain.Role(input.Role).IsOfficer() {
		return nil, domain.NewValidation("Invalid request body", map[string]string{"role": "oneof=PRESIDENT SECRETARY"})
	}

	var created *models.SocietyRoleAssignment

	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		society, err := s.getSociety(ctx, tx, societyID)
		if err != nil {
			return err
		}
		if !society.IsActive {
			return domain.NewValidation("Society is inactive", nil)
		}

		user, err := tx.Users.GetByID(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NewNotFound(msgUserNotFound)
			}
			return err
		}
		if user.SocietyID != nil && *user.SocietyID != societyID {
			return domain.NewValidation("User belongs to a different society", nil)
		}
		if user.SocietyID == nil {
			if err := tx.Users.BindSociety(ctx, user.ID, societyID, &actorID); err != nil {
				return err
			}
		}

		now := s.now()
		if _, err := tx.Assignments.DeactivateActive(ctx, societyID, input.Role, now); err != nil {
			return err
		}
		if _, err := tx.Assignments.DeactivateActiveByUserID(ctx, user.ID, now); err != nil {
			return err
		}

		assignment := &models.SocietyRoleAssignment{
			SocietyID:  societyID,
			UserID:     user.ID,
			Role:       input.Role,
			IsActive:   true,
			AssignedAt: now,
			CreatedBy:  &actorID,
		}
		if err := tx.Assignments.Create(ctx, assignment); err != nil {
			return err
		}

		count, err := tx.Assignments.CountActive(ctx, societyID, input.Role)
		if err != nil {
			return err
		}
		if count != 1 {
			return domain.NewInternal("officer assignment integrity check failed",
				fmt.Errorf("%d active %s assignments in society %s", count, input.Role, societyID))
		}

		assignment.User = user
		created = assignment
		return nil
	})
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return nil, err
		}
		return nil, domain.NewInternal("assign officer", err)
	}

	active, err := s.store.Assignments.ListActiveBySociety(ctx, societyID)
	if err != nil {
		return nil, domain.NewInternal("list officers", err)
	}

	s.logger.InfoContext(ctx, "officer assigned",
		"society_id", societyID,
		"user_id", created.UserID,
		"role", created.Role,
		"assignment_id", created.ID,
	)
	s.publish(ctx, domain.Event{
		Name:      domain.EventOfficerAssigned,
		ActorID:   &actorID,
		UserID:    created.UserID,
		SocietyID: societyID,
		Data:      map[string]any{"assignmentId": created.ID, "role": created.Role},
	})

	return &AssignOfficerResult{
		Assignment: toOfficerView(created),
		Officers:   toOfficerViews(active),
	}, nil
}

// DeactivateOfficer ends an assignment of the society
func (s *SocietyService) DeactivateOfficer(ctx context.Context, societyID, assignmentID, actorID string) ([]*OfficerView, error) {
	assignment, err := s.store.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound("Assignment not found")
		}
		return nil, domain.NewInternal("load assignment", err)
	}
	if assignment.SocietyID != societyID {
		return nil, domain.NewNotFound("Assignment not found")
	}

	if err := s.store.Assignments.Deactivate(ctx, assignmentID, s.now()); err != nil {
		return nil, domain.NewInternal("deactivate assignment", err)
	}

	active, err := s.store.Assignments.ListActiveBySociety(ctx, societyID)
	if err != nil {
		return nil, domain.NewInternal("list officers", err)
	}

	s.logger.InfoContext(ctx, "officer deactivated", "society_id", societyID, "assignment_id", assignmentID)
	s.publish(ctx, domain.Event{
		Name:      domain.EventOfficerDeactivated,
		ActorID:   &actorID,
		UserID:    assignment.UserID,
		SocietyID: societyID,
		Data:      map[string]any{"assignmentId": assignmentID, "role": assignment.Role},
	})

	return toOfficerViews(active), nil
}

// ListUsers lists users bound to a society, optionally filtered by role
func (s *SocietyService) ListUsers(ctx context.Context, societyID, role string, params pagination.Params) ([]*models.PublicUser, pagination.Meta, error) {
	if _, err := s.getSociety(ctx, s.store, societyID); err != nil {
		return nil, pagination.Meta{}, err
	}

	users, total, err := s.store.Users.ListBySociety(ctx, societyID, role, params.Offset, params.Limit)
	if err != nil {
		return nil, pagination.Meta{}, domain.NewInternal("list society users", err)
	}

	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToPublic())
	}
	return out, pagination.MetaFor(params, total), nil
}

func (s *SocietyService) getSociety(ctx context.Context, store *repositories.Store, societyID string) (*models.Society, error) {
	society, err := store.Societies.GetByID(ctx, societyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFound("Society not found")
		}
		return nil, domain.NewInternal("load society", err)
	}
	return society, nil
}

func (s *SocietyService) publish(ctx context.Context, event domain.Event) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event", "event", event.Name, "error", err)
	}
}

// normalizeScheme stores a missing or null billing scheme as an empty object
func normalizeScheme(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}"
	}
	return string(trimmed)
}

func toSocietyView(s *models.Society) *SocietyView {
	return &SocietyView{
		ID:                s.ID,
		Name:              s.Name,
		Address:           s.Address,
		WaterBoardRegNo:   s.WaterBoardRegNo,
		IsActive:          s.IsActive,
		BillingSchemeJSON: json.RawMessage(s.BillingSchemeJSON),
		BillingDayOfMonth: s.BillingDayOfMonth,
		DueDays:           s.DueDays,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toOfficerView(a *models.SocietyRoleAssignment) *OfficerView {
	view := &OfficerView{
		ID:           a.ID,
		SocietyID:    a.SocietyID,
		UserID:       a.UserID,
		Role:         a.Role,
		IsActive:     a.IsActive,
		AssignedAt:   a.AssignedAt,
		UnassignedAt: a.UnassignedAt,
	}
	if a.User != nil {
		view.User = &OfficerUser{
			ID:           a.User.ID,
			FullName:     a.User.FullName,
			MobileNumber: a.User.MobileNumber,
			Role:         a.User.Role,
		}
	}
	return view
}

func toOfficerViews(assignments []*models.SocietyRoleAssignment) []*OfficerView {
	views := make([]*OfficerView, 0, len(assignments))
	for _, a := range assignments {
		views = append(views, toOfficerView(a))
	}
	return views
}
