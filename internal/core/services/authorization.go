package services

import (
	"context"
	"fmt"
	"log/slog"

	"aquora-api/internal/adapters/persistence/models"
	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/core/domain"
)

// AuthorizationResolver computes the role and society a user acts with.
// An active officer assignment overrides the user's static role and society.
type AuthorizationResolver struct {
	assignments repositories.AssignmentRepository
	logger      *slog.Logger
}

// NewAuthorizationResolver creates a new resolver
func NewAuthorizationResolver(assignments repositories.AssignmentRepository, logger *slog.Logger) *AuthorizationResolver {
	return &AuthorizationResolver{assignments: assignments, logger: logger}
}

// ResolveEffectiveContext returns the latest active assignment's role and
// society, or the user's own role and society when there is none.
func (r *AuthorizationResolver) ResolveEffectiveContext(ctx context.Context, user *models.User) (domain.EffectiveContext, error) {
	active, err := r.assignments.ListActiveByUserID(ctx, user.ID)
	if err != nil {
		return domain.EffectiveContext{}, fmt.Errorf("load active assignments: %w", err)
	}

	if len(active) == 0 {
		return domain.EffectiveContext{
			Role:      domain.Role(user.Role),
			SocietyID: user.SocietyID,
		}, nil
	}

	if len(active) > 1 {
		r.logger.WarnContext(ctx, "user holds more than one active officer assignment",
			"user_id", user.ID,
			"active_assignments", len(active),
			"using_assignment_id", active[0].ID,
		)
	}

	latest := active[0]
	societyID := latest.SocietyID
	return domain.EffectiveContext{
		Role:      domain.Role(latest.Role),
		SocietyID: &societyID,
	}, nil
}

// EnsureTenantAccess allows super admins everywhere and everyone else only
// inside their own effective society.
func EnsureTenantAccess(role domain.Role, effectiveSocietyID *string, requestedSocietyID string) error {
	if role == domain.RoleSuperAdmin {
		return nil
	}
	if effectiveSocietyID == nil || *effectiveSocietyID != requestedSocietyID {
		return domain.NewForbidden("You do not have access to this society")
	}
	return nil
}
