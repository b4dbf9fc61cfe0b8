package domain

import "time"

// Role is a user's account role or an officer role inside a society.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RolePresident   Role = "PRESIDENT"
	RoleSecretary   Role = "SECRETARY"
	RoleTreasurer   Role = "TREASURER"
	RoleMeterReader Role = "METER_READER"
)

// Roles lists every valid role.
var Roles = []Role{RoleSuperAdmin, RolePresident, RoleSecretary, RoleTreasurer, RoleMeterReader}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsOfficer reports whether r can be granted through a society assignment.
func (r Role) IsOfficer() bool {
	return r == RolePresident || r == RoleSecretary
}

func (r Role) String() string {
	return string(r)
}

// Language is a user's preferred UI language.
type Language string

const (
	LanguageEnglish Language = "EN"
	LanguageSinhala Language = "SI"
	LanguageTamil   Language = "TA"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageSinhala, LanguageTamil:
		return true
	}
	return false
}

// EffectiveContext is the role and society a user acts with for authorization.
// SocietyID is nil when the user is not bound to any society.
type EffectiveContext struct {
	Role      Role
	SocietyID *string
}

// RequestMeta is client metadata recorded with each refresh token.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Event is a security or audit fact published to the event stream.
type Event struct {
	Name       string         `json:"name"`
	OccurredAt time.Time      `json:"occurredAt"`
	ActorID    *string        `json:"actorId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	SocietyID  string         `json:"societyId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Event names published on the security/audit stream.
const (
	EventRefreshTokenReused  = "auth.refresh_token_reused"
	EventAllSessionsRevoked  = "auth.sessions_revoked"
	EventRefreshTokensPruned = "auth.refresh_tokens_pruned"
	EventOfficerAssigned     = "society.officer_assigned"
	EventOfficerDeactivated  = "society.officer_deactivated"
)
