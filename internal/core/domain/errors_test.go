package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestError_StatusAndSentinel(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		target error
	}{
		{NewValidation("bad", nil), http.StatusBadRequest, ErrValidation},
		{NewConflict("dup"), http.StatusConflict, ErrConflict},
		{NewUnauthorized("who"), http.StatusUnauthorized, ErrUnauthorized},
		{NewForbidden("no"), http.StatusForbidden, ErrForbidden},
		{NewNotFound("gone"), http.StatusNotFound, ErrNotFound},
		{NewInternal("boom", errors.New("db down")), http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		if got := tt.err.Status(); got != tt.status {
			t.Errorf("%s: Status() = %d, want %d", tt.err.Message, got, tt.status)
		}
		if !errors.Is(tt.err, tt.target) {
			t.Errorf("%s: errors.Is(%v) = false", tt.err.Message, tt.target)
		}
		if errors.Is(tt.err, ErrNotFound) && tt.target != ErrNotFound {
			t.Errorf("%s: should not match ErrNotFound", tt.err.Message)
		}
	}
}

func TestError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("assign: %w", NewInternal("Failed to assign officer", cause))

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable")
	}
	de, ok := AsError(err)
	if !ok {
		t.Fatal("AsError() should find the domain error")
	}
	if de.Code != CodeInternal {
		t.Errorf("Code = %q, want %q", de.Code, CodeInternal)
	}
	if de.Error() != "Failed to assign officer: connection refused" {
		t.Errorf("Error() = %q", de.Error())
	}
}

func TestRole_Valid(t *testing.T) {
	for _, r := range Roles {
		if !r.Valid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if Role("ADMIN").Valid() {
		t.Error("ADMIN should not be valid")
	}
	if RoleSuperAdmin.IsOfficer() {
		t.Error("SUPER_ADMIN is not a society officer")
	}
	if !RolePresident.IsOfficer() || !RoleSecretary.IsOfficer() {
		t.Error("PRESIDENT and SECRETARY are assignable offices")
	}
	if RoleMeterReader.IsOfficer() {
		t.Error("METER_READER is not assignable")
	}
}
