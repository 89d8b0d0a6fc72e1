package validation

import (
	"testing"

	"github.com/videotube/backend/internal/apperr"
)

type registerPayload struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestStructCollectsFieldMessages(t *testing.T) {
	err := Struct(registerPayload{FullName: "   ", Email: "not-an-email", Username: "al", Password: "longenough"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr := apperr.As(err)
	if appErr.Kind != apperr.KindValidation || appErr.Message != InvalidRequest {
		t.Fatalf("unexpected error %+v", appErr)
	}

	want := []string{
		"fullName is required",
		"email must be a valid email address",
		"username must be at least 3 characters",
	}
	if len(appErr.Details) != len(want) {
		t.Fatalf("expected %d details got %v", len(want), appErr.Details)
	}
	for i := range want {
		if appErr.Details[i] != want[i] {
			t.Fatalf("detail %d: expected %q got %q", i, want[i], appErr.Details[i])
		}
	}
}

func TestStructAcceptsValidPayload(t *testing.T) {
	err := Struct(registerPayload{FullName: "Alice", Email: "alice@example.com", Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"6f1c2a4e-9b1d-4a55-8f0e-2c3b4d5e6f70", true},
		{"", false},
		{"not-a-uuid", false},
	}
	for _, tt := range tests {
		err := ID("videoId", tt.value)
		if (err == nil) != tt.ok {
			t.Fatalf("ID(%q) = %v", tt.value, err)
		}
		if err != nil && !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("expected validation kind for %q", tt.value)
		}
	}
}
