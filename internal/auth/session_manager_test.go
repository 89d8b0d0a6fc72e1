package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(accessTTL, refreshTTL time.Duration) (*Manager, *memorySessionStore) {
	store := newMemorySessionStore()
	secrets := Secrets{Access: []byte("access-secret"), Refresh: []byte("refresh-secret")}
	return NewManager(secrets, accessTTL, refreshTTL, store), store
}

func TestManagerIssueAndRefresh(t *testing.T) {
	manager, store := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}

	userID, err := manager.VerifyAccess(tokens.AccessToken)
	if err != nil || userID != "user-1" {
		t.Fatalf("verify access: %q %v", userID, err)
	}

	refreshed, refreshedUser, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshedUser != "user-1" {
		t.Fatalf("unexpected user %q", refreshedUser)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}

	stored, _ := store.RefreshToken(context.Background(), "user-1")
	if stored != refreshed.RefreshToken {
		t.Fatal("expected rotated token to be the only active session")
	}

	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected replaced refresh token to be rejected, got %v", err)
	}
}

func TestManagerTokensAreNotInterchangeable(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := manager.VerifyAccess(tokens.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token to fail access verification, got %v", err)
	}
	if _, _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected access token to fail refresh, got %v", err)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	manager.WithNowFunc(func() time.Time { return now })

	if _, _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = now.Add(2 * time.Hour)

	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}
	if _, err := manager.VerifyAccess(tokens.AccessToken); err == nil {
		t.Fatal("expected expired access token to be rejected")
	}

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerRejectsForeignSignature(t *testing.T) {
	manager, _ := newTestManager(time.Minute, time.Hour)
	other := NewManager(Secrets{Access: []byte("other"), Refresh: []byte("other")}, time.Minute, time.Hour, newMemorySessionStore())

	tokens, err := other.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.VerifyAccess(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid signature, got %v", err)
	}
}
