package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"matchain-gc/models"
)

func TestNewManagerRejectsIncompleteMaterial(t *testing.T) {
	auth := &fakeAuth{}
	if _, err := NewManager(Options{Authenticator: auth}, models.SessionMaterial{SubmissionToken: "t"}); !errors.Is(err, ErrNoSession) {
		t.Errorf("missing csrf: got %v, want ErrNoSession", err)
	}
	if _, err := NewManager(Options{Authenticator: auth}, models.SessionMaterial{CSRFToken: "c"}); !errors.Is(err, ErrNoSubmissionToken) {
		t.Errorf("missing token: got %v, want ErrNoSubmissionToken", err)
	}
}

func TestRotateReplacesOnlyToken(t *testing.T) {
	m, err := NewManager(Options{Authenticator: &fakeAuth{}}, *material("csrf-1", "tok-1"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.Rotate("tok-2"); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	cur := m.Current()
	if cur.SubmissionToken != "tok-2" || m.CurrentToken() != "tok-2" {
		t.Errorf("token: got %q, want tok-2", cur.SubmissionToken)
	}
	if cur.CSRFToken != "csrf-1" || len(cur.Cookies) != 1 {
		t.Errorf("rotate must keep cookies and csrf, got %+v", cur)
	}
	if err := m.Rotate(""); !errors.Is(err, ErrNoSubmissionToken) {
		t.Errorf("Rotate(\"\") = %v; want ErrNoSubmissionToken", err)
	}
	if m.CurrentToken() != "tok-2" {
		t.Error("empty rotation must not clobber the held token")
	}
}

func TestCurrentReturnsCopy(t *testing.T) {
	m, _ := NewManager(Options{Authenticator: &fakeAuth{}}, *material("csrf", "tok"))
	cur := m.Current()
	cur.Cookies[0].Value = "tampered"
	if m.Current().Cookies[0].Value == "tampered" {
		t.Error("Current must not expose internal cookie slice")
	}
}

func TestRefreshSuccessReplacesMaterial(t *testing.T) {
	auth := &fakeAuth{refreshed: []*models.SessionMaterial{material("csrf-2", "tok-9")}}
	store := &memStore{}
	rec := &refreshCounter{}
	m, _ := NewManager(Options{Authenticator: auth, Store: store, Metrics: rec}, *material("csrf-1", "tok-1"))

	got, err := m.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.CSRFToken != "csrf-2" || got.SubmissionToken != "tok-9" {
		t.Errorf("refreshed material: got %+v", got)
	}
	if m.State() != StateAuthenticated {
		t.Errorf("state: got %v, want authenticated", m.State())
	}
	if len(auth.gotCookies) != 1 || auth.gotCookies[0][0].Value != "csrf-1-cookie" {
		t.Errorf("refresh should reuse held cookies, got %+v", auth.gotCookies)
	}
	if len(store.saved) != 1 || store.saved[0].CSRFToken != "csrf-2" {
		t.Errorf("refreshed session should be persisted once, got %+v", store.saved)
	}
	if rec.ok != 1 || rec.failed != 0 {
		t.Errorf("metrics: ok=%d failed=%d", rec.ok, rec.failed)
	}
}

func TestRefreshFailureInvalidates(t *testing.T) {
	auth := &fakeAuth{err: errors.New("operator aborted")}
	rec := &refreshCounter{}
	m, _ := NewManager(Options{Authenticator: auth, Metrics: rec}, *material("csrf-1", "tok-1"))

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Refresh error = %v; want ErrRefreshFailed", err)
	}
	if m.State() != StateInvalidated || !m.Invalidated() {
		t.Errorf("state: got %v, want invalidated", m.State())
	}
	if m.CurrentToken() != "tok-1" {
		t.Errorf("failed refresh must keep old material, got %q", m.CurrentToken())
	}
	if rec.failed != 1 {
		t.Errorf("metrics failed: got %d, want 1", rec.failed)
	}
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	auth := &fakeAuth{refreshed: []*models.SessionMaterial{material("csrf-2", "")}}
	m, _ := NewManager(Options{Authenticator: auth}, *material("csrf-1", "tok-1"))

	_, err := m.Refresh(context.Background())
	if !errors.Is(err, ErrRefreshFailed) || !errors.Is(err, ErrNoSubmissionToken) {
		t.Errorf("Refresh error = %v; want ErrRefreshFailed wrapping ErrNoSubmissionToken", err)
	}
}

func TestBootstrapFullLoginWithoutCache(t *testing.T) {
	auth := &fakeAuth{initial: material("csrf", "tok")}
	got, err := Bootstrap(context.Background(), auth, nil, nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if auth.initialCalls != 1 || auth.refreshCalls != 0 {
		t.Errorf("calls: initial=%d refresh=%d", auth.initialCalls, auth.refreshCalls)
	}
	if got.SubmissionToken != "tok" {
		t.Errorf("token: got %q", got.SubmissionToken)
	}
}

func TestBootstrapRefreshesFromCache(t *testing.T) {
	cache := &FileCache{Path: filepath.Join(t.TempDir(), "session.json")}
	if err := cache.Save(*material("old", "ignored")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	auth := &fakeAuth{refreshed: []*models.SessionMaterial{material("new", "tok-new")}}

	got, err := Bootstrap(context.Background(), auth, cache, nil)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if auth.refreshCalls != 1 || auth.initialCalls != 0 {
		t.Errorf("calls: initial=%d refresh=%d", auth.initialCalls, auth.refreshCalls)
	}
	if auth.gotCookies[0][0].Value != "old-cookie" {
		t.Errorf("refresh should receive cached cookies, got %+v", auth.gotCookies[0])
	}
	if got.CSRFToken != "new" {
		t.Errorf("csrf: got %q, want new", got.CSRFToken)
	}
	cached, _ := cache.Load()
	if cached == nil || cached.CSRFToken != "new" {
		t.Errorf("cache should be rewritten, got %+v", cached)
	}
}

func TestBootstrapNoSession(t *testing.T) {
	auth := &fakeAuth{err: errors.New("login failed")}
	if _, err := Bootstrap(context.Background(), auth, nil, nil); !errors.Is(err, ErrNoSession) {
		t.Errorf("Bootstrap error = %v; want ErrNoSession", err)
	}

	auth = &fakeAuth{initial: material("csrf", "")}
	if _, err := Bootstrap(context.Background(), auth, nil, nil); !errors.Is(err, ErrNoSubmissionToken) {
		t.Errorf("Bootstrap error = %v; want ErrNoSubmissionToken", err)
	}
}
