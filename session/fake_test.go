package session

import (
	"context"
	"errors"

	"matchain-gc/models"
)

type fakeAuth struct {
	initial      *models.SessionMaterial
	refreshed    []*models.SessionMaterial
	err          error
	initialCalls int
	refreshCalls int
	gotCookies   [][]models.Cookie
}

func (f *fakeAuth) ObtainInitialSession(ctx context.Context) (*models.SessionMaterial, error) {
	f.initialCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.initial, nil
}

func (f *fakeAuth) RefreshSession(ctx context.Context, existing []models.Cookie) (*models.SessionMaterial, error) {
	f.refreshCalls++
	f.gotCookies = append(f.gotCookies, existing)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.refreshed) == 0 {
		return nil, errors.New("no material")
	}
	m := f.refreshed[0]
	f.refreshed = f.refreshed[1:]
	return m, nil
}

type memStore struct {
	saved []models.SessionMaterial
}

func (s *memStore) Save(m models.SessionMaterial) error {
	s.saved = append(s.saved, m)
	return nil
}

type refreshCounter struct{ ok, failed int }

func (r *refreshCounter) RecordTokenRefresh(ok bool) {
	if ok {
		r.ok++
	} else {
		r.failed++
	}
}

func material(csrf, token string) *models.SessionMaterial {
	return &models.SessionMaterial{
		Cookies:         []models.Cookie{{Name: "laravel_session", Value: csrf + "-cookie", Domain: "example.test"}},
		CSRFToken:       csrf,
		SubmissionToken: token,
	}
}
