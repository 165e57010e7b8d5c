package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]types.User
	writes int
}

func newMemUsers(users ...types.User) *memUsers {
	m := &memUsers{users: map[uuid.UUID]types.User{}}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context, role types.Role) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) CreateIfAbsent(ctx context.Context, user types.User) (types.User, bool, error) {
	if existing, err := m.GetByEmail(ctx, user.Email); err == nil {
		return existing, false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, true, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id uuid.UUID, role types.Role) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsers) byEmail(email string) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return types.User{}
}

func (m *memUsers) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type memApplications struct {
	mu     sync.Mutex
	apps   map[uuid.UUID]types.Application
	writes int
}

func newMemApplications() *memApplications {
	return &memApplications{apps: map[uuid.UUID]types.Application{}}
}

func (m *memApplications) put(app types.Application) types.Application {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	m.apps[app.ID] = app
	return app
}

func (m *memApplications) Get(_ context.Context, id uuid.UUID) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	return app, nil
}

func (m *memApplications) List(_ context.Context, filter store.ApplicationFilter) ([]types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Application
	for _, app := range m.apps {
		if filter.ApplicantEmail != "" && app.ApplicantEmail != filter.ApplicantEmail {
			continue
		}
		out = append(out, app)
	}
	return out, nil
}

func (m *memApplications) Create(_ context.Context, app types.Application) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	app.ID = uuid.New()
	m.apps[app.ID] = app
	return app, nil
}

func (m *memApplications) UpdateApplicantInfo(_ context.Context, app types.Application) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.apps[app.ID]; !ok {
		return types.Application{}, store.ErrNotFound
	}
	m.apps[app.ID] = app
	return app, nil
}

func (m *memApplications) UpdateStatus(_ context.Context, id uuid.UUID, status types.ApplicationStatus, at time.Time) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	app, ok := m.apps[id]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	app.Status = status
	app.LastModifiedAt = at
	m.apps[id] = app
	return app, nil
}

func (m *memApplications) UpsertFeedback(_ context.Context, id uuid.UUID, feedback string, at time.Time) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	app, ok := m.apps[id]
	if !ok {
		app = types.Application{ID: id, Status: types.StatusPending, CreatedAt: at}
	}
	if app.Feedback != feedback {
		app.LastModifiedAt = at
	}
	app.Feedback = feedback
	m.apps[id] = app
	return app, nil
}

func (m *memApplications) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.apps[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.apps, id)
	return nil
}

func (m *memApplications) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type memScholarships struct {
	mu     sync.Mutex
	items  map[uuid.UUID]types.Scholarship
	writes int
}

func newMemScholarships() *memScholarships {
	return &memScholarships{items: map[uuid.UUID]types.Scholarship{}}
}

func (m *memScholarships) put(s types.Scholarship) types.Scholarship {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.items[s.ID] = s
	return s
}

func (m *memScholarships) List(context.Context, string, int, int) ([]types.Scholarship, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Scholarship, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (m *memScholarships) Top(ctx context.Context, limit int) ([]types.Scholarship, error) {
	items, _, err := m.List(ctx, "", 0, limit)
	return items, err
}

func (m *memScholarships) Get(_ context.Context, id uuid.UUID) (types.Scholarship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[id]
	if !ok {
		return types.Scholarship{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memScholarships) Create(_ context.Context, s types.Scholarship) (types.Scholarship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	s.ID = uuid.New()
	m.items[s.ID] = s
	return s, nil
}

func (m *memScholarships) Update(_ context.Context, s types.Scholarship) (types.Scholarship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.items[s.ID]; !ok {
		return types.Scholarship{}, store.ErrNotFound
	}
	m.items[s.ID] = s
	return s, nil
}

func (m *memScholarships) UpdateImage(_ context.Context, id uuid.UUID, imageURL string) (types.Scholarship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	s, ok := m.items[id]
	if !ok {
		return types.Scholarship{}, store.ErrNotFound
	}
	s.UniversityImage = imageURL
	m.items[id] = s
	return s, nil
}

func (m *memScholarships) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if _, ok := m.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memScholarships) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type memReviews struct {
	mu      sync.Mutex
	reviews map[uuid.UUID]types.Review
}

func newMemReviews() *memReviews {
	return &memReviews{reviews: map[uuid.UUID]types.Review{}}
}

func (m *memReviews) List(_ context.Context, filter store.ReviewFilter) ([]types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Review
	for _, r := range m.reviews {
		if filter.ScholarshipID != uuid.Nil && r.ScholarshipID != filter.ScholarshipID {
			continue
		}
		if filter.ReviewerEmail != "" && r.ReviewerEmail != filter.ReviewerEmail {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memReviews) Ratings(_ context.Context, scholarshipID uuid.UUID) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, r := range m.reviews {
		if r.ScholarshipID == scholarshipID {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

func (m *memReviews) Get(_ context.Context, id uuid.UUID) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return types.Review{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memReviews) Create(_ context.Context, review types.Review) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.ID = uuid.New()
	m.reviews[review.ID] = review
	return review, nil
}

func (m *memReviews) Update(_ context.Context, review types.Review) (types.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[review.ID]; !ok {
		return types.Review{}, store.ErrNotFound
	}
	m.reviews[review.ID] = review
	return review, nil
}

func (m *memReviews) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

type recordingProvider struct {
	mu      sync.Mutex
	amounts []int64
}

func (p *recordingProvider) CreateIntent(_ context.Context, amountMinor int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.amounts = append(p.amounts, amountMinor)
	return "pi_123_secret_abc", nil
}
