package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
)

type memApplications struct {
	mu   sync.Mutex
	apps map[uuid.UUID]types.Application
}

func newMemApplications() *memApplications {
	return &memApplications{apps: map[uuid.UUID]types.Application{}}
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
	within := func(t time.Time) bool {
		return !t.IsZero() && !t.Before(filter.From) && !t.After(filter.To)
	}
	var out []types.Application
	for _, app := range m.apps {
		if filter.ApplicantEmail != "" && app.ApplicantEmail != filter.ApplicantEmail {
			continue
		}
		if !filter.From.IsZero() && !within(app.CreatedAt) && !within(app.ApplicationDeadline) {
			continue
		}
		out = append(out, app)
	}
	return out, nil
}

func (m *memApplications) Create(_ context.Context, app types.Application) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.ID = uuid.New()
	m.apps[app.ID] = app
	return app, nil
}

func (m *memApplications) UpdateApplicantInfo(_ context.Context, app types.Application) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.apps[app.ID]
	if !ok {
		return types.Application{}, store.ErrNotFound
	}
	current.ApplicantName = app.ApplicantName
	current.Phone = app.Phone
	current.Address = app.Address
	current.Gender = app.Gender
	current.Degree = app.Degree
	current.SSCResult = app.SSCResult
	current.HSCResult = app.HSCResult
	current.StudyGap = app.StudyGap
	current.LastModifiedAt = app.LastModifiedAt
	m.apps[app.ID] = current
	return current, nil
}

func (m *memApplications) UpdateStatus(_ context.Context, id uuid.UUID, status types.ApplicationStatus, at time.Time) (types.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	app, ok := m.apps[id]
	if !ok {
		app = types.Application{ID: id, Status: types.StatusPending, CreatedAt: at, LastModifiedAt: at}
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
	if _, ok := m.apps[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.apps, id)
	return nil
}

type publishedEvent struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type recordingPublisher struct {
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	p.events = append(p.events, publishedEvent{channel: channel, data: data, attrs: attrs})
	return "msg-1", p.err
}

type recordingProvider struct {
	amounts []int64
	secret  string
	err     error
}

func (p *recordingProvider) CreateIntent(_ context.Context, amountMinor int64) (string, error) {
	p.amounts = append(p.amounts, amountMinor)
	return p.secret, p.err
}

type memReviews struct {
	reviews map[uuid.UUID]types.Review
}

func newMemReviews(reviews ...types.Review) *memReviews {
	m := &memReviews{reviews: map[uuid.UUID]types.Review{}}
	for _, r := range reviews {
		m.reviews[r.ID] = r
	}
	return m
}

func (m *memReviews) List(_ context.Context, filter store.ReviewFilter) ([]types.Review, error) {
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
	var out []int
	for _, r := range m.reviews {
		if r.ScholarshipID == scholarshipID {
			out = append(out, r.Rating)
		}
	}
	return out, nil
}

func (m *memReviews) Get(_ context.Context, id uuid.UUID) (types.Review, error) {
	r, ok := m.reviews[id]
	if !ok {
		return types.Review{}, store.ErrNotFound
	}
	return r, nil
}

func (m *memReviews) Create(_ context.Context, review types.Review) (types.Review, error) {
	review.ID = uuid.New()
	m.reviews[review.ID] = review
	return review, nil
}

func (m *memReviews) Update(_ context.Context, review types.Review) (types.Review, error) {
	if _, ok := m.reviews[review.ID]; !ok {
		return types.Review{}, store.ErrNotFound
	}
	m.reviews[review.ID] = review
	return review, nil
}

func (m *memReviews) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

type memUsers struct {
	users map[uuid.UUID]types.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context, role types.Role) ([]types.User, error) {
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
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, true, nil
}

func (m *memUsers) UpdateRole(_ context.Context, id uuid.UUID, role types.Role) (types.User, error) {
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return u, nil
}

func (m *memUsers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}
