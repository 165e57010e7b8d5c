package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/mq"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

// Application lifecycle event types.
const (
	EventApplicationCreated   = "application.created"
	EventApplicationStatus    = "application.status_changed"
	EventApplicationFeedback  = "application.feedback_added"
	EventApplicationCancelled = "application.cancelled"
)

// ApplicationRepository defines persistence operations for applications.
type ApplicationRepository interface {
	Get(ctx context.Context, id uuid.UUID) (types.Application, error)
	List(ctx context.Context, filter store.ApplicationFilter) ([]types.Application, error)
	Create(ctx context.Context, app types.Application) (types.Application, error)
	UpdateApplicantInfo(ctx context.Context, app types.Application) (types.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status types.ApplicationStatus, at time.Time) (types.Application, error)
	UpsertFeedback(ctx context.Context, id uuid.UUID, feedback string, at time.Time) (types.Application, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Publisher sends lifecycle events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ApplicationService owns the application lifecycle.
type ApplicationService struct {
	repo     ApplicationRepository
	events   Publisher
	channel  string
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// ApplicationOption customizes an ApplicationService.
type ApplicationOption func(*ApplicationService)

// WithEvents publishes lifecycle events to channel.
func WithEvents(events Publisher, channel string) ApplicationOption {
	return func(s *ApplicationService) {
		s.events = events
		s.channel = channel
	}
}

// WithLocation sets the zone used to compute day boundaries.
func WithLocation(loc *time.Location) ApplicationOption {
	return func(s *ApplicationService) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithLogger(logger *zap.Logger) ApplicationOption {
	return func(s *ApplicationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewApplicationService(repo ApplicationRepository, opts ...ApplicationOption) *ApplicationService {
	s := &ApplicationService{
		repo:     repo,
		location: time.Local,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DayBounds returns local midnight and 23:59:59.999 of the day containing t.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}

// ParseDay parses a YYYY-MM-DD date in the service's zone.
func (s *ApplicationService) ParseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(raw), s.location)
	if err != nil {
		return time.Time{}, invalidInput("date must be YYYY-MM-DD")
	}
	return day, nil
}

// Create submits a new application. The status is always pending whatever
// the input carries, and the deadline is stored as a UTC instant.
func (s *ApplicationService) Create(ctx context.Context, app types.Application) (types.Application, error) {
	app.ApplicantEmail = types.NormalizeEmail(app.ApplicantEmail)
	if app.ApplicantEmail == "" {
		return types.Application{}, invalidInput("applicantEmail is required")
	}
	if app.ScholarshipID == uuid.Nil {
		return types.Application{}, invalidInput("scholarshipId is required")
	}

	now := s.now()
	app.ID = uuid.Nil
	app.Status = types.StatusPending
	app.Feedback = ""
	app.CreatedAt = now
	app.LastModifiedAt = now
	if !app.ApplicationDeadline.IsZero() {
		app.ApplicationDeadline = app.ApplicationDeadline.UTC()
	}

	created, err := s.repo.Create(ctx, app)
	if err != nil {
		return types.Application{}, fmt.Errorf("create application: %w", err)
	}
	s.publish(ctx, EventApplicationCreated, created, created.ApplicantEmail)
	return created, nil
}

func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID) (types.Application, error) {
	return s.repo.Get(ctx, id)
}

// List returns every application, or when day is non-zero only those created
// or due within that local day.
func (s *ApplicationService) List(ctx context.Context, day time.Time, sort store.ApplicationSort) ([]types.Application, error) {
	filter := store.ApplicationFilter{Sort: sort}
	if !day.IsZero() {
		filter.From, filter.To = DayBounds(day, s.location)
	}
	return s.repo.List(ctx, filter)
}

func (s *ApplicationService) ListByApplicant(ctx context.Context, email string) ([]types.Application, error) {
	email = types.NormalizeEmail(email)
	if email == "" {
		return nil, invalidInput("email is required")
	}
	return s.repo.List(ctx, store.ApplicationFilter{ApplicantEmail: email})
}

// UpdateApplicantInfo lets the owner amend their own fields. Status is not
// consulted or changed.
func (s *ApplicationService) UpdateApplicantInfo(ctx context.Context, id uuid.UUID, callerEmail string, info types.ApplicantInfo) (types.Application, error) {
	if info.Empty() {
		return types.Application{}, invalidInput("no fields to update")
	}
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	if app.ApplicantEmail != types.NormalizeEmail(callerEmail) {
		return types.Application{}, ErrNotOwner
	}

	info.Apply(&app)
	app.LastModifiedAt = s.now()
	return s.repo.UpdateApplicantInfo(ctx, app)
}

// Transition moves an application to status. Legality is decided solely by
// types.CanTransition.
func (s *ApplicationService) Transition(ctx context.Context, id uuid.UUID, rawStatus, actor string) (types.Application, error) {
	status, ok := types.ParseApplicationStatus(rawStatus)
	if !ok {
		return types.Application{}, invalidInput("unknown status")
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Application{}, err
	}
	if !types.CanTransition(current.Status, status) {
		return types.Application{}, fmt.Errorf("%w: %s to %s", types.ErrIllegalTransition, current.Status, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return types.Application{}, err
	}
	s.publish(ctx, EventApplicationStatus, updated, actor)
	return updated, nil
}

// AddFeedback attaches or overwrites feedback. An unknown id creates a
// partial pending record rather than failing, so the call is an idempotent
// create-or-update.
func (s *ApplicationService) AddFeedback(ctx context.Context, id uuid.UUID, feedback, actor string) (types.Application, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return types.Application{}, invalidInput("feedback is required")
	}
	updated, err := s.repo.UpsertFeedback(ctx, id, feedback, s.now())
	if err != nil {
		return types.Application{}, err
	}
	s.publish(ctx, EventApplicationFeedback, updated, actor)
	return updated, nil
}

// Cancel withdraws the caller's own application while it is still pending.
func (s *ApplicationService) Cancel(ctx context.Context, id uuid.UUID, callerEmail string) error {
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if app.ApplicantEmail != types.NormalizeEmail(callerEmail) {
		return ErrNotOwner
	}
	if app.Status != types.StatusPending {
		return fmt.Errorf("%w: cannot cancel a %s application", types.ErrIllegalTransition, app.Status)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventApplicationCancelled, app, callerEmail)
	return nil
}

func (s *ApplicationService) publish(ctx context.Context, eventType string, app types.Application, actor string) {
	if s.events == nil {
		return
	}
	event := types.ApplicationEvent{
		Type:          eventType,
		ApplicationID: app.ID,
		Applicant:     app.ApplicantEmail,
		Status:        app.Status,
		Actor:         actor,
		OccurredAt:    s.now().UTC(),
	}
	data, err := event.Encode()
	if err != nil {
		s.logger.Warn("encode application event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if _, err := s.events.Publish(ctx, s.channel, data, map[string]string{
		mq.AttrEventType:   eventType,
		mq.AttrOrderingKey: app.ID.String(),
	}); err != nil {
		s.logger.Warn("publish application event",
			zap.String("type", eventType),
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
	}
}
