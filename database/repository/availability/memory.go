package availabilityRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"tutorbook/database/repository"
	"tutorbook/models"

	"github.com/google/uuid"
)

type memoryAvailabilityRepo struct {
	mu        sync.Mutex
	templates map[string]*models.AvailabilityTemplate
	blocked   map[string]models.BlockedDate
}

// NewMemoryAvailabilityRepo keeps everything in process memory.
func NewMemoryAvailabilityRepo() AvailabilityRepository {
	return &memoryAvailabilityRepo{
		templates: make(map[string]*models.AvailabilityTemplate),
		blocked:   make(map[string]models.BlockedDate),
	}
}

func (r *memoryAvailabilityRepo) GetTemplate(_ context.Context, tutorID string) (*models.AvailabilityTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[tutorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return tpl.Clone(), nil
}

func (r *memoryAvailabilityRepo) GetOrCreateTemplate(_ context.Context, tutorID string) (*models.AvailabilityTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[tutorID]
	if !ok {
		tpl = models.NewAvailabilityTemplate(uuid.NewString(), tutorID, time.Now().UTC())
		r.templates[tutorID] = tpl
	}
	return tpl.Clone(), nil
}

func (r *memoryAvailabilityRepo) ReplaceSchedule(_ context.Context, tutorID string, kind models.SessionKind, schedule models.WeeklySchedule, expectedVersion int) (*models.AvailabilityTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[tutorID]
	if !ok || tpl.Version != expectedVersion {
		return nil, repository.ErrVersionConflict
	}
	if kind == models.SessionGroup {
		tpl.GroupSchedule = schedule.Clone()
	} else {
		tpl.PrivateSchedule = schedule.Clone()
	}
	tpl.Version++
	tpl.UpdatedAt = time.Now().UTC()
	return tpl.Clone(), nil
}

func (r *memoryAvailabilityRepo) UpdateSettings(_ context.Context, tutorID string, u models.AvailabilitySettingsUpdate) (*models.AvailabilityTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[tutorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Timezone != nil {
		tpl.Timezone = *u.Timezone
	}
	if u.SessionDurationMinutes != nil {
		tpl.SessionDurationMinutes = *u.SessionDurationMinutes
	}
	if u.BufferMinutes != nil {
		tpl.BufferMinutes = *u.BufferMinutes
	}
	if u.AdvanceBookingDays != nil {
		tpl.AdvanceBookingDays = *u.AdvanceBookingDays
	}
	if u.MinNoticeHours != nil {
		tpl.MinNoticeHours = *u.MinNoticeHours
	}
	if u.IsAcceptingStudents != nil {
		tpl.IsAcceptingStudents = *u.IsAcceptingStudents
	}
	if u.GroupSessionCapacity != nil {
		tpl.GroupSessionCapacity = *u.GroupSessionCapacity
	}
	tpl.Version++
	tpl.UpdatedAt = time.Now().UTC()
	return tpl.Clone(), nil
}

func (r *memoryAvailabilityRepo) AddBlockedDate(_ context.Context, b *models.BlockedDate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.blocked {
		if existing.TutorID == b.TutorID && existing.Date == b.Date {
			return repository.ErrDuplicate
		}
	}
	r.blocked[b.ID] = *b
	return nil
}

func (r *memoryAvailabilityRepo) DeleteBlockedDate(_ context.Context, tutorID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blocked[id]
	if !ok || b.TutorID != tutorID {
		return repository.ErrNotFound
	}
	delete(r.blocked, id)
	return nil
}

func (r *memoryAvailabilityRepo) ListBlockedDates(_ context.Context, tutorID, from, to string) ([]models.BlockedDate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.BlockedDate{}
	for _, b := range r.blocked {
		if b.TutorID != tutorID {
			continue
		}
		// YYYY-MM-DD compares correctly as a string.
		if (from != "" && b.Date < from) || (to != "" && b.Date > to) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *memoryAvailabilityRepo) IsDateBlocked(_ context.Context, tutorID, date string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocked {
		if b.TutorID == tutorID && b.Date == date {
			return true, nil
		}
	}
	return false, nil
}
