package tutorRepo

import (
	"context"
	"sync"
	"time"

	"tutorbook/database/repository"
	"tutorbook/models"
)

type MemoryTutorRepo struct {
	mu     sync.Mutex
	tutors map[string]*models.TutorProfile
}

func NewMemoryTutorRepo() *MemoryTutorRepo {
	return &MemoryTutorRepo{tutors: make(map[string]*models.TutorProfile)}
}

func cloneTutor(t *models.TutorProfile) *models.TutorProfile {
	c := *t
	c.Calendar.Scopes = append([]string(nil), t.Calendar.Scopes...)
	return &c
}

func (r *MemoryTutorRepo) Create(_ context.Context, t *models.TutorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tutors {
		if existing.ID == t.ID || existing.UserID == t.UserID {
			return repository.ErrDuplicate
		}
	}
	r.tutors[t.ID] = cloneTutor(t)
	return nil
}

func (r *MemoryTutorRepo) GetByID(_ context.Context, id string) (*models.TutorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTutor(t), nil
}

func (r *MemoryTutorRepo) GetByUserID(_ context.Context, userID string) (*models.TutorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tutors {
		if t.UserID == userID {
			return cloneTutor(t), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *MemoryTutorRepo) UpdateProfile(_ context.Context, id string, req models.UpsertTutorRequest) (*models.TutorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.FullName = req.FullName
	t.Email = req.Email
	t.HourlyRate = req.HourlyRate
	t.GroupHourlyRate = req.GroupHourlyRate
	t.OffersPrivate = req.OffersPrivate
	t.OffersGroup = req.OffersGroup
	if req.Currency != "" {
		t.Currency = req.Currency
	}
	t.UpdatedAt = time.Now().UTC()
	return cloneTutor(t), nil
}

func (r *MemoryTutorRepo) SetAvatar(_ context.Context, id, url, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[id]
	if !ok {
		return repository.ErrNotFound
	}
	t.AvatarURL = url
	t.AvatarPublicID = publicID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryTutorRepo) GetCalendarCredential(_ context.Context, tutorID string) (*models.CalendarCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[tutorID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneTutor(t).Calendar
	return &c, nil
}

func (r *MemoryTutorRepo) SaveCalendarCredential(_ context.Context, tutorID string, cred models.CalendarCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[tutorID]
	if !ok {
		return repository.ErrNotFound
	}
	cred.Scopes = append([]string(nil), cred.Scopes...)
	t.Calendar = cred
	return nil
}

func (r *MemoryTutorRepo) ClearCalendarCredential(_ context.Context, tutorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tutors[tutorID]
	if !ok {
		return repository.ErrNotFound
	}
	t.Calendar = models.CalendarCredential{UpdatedAt: time.Now().UTC()}
	return nil
}
