package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	availabilityRepo "tutorbook/database/repository/availability"
	recordsRepo "tutorbook/database/repository/records"
	schedulerRepo "tutorbook/database/repository/scheduler"
	settingsRepo "tutorbook/database/repository/settings"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/services/availability"
	"tutorbook/services/ledger"
	"tutorbook/services/meeting"
	"tutorbook/utils"

	"go.uber.org/zap"
)

// fakeMeetings provisions deterministic artifacts and records every call.
type fakeMeetings struct {
	mu          sync.Mutex
	degrade     bool
	provisioned []string
	attendees   map[string][]string
	cancelled   []string
}

func newFakeMeetings() *fakeMeetings {
	return &fakeMeetings{attendees: make(map[string][]string)}
}

func (m *fakeMeetings) Provision(_ context.Context, _ string, b *models.Booking) meeting.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.degrade {
		return meeting.Result{Status: models.MeetingDegraded}
	}
	id := "evt-" + b.ID
	link := "https://meet.example/" + b.ID
	m.provisioned = append(m.provisioned, id)
	m.attendees[id] = append(m.attendees[id], b.Participants.StudentEmail)
	return meeting.Result{ArtifactID: &id, JoinLink: &link, Status: models.MeetingCreated}
}

func (m *fakeMeetings) AddAttendee(_ context.Context, _ string, artifactID, email string) meeting.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendees[artifactID] = append(m.attendees[artifactID], email)
	id := artifactID
	return meeting.Result{ArtifactID: &id, Status: models.MeetingReused}
}

func (m *fakeMeetings) Cancel(_ context.Context, _ string, artifactID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, artifactID)
	return true
}

func (m *fakeMeetings) cancelledIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.BookingEvent
}

func (s *recordingSink) Emit(_ context.Context, ev models.BookingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last() models.BookingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return models.BookingEvent{}
	}
	return s.events[len(s.events)-1]
}

// 2026-03-02 is a Monday. The private slot is the following Monday at 09:00
// and the group slot the following Tuesday at 16:00.
var (
	fixtureStart = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	privateSlot  = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	groupSlot    = time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc      *DefaultBookingService
	repo     *schedulerRepo.MemorySchedulerRepo
	tutors   *tutorRepo.MemoryTutorRepo
	ledger   *ledger.DefaultLedgerService
	meetings *fakeMeetings
	sink     *recordingSink

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

var (
	tutorPrincipal      = &models.Principal{UserID: "tutor-user", Role: models.RoleTutor, Email: "asha@example.com", Name: "Asha"}
	otherTutorPrincipal = &models.Principal{UserID: "tutor2-user", Role: models.RoleTutor, Email: "ravi@example.com", Name: "Ravi"}
	adminPrincipal      = &models.Principal{UserID: "admin", Role: models.RoleAdmin}
)

func student(n string) *models.Principal {
	return &models.Principal{UserID: "student-" + n, Role: models.RoleStudent, Email: "student" + n + "@example.com", Name: "Student " + n}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	f := &fixture{
		repo:     schedulerRepo.NewMemorySchedulerRepo(),
		tutors:   tutorRepo.NewMemoryTutorRepo(),
		meetings: newFakeMeetings(),
		sink:     &recordingSink{},
		now:      fixtureStart,
	}

	for _, tp := range []*models.TutorProfile{
		{ID: "tutor-1", UserID: "tutor-user", FullName: "Asha", Email: "asha@example.com", HourlyRate: 600, Currency: utils.CurrencyINR, OffersPrivate: true, OffersGroup: true},
		{ID: "tutor-2", UserID: "tutor2-user", FullName: "Ravi", Email: "ravi@example.com", HourlyRate: 800, Currency: utils.CurrencyINR, OffersPrivate: true},
	} {
		if err := f.tutors.Create(ctx, tp); err != nil {
			t.Fatalf("seed tutor: %v", err)
		}
	}

	avail := &availability.DefaultAvailabilityService{
		Repo:   availabilityRepo.NewMemoryAvailabilityRepo(),
		Tutors: f.tutors,
		Logger: logger,
		Now:    func() time.Time { return fixtureStart },
	}
	if _, err := avail.SetWeeklySchedule(ctx, "tutor-1", models.SessionPrivate,
		models.WeeklySchedule{"monday": {{StartTime: "09:00", EndTime: "10:00"}}}); err != nil {
		t.Fatalf("private schedule: %v", err)
	}
	if _, err := avail.SetWeeklySchedule(ctx, "tutor-1", models.SessionGroup,
		models.WeeklySchedule{"tuesday": {{StartTime: "16:00", EndTime: "17:00"}}}); err != nil {
		t.Fatalf("group schedule: %v", err)
	}
	buffer, capacity := 0, 3
	if _, err := avail.UpdateSettings(ctx, "tutor-1", models.AvailabilitySettingsUpdate{BufferMinutes: &buffer, GroupSessionCapacity: &capacity}); err != nil {
		t.Fatalf("settings: %v", err)
	}

	f.ledger = &ledger.DefaultLedgerService{
		Scheduler:   f.repo,
		Settings:    settingsRepo.NewMemorySettingsRepo(),
		Withdrawals: recordsRepo.NewMemoryWithdrawalRepo(),
		Logger:      logger,
		Now:         f.clock,
	}

	f.svc = &DefaultBookingService{
		Scheduler:    f.repo,
		Tutors:       f.tutors,
		Availability: avail,
		Ledger:       f.ledger,
		Meetings:     f.meetings,
		Notifier:     f.sink,
		Locker:       utils.NewLocalLocker(),
		Logger:       logger,
		Now:          f.clock,
	}
	return f
}

func privateRequest() models.CreateBookingRequest {
	return models.CreateBookingRequest{
		TutorID:         "tutor-1",
		Subject:         "Algebra",
		SessionType:     "private",
		ScheduledAt:     privateSlot,
		DurationMinutes: 60,
	}
}

func groupRequest() models.CreateBookingRequest {
	return models.CreateBookingRequest{
		TutorID:         "tutor-1",
		Subject:         "Physics revision",
		SessionType:     "group",
		ScheduledAt:     groupSlot,
		DurationMinutes: 60,
	}
}

func (f *fixture) book(t *testing.T, p *models.Principal, req models.CreateBookingRequest) *models.Booking {
	t.Helper()
	receipt, err := f.svc.Create(context.Background(), p, req)
	if err != nil {
		t.Fatalf("Create for %s: %v", p.UserID, err)
	}
	return receipt.Booking
}

func (f *fixture) confirm(t *testing.T, bookingID string) *models.Booking {
	t.Helper()
	b, err := f.svc.Confirm(context.Background(), tutorPrincipal, bookingID)
	if err != nil {
		t.Fatalf("Confirm %s: %v", bookingID, err)
	}
	return b
}

func expectKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if !utils.IsKind(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}
