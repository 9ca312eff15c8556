package availability

import (
	"context"
	"testing"
	"time"

	availabilityRepo "tutorbook/database/repository/availability"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
)

type recordingCache struct {
	entries     map[string]*models.MonthCalendar
	invalidated []string
}

func (c *recordingCache) Get(_ context.Context, key string) (*models.MonthCalendar, bool) {
	cal, ok := c.entries[key]
	return cal, ok
}

func (c *recordingCache) Set(_ context.Context, key string, cal *models.MonthCalendar) {
	c.entries[key] = cal
}

func (c *recordingCache) InvalidateTutor(_ context.Context, tutorID string) {
	c.invalidated = append(c.invalidated, tutorID)
	c.entries = make(map[string]*models.MonthCalendar)
}

// 2026-03-02 is a Monday.
var serviceNow = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*DefaultAvailabilityService, *recordingCache) {
	t.Helper()
	tutors := tutorRepo.NewMemoryTutorRepo()
	if err := tutors.Create(context.Background(), &models.TutorProfile{ID: "tutor-1", UserID: "user-1", FullName: "Asha"}); err != nil {
		t.Fatalf("seed tutor: %v", err)
	}
	cache := &recordingCache{entries: make(map[string]*models.MonthCalendar)}
	return &DefaultAvailabilityService{
		Repo:   availabilityRepo.NewMemoryAvailabilityRepo(),
		Tutors: tutors,
		Cache:  cache,
		Logger: zap.NewNop(),
		Now:    func() time.Time { return serviceNow },
	}, cache
}

func TestSetWeeklyScheduleRejectsOverlapAndKeepsPrior(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	prior := models.WeeklySchedule{"monday": day(tr("09:00", "10:00"))}
	if _, err := svc.SetWeeklySchedule(ctx, "tutor-1", models.SessionPrivate, prior); err != nil {
		t.Fatalf("initial schedule: %v", err)
	}

	bad := models.WeeklySchedule{"monday": day(tr("09:00", "10:00"), tr("09:30", "10:30"))}
	_, err := svc.SetWeeklySchedule(ctx, "tutor-1", models.SessionPrivate, bad)
	if !utils.IsKind(err, utils.KindScheduleConflict) {
		t.Fatalf("expected schedule conflict, got %v", err)
	}

	tpl, err := svc.GetTemplate(ctx, "tutor-1")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	got := tpl.PrivateSchedule["monday"]
	if len(got) != 1 || got[0] != tr("09:00", "10:00") {
		t.Fatalf("prior schedule changed: %v", got)
	}
}

func TestSetWeeklyScheduleCrossKind(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	if _, err := svc.SetWeeklySchedule(ctx, "tutor-1", models.SessionGroup, models.WeeklySchedule{"friday": day(tr("16:00", "18:00"))}); err != nil {
		t.Fatalf("group schedule: %v", err)
	}
	_, err := svc.SetWeeklySchedule(ctx, "tutor-1", models.SessionPrivate, models.WeeklySchedule{"friday": day(tr("17:00", "17:30"))})
	if !utils.IsKind(err, utils.KindScheduleConflict) {
		t.Fatalf("expected cross kind conflict, got %v", err)
	}
	if len(cache.invalidated) != 1 {
		t.Fatalf("expected one invalidation for the accepted write, got %v", cache.invalidated)
	}
}

func TestResolveMonthUsesCache(t *testing.T) {
	svc, cache := newTestService(t)
	ctx := context.Background()

	cal, err := svc.ResolveMonth(ctx, "tutor-1", 2026, 3, models.SessionPrivate, models.ViewPublic)
	if err != nil {
		t.Fatalf("ResolveMonth: %v", err)
	}
	if len(cal.Days) != 31 || cal.Timezone != models.DefaultTimezone {
		t.Fatalf("unexpected calendar: %d days, tz %s", len(cal.Days), cal.Timezone)
	}
	if len(cache.entries) != 1 {
		t.Fatalf("expected the month to be cached")
	}

	if _, err := svc.AddBlockedDate(ctx, "tutor-1", models.BlockDateRequest{Date: "2026-03-09"}); err != nil {
		t.Fatalf("AddBlockedDate: %v", err)
	}
	if len(cache.entries) != 0 {
		t.Fatalf("blocking a date should invalidate cached months")
	}
}

func TestResolveMonthErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.ResolveMonth(ctx, "nobody", 2026, 3, models.SessionPrivate, models.ViewPublic); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ResolveMonth(ctx, "tutor-1", 2026, 13, models.SessionPrivate, models.ViewPublic); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error for month 13, got %v", err)
	}
	if _, err := svc.ResolveMonth(ctx, "tutor-1", 2026, 3, models.SessionKind("solo"), models.ViewPublic); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error for kind, got %v", err)
	}
}

func TestCheckBookable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CheckBookable(ctx, "tutor-1", models.SessionPrivate, serviceNow.Add(7*24*time.Hour), 60); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error without a template, got %v", err)
	}

	schedule := models.WeeklySchedule{"monday": day(tr("09:00", "12:00"))}
	if _, err := svc.SetWeeklySchedule(ctx, "tutor-1", models.SessionPrivate, schedule); err != nil {
		t.Fatalf("SetWeeklySchedule: %v", err)
	}
	if _, err := svc.AddBlockedDate(ctx, "tutor-1", models.BlockDateRequest{Date: "2026-03-16", Reason: "exam"}); err != nil {
		t.Fatalf("AddBlockedDate: %v", err)
	}

	at := func(month time.Month, d, h, m int) time.Time { return time.Date(2026, month, d, h, m, 0, 0, time.UTC) }
	tests := []struct {
		name    string
		at      time.Time
		wantErr bool
	}{
		{"next monday", at(time.March, 9, 9, 0), false},
		{"inside notice window", at(time.March, 2, 10, 0), true},
		{"in the past", at(time.March, 1, 9, 0), true},
		{"beyond advance window", at(time.April, 13, 9, 0), true},
		{"blocked monday", at(time.March, 16, 9, 0), true},
		{"not offered", at(time.March, 10, 9, 0), true},
	}
	for _, tt := range tests {
		_, err := svc.CheckBookable(ctx, "tutor-1", models.SessionPrivate, tt.at, 60)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%s: expected error=%v, got %v", tt.name, tt.wantErr, err)
		}
		if err != nil && !utils.IsKind(err, utils.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", tt.name, err)
		}
	}

	accepting := false
	if _, err := svc.UpdateSettings(ctx, "tutor-1", models.AvailabilitySettingsUpdate{IsAcceptingStudents: &accepting}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if _, err := svc.CheckBookable(ctx, "tutor-1", models.SessionPrivate, at(time.March, 9, 9, 0), 60); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected rejection while not accepting students, got %v", err)
	}
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc, _ := newTestService(t)
	tz := "Mars/Olympus"
	if _, err := svc.UpdateSettings(context.Background(), "tutor-1", models.AvailabilitySettingsUpdate{Timezone: &tz}); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error for timezone, got %v", err)
	}
	zero := 0
	if _, err := svc.UpdateSettings(context.Background(), "tutor-1", models.AvailabilitySettingsUpdate{GroupSessionCapacity: &zero}); !utils.IsKind(err, utils.KindValidation) {
		t.Fatalf("expected validation error for capacity, got %v", err)
	}
}
