package schedulerRepo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tutorbook/models"
)

var slotAt = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

func newBooking(id, studentID string, kind models.SessionKind) *models.Booking {
	return &models.Booking{
		ID:              id,
		StudentID:       studentID,
		TutorID:         "tutor-1",
		SessionType:     kind,
		ScheduledAt:     slotAt,
		DurationMinutes: 60,
		EndsAt:          slotAt.Add(time.Hour),
		Price:           500,
		Currency:        "INR",
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
		ActiveKey:       models.ActiveBookingKey(studentID, "tutor-1", kind, slotAt, 60),
		CreatedAt:       slotAt.Add(-48 * time.Hour),
	}
}

func flatFees(first bool) models.FeeBreakdown {
	return models.FeeBreakdown{SessionAmount: 500, ChargeAmount: 500, IsFirstBooking: first}
}

func create(t *testing.T, repo *MemorySchedulerRepo, b *models.Booking, capacity int) (*CreateBookingResult, error) {
	t.Helper()
	return repo.CreateBooking(context.Background(), CreateBookingInput{Booking: b, Capacity: capacity, Fees: flatFees})
}

func TestReserveAndReleaseSeat(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	key := newBooking("b", "s", models.SessionGroup).Bucket()

	for i := 0; i < 3; i++ {
		if _, err := repo.ReserveSeat(ctx, key, 3); err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}
	if _, err := repo.ReserveSeat(ctx, key, 3); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}

	private := newBooking("p", "s", models.SessionPrivate).Bucket()
	if _, err := repo.ReserveSeat(ctx, private, 1); err != nil {
		t.Fatalf("reserve private: %v", err)
	}
	if _, err := repo.ReserveSeat(ctx, private, 1); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCapacityFrozenByFirstReservation(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	key := newBooking("b", "s", models.SessionGroup).Bucket()

	if _, err := repo.ReserveSeat(ctx, key, 2); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	bucket, err := repo.ReserveSeat(ctx, key, 10)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if bucket.Capacity != 2 || bucket.Remaining() != 0 {
		t.Fatalf("expected capacity to stay 2, got %+v", bucket)
	}
}

func TestReleaseSeatIsIdempotent(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	b := newBooking("b1", "s1", models.SessionGroup)
	if _, err := create(t, repo, b, 3); err != nil {
		t.Fatalf("create: %v", err)
	}

	released, err := repo.ReleaseSeat(ctx, "b1")
	if err != nil || !released {
		t.Fatalf("expected first release to succeed, got %v %v", released, err)
	}
	released, err = repo.ReleaseSeat(ctx, "b1")
	if err != nil || released {
		t.Fatalf("expected second release to be a no-op, got %v %v", released, err)
	}
	if released, _ := repo.ReleaseSeat(ctx, "missing"); released {
		t.Fatalf("unknown booking should release nothing")
	}

	bucket, err := repo.GetBucket(ctx, b.Bucket())
	if err != nil {
		t.Fatalf("GetBucket: %v", err)
	}
	if bucket.ReservedCount != 0 {
		t.Fatalf("expected 0 reserved, got %d", bucket.ReservedCount)
	}
}

func TestConcurrentLastSeat(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	const contenders = 20

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		full    int
	)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := newBooking(fmt.Sprintf("b%d", i), fmt.Sprintf("s%d", i), models.SessionGroup)
			_, err := repo.CreateBooking(context.Background(), CreateBookingInput{Booking: b, Capacity: 3, Fees: flatFees})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if success != 3 || full != contenders-3 {
		t.Fatalf("expected 3 successes and %d full, got %d and %d", contenders-3, success, full)
	}
}

func TestFirstBookingDecidedOnce(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	const attempts = 10

	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := newBooking(fmt.Sprintf("b%d", i), "student-1", models.SessionPrivate)
			b.ScheduledAt = slotAt.Add(time.Duration(i) * 24 * time.Hour)
			b.ActiveKey = models.ActiveBookingKey("student-1", "tutor-1", models.SessionPrivate, b.ScheduledAt, 60)
			res, err := repo.CreateBooking(context.Background(), CreateBookingInput{Booking: b, Capacity: 1, Fees: flatFees})
			if err != nil {
				t.Errorf("create %d: %v", i, err)
				return
			}
			results <- res.Entry.IsFirstBooking
		}(i)
	}
	wg.Wait()
	close(results)

	firsts := 0
	for first := range results {
		if first {
			firsts++
		}
	}
	if firsts != 1 {
		t.Fatalf("expected exactly one first booking, got %d", firsts)
	}

	rel, err := repo.GetRelation(context.Background(), "student-1", "tutor-1")
	if err != nil {
		t.Fatalf("GetRelation: %v", err)
	}
	if rel.TotalBookings != attempts {
		t.Fatalf("expected %d bookings on the relation, got %d", attempts, rel.TotalBookings)
	}
}

func TestDuplicateActiveBooking(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	if _, err := create(t, repo, newBooking("b1", "s1", models.SessionGroup), 5); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := create(t, repo, newBooking("b2", "s1", models.SessionGroup), 5)
	if !errors.Is(err, ErrDuplicateBooking) {
		t.Fatalf("expected ErrDuplicateBooking, got %v", err)
	}
	bucket, _ := repo.GetBucket(context.Background(), newBooking("x", "s1", models.SessionGroup).Bucket())
	if bucket.ReservedCount != 1 {
		t.Fatalf("rejected duplicate must not hold a seat, reserved=%d", bucket.ReservedCount)
	}
}

func TestCancelFreesSeatAndVoidsLedger(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	at := slotAt.Add(-24 * time.Hour)

	if _, err := create(t, repo, newBooking("b1", "s1", models.SessionPrivate), 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := create(t, repo, newBooking("b2", "s2", models.SessionPrivate), 1); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	cancelled, err := repo.CancelBooking(ctx, "b1", models.RoleStudent, at)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.Status != models.BookingCancelled || cancelled.SeatHeld || cancelled.CancelledBy != models.RoleStudent {
		t.Fatalf("unexpected cancelled booking %+v", cancelled)
	}
	entry, _ := repo.GetLedgerEntry(ctx, "b1")
	if entry.Status != models.LedgerFailed {
		t.Fatalf("expected pending entry to become failed, got %s", entry.Status)
	}

	again, err := repo.CancelBooking(ctx, "b1", models.RoleStudent, at)
	if !errors.Is(err, ErrStatusChanged) || again.Status != models.BookingCancelled {
		t.Fatalf("expected ErrStatusChanged with current booking, got %v %+v", err, again)
	}

	if _, err := create(t, repo, newBooking("b3", "s1", models.SessionPrivate), 1); err != nil {
		t.Fatalf("rebooking a released slot: %v", err)
	}
}

func TestConfirmAndCancelPaidBooking(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	at := slotAt.Add(-24 * time.Hour)

	if _, err := create(t, repo, newBooking("b1", "s1", models.SessionPrivate), 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	link, event := "https://meet.example/abc", "tbb1"
	confirmed, err := repo.ConfirmBooking(ctx, "b1", MeetingUpdate{Link: &link, EventID: &event, Status: models.MeetingCreated}, at)
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if confirmed.Status != models.BookingConfirmed || *confirmed.MeetingLink != link {
		t.Fatalf("unexpected confirmed booking %+v", confirmed)
	}
	entry, _ := repo.GetLedgerEntry(ctx, "b1")
	if entry.Status != models.LedgerCompleted || entry.CompletedAt == nil {
		t.Fatalf("expected completed entry, got %+v", entry)
	}
	if n, _ := repo.CountArtifactHolders(ctx, event, ""); n != 1 {
		t.Fatalf("expected one artifact holder, got %d", n)
	}

	if _, err := repo.ConfirmBooking(ctx, "b1", MeetingUpdate{}, at); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged on second confirm, got %v", err)
	}

	if err := repo.SetPaymentStatus(ctx, "b1", models.PaymentPaid); err != nil {
		t.Fatalf("SetPaymentStatus: %v", err)
	}
	cancelled, err := repo.CancelBooking(ctx, "b1", models.RoleTutor, at)
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if cancelled.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("expected refunded payment, got %s", cancelled.PaymentStatus)
	}
	entry, _ = repo.GetLedgerEntry(ctx, "b1")
	if entry.Status != models.LedgerRefunded {
		t.Fatalf("expected refunded entry, got %s", entry.Status)
	}
}

func TestTransitionLedger(t *testing.T) {
	repo := NewMemorySchedulerRepo()
	ctx := context.Background()
	if _, err := create(t, repo, newBooking("b1", "s1", models.SessionPrivate), 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	at := time.Now().UTC()

	if _, err := repo.TransitionLedger(ctx, "b1", []models.LedgerStatus{models.LedgerCompleted}, models.LedgerRefunded, at); !errors.Is(err, ErrStatusChanged) {
		t.Fatalf("expected ErrStatusChanged from wrong source status, got %v", err)
	}
	e, err := repo.TransitionLedger(ctx, "b1", []models.LedgerStatus{models.LedgerPending}, models.LedgerFailed, at)
	if err != nil || e.Status != models.LedgerFailed {
		t.Fatalf("expected failed entry, got %+v %v", e, err)
	}
}
