package schedulerRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"tutorbook/database/repository"
	"tutorbook/models"

	"github.com/google/uuid"
)

// MemorySchedulerRepo serialises every operation under one mutex, which makes
// each method as atomic as the Mongo transaction it mirrors.
type MemorySchedulerRepo struct {
	mu         sync.Mutex
	bookings   map[string]*models.Booking
	activeKeys map[string]string
	buckets    map[string]*models.CapacityBucket
	relations  map[string]*models.StudentTutorRelation
	ledger     map[string]*models.PaymentLedgerEntry
}

func NewMemorySchedulerRepo() *MemorySchedulerRepo {
	return &MemorySchedulerRepo{
		bookings:   make(map[string]*models.Booking),
		activeKeys: make(map[string]string),
		buckets:    make(map[string]*models.CapacityBucket),
		relations:  make(map[string]*models.StudentTutorRelation),
		ledger:     make(map[string]*models.PaymentLedgerEntry),
	}
}

func cloneBooking(b *models.Booking) *models.Booking {
	c := *b
	if b.MeetingLink != nil {
		v := *b.MeetingLink
		c.MeetingLink = &v
	}
	if b.ExternalEventID != nil {
		v := *b.ExternalEventID
		c.ExternalEventID = &v
	}
	return &c
}

func cloneEntry(e *models.PaymentLedgerEntry) *models.PaymentLedgerEntry {
	c := *e
	return &c
}

func (r *MemorySchedulerRepo) reserveLocked(key models.BucketKey, capacity int, at time.Time) (*models.CapacityBucket, error) {
	k := key.String()
	bucket, ok := r.buckets[k]
	if !ok {
		bucket = &models.CapacityBucket{
			Key:             k,
			TutorID:         key.TutorID,
			ScheduledAt:     key.ScheduledAt.UTC(),
			DurationMinutes: key.DurationMinutes,
			SessionType:     key.SessionType,
			Capacity:        capacity,
		}
		r.buckets[k] = bucket
	}
	if bucket.ReservedCount >= bucket.Capacity {
		return nil, capacityError(bucket.Capacity)
	}
	bucket.ReservedCount++
	bucket.UpdatedAt = at
	c := *bucket
	return &c, nil
}

func (r *MemorySchedulerRepo) releaseLocked(key models.BucketKey, at time.Time) {
	if bucket, ok := r.buckets[key.String()]; ok && bucket.ReservedCount > 0 {
		bucket.ReservedCount--
		bucket.UpdatedAt = at
	}
}

func relationKey(studentID, tutorID string) string {
	return studentID + "|" + tutorID
}

func (r *MemorySchedulerRepo) CreateBooking(_ context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := cloneBooking(in.Booking)
	if b.ActiveKey != "" {
		if _, taken := r.activeKeys[b.ActiveKey]; taken {
			// Report the capacity rejection first, as the Mongo path does.
			if bucket, ok := r.buckets[b.Bucket().String()]; ok && bucket.ReservedCount >= bucket.Capacity {
				return nil, capacityError(bucket.Capacity)
			}
			return nil, ErrDuplicateBooking
		}
	}
	if _, err := r.reserveLocked(b.Bucket(), in.Capacity, b.CreatedAt); err != nil {
		return nil, err
	}
	b.SeatHeld = true

	rk := relationKey(b.StudentID, b.TutorID)
	rel, exists := r.relations[rk]
	if !exists {
		rel = &models.StudentTutorRelation{
			StudentID:        b.StudentID,
			TutorID:          b.TutorID,
			FirstBookingID:   b.ID,
			FirstBookingDate: b.CreatedAt,
			CreatedAt:        b.CreatedAt,
		}
		r.relations[rk] = rel
	}
	rel.TotalBookings++
	rel.TotalSpent += b.Price
	rel.UpdatedAt = b.CreatedAt

	entry := newLedgerEntry(uuid.NewString(), b, in.Fees(!exists))
	r.bookings[b.ID] = b
	if b.ActiveKey != "" {
		r.activeKeys[b.ActiveKey] = b.ID
	}
	r.ledger[b.ID] = entry

	in.Booking.SeatHeld = true
	return &CreateBookingResult{Booking: cloneBooking(b), Entry: cloneEntry(entry)}, nil
}

func (r *MemorySchedulerRepo) GetBooking(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneBooking(b), nil
}

func statusIn(s models.BookingStatus, set []models.BookingStatus) bool {
	if len(set) == 0 {
		return true
	}
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func (r *MemorySchedulerRepo) ListBookings(_ context.Context, f BookingFilter) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Booking{}
	for _, b := range r.bookings {
		if f.StudentID != "" && b.StudentID != f.StudentID {
			continue
		}
		if f.TutorID != "" && b.TutorID != f.TutorID {
			continue
		}
		if !statusIn(b.Status, f.Status) {
			continue
		}
		if !f.EndsBefore.IsZero() && b.EndsAt.After(f.EndsBefore) {
			continue
		}
		out = append(out, *cloneBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	if f.Limit > 0 && int64(len(out)) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemorySchedulerRepo) FindSharedArtifact(_ context.Context, tutorID string, scheduledAt time.Time, durationMinutes int, excludeID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID != excludeID && b.TutorID == tutorID && b.ScheduledAt.Equal(scheduledAt) &&
			b.DurationMinutes == durationMinutes && b.SessionType == models.SessionGroup &&
			b.Status == models.BookingConfirmed && b.ExternalEventID != nil {
			return cloneBooking(b), nil
		}
	}
	return nil, nil
}

func (r *MemorySchedulerRepo) CountArtifactHolders(_ context.Context, eventID, excludeID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, b := range r.bookings {
		if b.ID != excludeID && b.Status == models.BookingConfirmed && b.ExternalEventID != nil && *b.ExternalEventID == eventID {
			n++
		}
	}
	return n, nil
}

// transitionLocked applies mutate when the booking is in one of from.
func (r *MemorySchedulerRepo) transitionLocked(id string, from []models.BookingStatus, mutate func(b *models.Booking)) (*models.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !statusIn(b.Status, from) {
		return cloneBooking(b), ErrStatusChanged
	}
	mutate(b)
	return cloneBooking(b), nil
}

func (r *MemorySchedulerRepo) ConfirmBooking(_ context.Context, id string, m MeetingUpdate, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.transitionLocked(id, []models.BookingStatus{models.BookingPending}, func(b *models.Booking) {
		b.Status = models.BookingConfirmed
		b.ConfirmedAt = &at
		b.UpdatedAt = at
		b.MeetingLink = m.Link
		b.ExternalEventID = m.EventID
		b.MeetingStatus = m.Status
	})
	if err != nil {
		return out, err
	}
	if e, ok := r.ledger[id]; ok && e.Status == models.LedgerPending {
		e.Status = models.LedgerCompleted
		e.CompletedAt = &at
		e.UpdatedAt = at
	}
	return out, nil
}

func (r *MemorySchedulerRepo) CancelBooking(_ context.Context, id string, by models.Role, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := []models.BookingStatus{models.BookingPending, models.BookingConfirmed}
	out, err := r.transitionLocked(id, from, func(b *models.Booking) {
		if b.SeatHeld {
			r.releaseLocked(b.Bucket(), at)
			b.SeatHeld = false
		}
		if b.ActiveKey != "" {
			delete(r.activeKeys, b.ActiveKey)
			b.ActiveKey = ""
		}
		if b.PaymentStatus == models.PaymentPaid {
			b.PaymentStatus = models.PaymentRefunded
		}
		b.Status = models.BookingCancelled
		b.CancelledBy = by
		b.CancelledAt = &at
		b.UpdatedAt = at
	})
	if err != nil {
		return out, err
	}
	if e, ok := r.ledger[id]; ok {
		if to, changed := voidedLedgerStatus(e.Status); changed {
			e.Status = to
			e.UpdatedAt = at
		}
	}
	return out, nil
}

func (r *MemorySchedulerRepo) CompleteBooking(_ context.Context, id string, at time.Time) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, []models.BookingStatus{models.BookingConfirmed}, func(b *models.Booking) {
		b.Status = models.BookingCompleted
		b.CompletedAt = &at
		b.UpdatedAt = at
	})
}

func (r *MemorySchedulerRepo) SetMeetingLink(_ context.Context, id, link string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, []models.BookingStatus{models.BookingConfirmed}, func(b *models.Booking) {
		b.MeetingLink = &link
		b.UpdatedAt = time.Now().UTC()
	})
}

func (r *MemorySchedulerRepo) SetPaymentStatus(_ context.Context, bookingID string, status models.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	b.PaymentStatus = status
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemorySchedulerRepo) ReserveSeat(_ context.Context, key models.BucketKey, capacity int) (*models.CapacityBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reserveLocked(key, capacity, time.Now().UTC())
}

func (r *MemorySchedulerRepo) ReleaseSeat(_ context.Context, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[bookingID]
	if !ok || !b.SeatHeld {
		return false, nil
	}
	now := time.Now().UTC()
	r.releaseLocked(b.Bucket(), now)
	b.SeatHeld = false
	b.UpdatedAt = now
	return true, nil
}

func (r *MemorySchedulerRepo) GetBucket(_ context.Context, key models.BucketKey) (*models.CapacityBucket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.buckets[key.String()]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *bucket
	return &c, nil
}

func (r *MemorySchedulerRepo) GetLedgerEntry(_ context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ledger[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (r *MemorySchedulerRepo) ListLedgerEntries(_ context.Context, f models.LedgerFilter) ([]models.PaymentLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PaymentLedgerEntry{}
	for _, e := range r.ledger {
		if f.TutorID != "" && e.TutorID != f.TutorID {
			continue
		}
		if len(f.Status) > 0 && !ledgerStatusIn(e.Status, f.Status) {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func ledgerStatusIn(s models.LedgerStatus, set []models.LedgerStatus) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func (r *MemorySchedulerRepo) TransitionLedger(_ context.Context, bookingID string, from []models.LedgerStatus, to models.LedgerStatus, at time.Time) (*models.PaymentLedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ledger[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !ledgerStatusIn(e.Status, from) {
		return cloneEntry(e), ErrStatusChanged
	}
	e.Status = to
	e.UpdatedAt = at
	if to == models.LedgerCompleted {
		e.CompletedAt = &at
	}
	return cloneEntry(e), nil
}

func (r *MemorySchedulerRepo) SetGatewayOrder(_ context.Context, bookingID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ledger[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	e.GatewayOrderID = &orderID
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemorySchedulerRepo) SetGatewayPayment(_ context.Context, bookingID, paymentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.ledger[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	e.GatewayPayment = &paymentID
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemorySchedulerRepo) GetRelation(_ context.Context, studentID, tutorID string) (*models.StudentTutorRelation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.relations[relationKey(studentID, tutorID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *rel
	return &c, nil
}
