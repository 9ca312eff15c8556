package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/services/meeting"
	"tutorbook/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func TestCreatePrivateBookingAndDoubleBooking(t *testing.T) {
	f := newFixture(t)

	b := f.book(t, student("1"), privateRequest())
	if b.Status != models.BookingPending || b.PaymentStatus != models.PaymentPending {
		t.Fatalf("expected pending booking, got %s/%s", b.Status, b.PaymentStatus)
	}
	if b.Price != 600 || b.Currency != utils.CurrencyINR {
		t.Fatalf("expected price 600 INR, got %v %s", b.Price, b.Currency)
	}
	if !b.EndsAt.Equal(privateSlot.Add(time.Hour)) {
		t.Fatalf("unexpected end %s", b.EndsAt)
	}
	if b.Participants.TutorName != "Asha" || b.Participants.StudentEmail != "student1@example.com" {
		t.Fatalf("unexpected participant snapshot %+v", b.Participants)
	}

	ev := f.sink.last()
	if ev.Type != models.EventBookingCreated || ev.RecipientUserID != "tutor-user" || ev.BookingID != b.ID {
		t.Fatalf("unexpected event %+v", ev)
	}

	_, err := f.svc.Create(context.Background(), student("2"), privateRequest())
	expectKind(t, err, utils.KindSlotTaken)

	_, err = f.svc.Create(context.Background(), student("1"), privateRequest())
	expectKind(t, err, utils.KindSlotTaken)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		p      *models.Principal
		mutate func(r *models.CreateBookingRequest)
		kind   utils.ErrorKind
	}{
		{"tutor cannot book", tutorPrincipal, nil, utils.KindUnauthorized},
		{"missing principal", nil, nil, utils.KindUnauthorized},
		{"missing email", &models.Principal{UserID: "s", Role: models.RoleStudent}, nil, utils.KindValidation},
		{"unknown kind", student("1"), func(r *models.CreateBookingRequest) { r.SessionType = "solo" }, utils.KindValidation},
		{"unknown tutor", student("1"), func(r *models.CreateBookingRequest) { r.TutorID = "nobody" }, utils.KindNotFound},
		{"kind not offered", student("1"), func(r *models.CreateBookingRequest) { r.TutorID = "tutor-2"; r.SessionType = "group" }, utils.KindValidation},
		{"not an offered slot", student("1"), func(r *models.CreateBookingRequest) { r.ScheduledAt = privateSlot.Add(30 * time.Minute) }, utils.KindValidation},
		{"past start", student("1"), func(r *models.CreateBookingRequest) { r.ScheduledAt = fixtureStart.Add(-7 * 24 * time.Hour) }, utils.KindValidation},
		{"bad currency", student("1"), func(r *models.CreateBookingRequest) { r.Currency = "EUR" }, utils.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := privateRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}
			_, err := f.svc.Create(ctx, tt.p, req)
			expectKind(t, err, tt.kind)
		})
	}
}

func TestCreateConvertsCurrency(t *testing.T) {
	f := newFixture(t)
	req := privateRequest()
	req.Currency = "usd"
	b := f.book(t, student("1"), req)
	// 600 INR at the default 0.012 rate.
	if b.Currency != utils.CurrencyUSD || b.Price != 7.2 {
		t.Fatalf("expected 7.2 USD, got %v %s", b.Price, b.Currency)
	}
}

func TestGroupSlotSharesOneMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, n := range []string{"1", "2", "3"} {
		b := f.book(t, student(n), groupRequest())
		if b.Price != 360 {
			t.Fatalf("expected group price 360, got %v", b.Price)
		}
		ids = append(ids, b.ID)
	}

	_, err := f.svc.Create(ctx, student("4"), groupRequest())
	expectKind(t, err, utils.KindSlotFull)

	var confirmed []*models.Booking
	for _, id := range ids {
		confirmed = append(confirmed, f.confirm(t, id))
	}

	if len(f.meetings.provisioned) != 1 {
		t.Fatalf("expected one artifact, got %v", f.meetings.provisioned)
	}
	artifact := f.meetings.provisioned[0]
	if got := len(f.meetings.attendees[artifact]); got != 3 {
		t.Fatalf("expected three attendees, got %d", got)
	}
	for i, b := range confirmed {
		if b.Status != models.BookingConfirmed {
			t.Fatalf("booking %d not confirmed: %s", i, b.Status)
		}
		if b.ExternalEventID == nil || *b.ExternalEventID != artifact {
			t.Fatalf("booking %d does not share the artifact", i)
		}
		if b.MeetingLink == nil || *b.MeetingLink != *confirmed[0].MeetingLink {
			t.Fatalf("booking %d has a different link", i)
		}
	}
	if confirmed[0].MeetingStatus != models.MeetingCreated || confirmed[2].MeetingStatus != models.MeetingReused {
		t.Fatalf("unexpected meeting statuses %s/%s", confirmed[0].MeetingStatus, confirmed[2].MeetingStatus)
	}
}

func TestCancelPendingReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, student("1"), privateRequest())
	cancelled, err := f.svc.Cancel(ctx, student("1"), b.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.BookingCancelled || cancelled.CancelledBy != models.RoleStudent {
		t.Fatalf("unexpected cancelled booking %+v", cancelled)
	}
	if ev := f.sink.last(); ev.Type != models.EventBookingCancelled || ev.RecipientUserID != "tutor-user" {
		t.Fatalf("expected the tutor to hear about the cancellation, got %+v", ev)
	}
	entry, err := f.ledger.Breakdown(ctx, b.ID)
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if entry.Status != models.LedgerFailed {
		t.Fatalf("expected voided ledger entry, got %s", entry.Status)
	}

	again := f.book(t, student("1"), privateRequest())
	if again.ID == b.ID || again.Status != models.BookingPending {
		t.Fatalf("expected a fresh pending booking, got %+v", again)
	}
}

func TestBookingStateTable(t *testing.T) {
	all := []models.BookingStatus{models.BookingPending, models.BookingConfirmed, models.BookingCompleted, models.BookingCancelled}
	allowed := map[[2]models.BookingStatus]bool{
		{models.BookingPending, models.BookingConfirmed}:   true,
		{models.BookingPending, models.BookingCancelled}:   true,
		{models.BookingConfirmed, models.BookingCompleted}: true,
		{models.BookingConfirmed, models.BookingCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]models.BookingStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
			err := checkTransition(from, to)
			switch {
			case want:
				if err != nil {
					t.Fatalf("%s -> %s: unexpected error %v", from, to, err)
				}
			case from == models.BookingConfirmed && to == models.BookingConfirmed:
				expectKind(t, err, utils.KindAlreadyConfirmed)
			case from == models.BookingCancelled && to == models.BookingCancelled:
				expectKind(t, err, utils.KindAlreadyCancelled)
			default:
				expectKind(t, err, utils.KindInvalidTransition)
			}
		}
	}
}

func TestLifecycleRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, student("1"), privateRequest())
	f.confirm(t, b.ID)
	_, err := f.svc.Confirm(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindAlreadyConfirmed)

	if _, err := f.svc.Cancel(ctx, tutorPrincipal, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	_, err = f.svc.Cancel(ctx, student("1"), b.ID)
	expectKind(t, err, utils.KindAlreadyCancelled)
	_, err = f.svc.Confirm(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindInvalidTransition)
	_, err = f.svc.Complete(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindInvalidTransition)
}

func TestBookingAccessControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, student("1"), privateRequest())

	_, missingErr := f.svc.Get(ctx, student("1"), "no-such-booking")
	_, foreignErr := f.svc.Get(ctx, student("2"), b.ID)
	expectKind(t, missingErr, utils.KindUnauthorized)
	expectKind(t, foreignErr, utils.KindUnauthorized)
	if missingErr.Error() != foreignErr.Error() {
		t.Fatalf("missing and foreign bookings must look the same: %q vs %q", missingErr, foreignErr)
	}

	_, err := f.svc.Get(ctx, otherTutorPrincipal, b.ID)
	expectKind(t, err, utils.KindUnauthorized)
	_, err = f.svc.Get(ctx, nil, b.ID)
	expectKind(t, err, utils.KindUnauthorized)

	for _, p := range []*models.Principal{student("1"), tutorPrincipal, adminPrincipal} {
		if _, err := f.svc.Get(ctx, p, b.ID); err != nil {
			t.Fatalf("%s should see the booking: %v", p.UserID, err)
		}
	}

	_, err = f.svc.Confirm(ctx, student("1"), b.ID)
	expectKind(t, err, utils.KindUnauthorized)
	_, err = f.svc.Confirm(ctx, adminPrincipal, b.ID)
	expectKind(t, err, utils.KindUnauthorized)
	_, err = f.svc.Cancel(ctx, adminPrincipal, b.ID)
	expectKind(t, err, utils.KindUnauthorized)
	_, err = f.svc.Confirm(ctx, otherTutorPrincipal, b.ID)
	expectKind(t, err, utils.KindUnauthorized)

	if _, err := f.svc.ListForTutor(ctx, student("1"), nil); !utils.IsKind(err, utils.KindUnauthorized) {
		t.Fatalf("students cannot list tutor bookings, got %v", err)
	}
	list, err := f.svc.ListForStudent(ctx, student("2"), nil)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected no bookings for student 2, got %v %v", list, err)
	}
	list, err = f.svc.ListForTutor(ctx, tutorPrincipal, []models.BookingStatus{models.BookingPending})
	if err != nil || len(list) != 1 {
		t.Fatalf("expected one pending booking for the tutor, got %v %v", list, err)
	}
}

func TestCancelConfirmedReleasesArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, student("1"), privateRequest())
	confirmed := f.confirm(t, b.ID)
	if ev := f.sink.last(); ev.Type != models.EventBookingConfirmed || ev.RecipientUserID != "student-1" {
		t.Fatalf("expected confirmation for the student, got %+v", ev)
	}

	if _, err := f.svc.Cancel(ctx, tutorPrincipal, b.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	f.svc.Wait()

	got := f.meetings.cancelledIDs()
	if len(got) != 1 || got[0] != *confirmed.ExternalEventID {
		t.Fatalf("expected artifact %s to be cancelled, got %v", *confirmed.ExternalEventID, got)
	}
	if ev := f.sink.last(); ev.RecipientUserID != "student-1" {
		t.Fatalf("expected the student to hear about a tutor cancellation, got %+v", ev)
	}
	entry, _ := f.ledger.Breakdown(ctx, b.ID)
	if entry.Status != models.LedgerRefunded {
		t.Fatalf("expected refunded ledger entry, got %s", entry.Status)
	}
}

func TestSharedArtifactSurvivesUntilLastCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.confirm(t, f.book(t, student("1"), groupRequest()).ID)
	second := f.confirm(t, f.book(t, student("2"), groupRequest()).ID)

	if _, err := f.svc.Cancel(ctx, student("1"), first.ID); err != nil {
		t.Fatalf("Cancel first: %v", err)
	}
	f.svc.Wait()
	if got := f.meetings.cancelledIDs(); len(got) != 0 {
		t.Fatalf("shared artifact deleted while still in use: %v", got)
	}

	if _, err := f.svc.Cancel(ctx, student("2"), second.ID); err != nil {
		t.Fatalf("Cancel second: %v", err)
	}
	f.svc.Wait()
	if got := f.meetings.cancelledIDs(); len(got) != 1 || got[0] != *first.ExternalEventID {
		t.Fatalf("expected the shared artifact to be deleted once, got %v", got)
	}
}

func TestConfirmDegradedWithoutMeetings(t *testing.T) {
	f := newFixture(t)
	f.meetings.degrade = true

	b := f.book(t, student("1"), privateRequest())
	confirmed := f.confirm(t, b.ID)
	if confirmed.Status != models.BookingConfirmed || confirmed.MeetingLink != nil || confirmed.MeetingStatus != models.MeetingDegraded {
		t.Fatalf("expected degraded confirmation, got %+v", confirmed)
	}

	_, err := f.svc.SetMeetingLink(context.Background(), tutorPrincipal, b.ID, "zoom")
	expectKind(t, err, utils.KindValidation)
	updated, err := f.svc.SetMeetingLink(context.Background(), tutorPrincipal, b.ID, "https://zoom.example/j/123")
	if err != nil {
		t.Fatalf("SetMeetingLink: %v", err)
	}
	if updated.MeetingLink == nil || *updated.MeetingLink != "https://zoom.example/j/123" {
		t.Fatalf("link not stored: %+v", updated.MeetingLink)
	}
}

func TestSetMeetingLinkNeedsConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, student("1"), privateRequest())
	_, err := f.svc.SetMeetingLink(context.Background(), tutorPrincipal, b.ID, "https://meet.example/x")
	expectKind(t, err, utils.KindInvalidTransition)
	_, err = f.svc.SetMeetingLink(context.Background(), student("1"), b.ID, "https://meet.example/x")
	expectKind(t, err, utils.KindUnauthorized)
}

func TestCompleteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.book(t, student("1"), privateRequest())
	f.confirm(t, b.ID)

	_, err := f.svc.Complete(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindValidation)

	f.setNow(privateSlot.Add(10 * time.Minute))
	_, err = f.svc.Complete(ctx, student("1"), b.ID)
	expectKind(t, err, utils.KindUnauthorized)

	done, err := f.svc.Complete(ctx, adminPrincipal, b.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.BookingCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected completed booking %+v", done)
	}
	if ev := f.sink.last(); ev.Type != models.EventBookingCompleted || ev.RecipientUserID != "student-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
	_, err = f.svc.Cancel(ctx, student("1"), b.ID)
	expectKind(t, err, utils.KindInvalidTransition)
}

func TestCompleteDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	private := f.book(t, student("1"), privateRequest())
	group := f.book(t, student("2"), groupRequest())
	pending := f.book(t, student("3"), groupRequest())
	f.confirm(t, private.ID)
	f.confirm(t, group.ID)

	// After the Monday session ended but before Tuesday's.
	f.setNow(privateSlot.Add(2 * time.Hour))
	n, err := f.svc.CompleteDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one completion, got %d %v", n, err)
	}

	f.setNow(groupSlot.Add(2 * time.Hour))
	n, err = f.svc.CompleteDue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one more completion, got %d %v", n, err)
	}

	b, _ := f.svc.Get(ctx, student("3"), pending.ID)
	if b.Status != models.BookingPending {
		t.Fatalf("pending bookings are never auto-completed, got %s", b.Status)
	}
}

func TestFirstBookingFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rate := 0.1
	if _, err := f.ledger.UpdateSettings(ctx, models.UpdateSettingsRequest{StudentFeeRate: &rate}); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	first, err := f.svc.Create(ctx, student("1"), privateRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !first.Fees.IsFirstBooking || first.Fees.StudentPlatformFee != 60 || first.Fees.ChargeAmount != 660 {
		t.Fatalf("unexpected first booking fees %+v", first.Fees)
	}
	if first.Fees.CommissionFee != 30 || first.Fees.TutorEarnings != 570 {
		t.Fatalf("unexpected commission split %+v", first.Fees)
	}

	// A failed payment does not give the first booking back.
	if err := f.svc.MarkPaymentResult(ctx, first.Booking.ID, false, ""); err != nil {
		t.Fatalf("MarkPaymentResult: %v", err)
	}

	second, err := f.svc.Create(ctx, student("1"), groupRequest())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if second.Fees.IsFirstBooking || second.Fees.StudentPlatformFee != 0 || second.Fees.ChargeAmount != 360 {
		t.Fatalf("unexpected repeat booking fees %+v", second.Fees)
	}
}

func TestMarkPaymentResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	failed := f.book(t, student("1"), privateRequest())
	if err := f.svc.MarkPaymentResult(ctx, failed.ID, false, "pi_failed"); err != nil {
		t.Fatalf("MarkPaymentResult: %v", err)
	}
	b, _ := f.svc.Get(ctx, student("1"), failed.ID)
	if b.PaymentStatus != models.PaymentFailed {
		t.Fatalf("expected failed payment, got %s", b.PaymentStatus)
	}
	entry, _ := f.ledger.Breakdown(ctx, failed.ID)
	if entry.Status != models.LedgerFailed || entry.GatewayPayment == nil || *entry.GatewayPayment != "pi_failed" {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}

	paid := f.book(t, student("2"), groupRequest())
	f.confirm(t, paid.ID)
	if err := f.svc.MarkPaymentResult(ctx, paid.ID, true, "pi_ok"); err != nil {
		t.Fatalf("MarkPaymentResult: %v", err)
	}
	// A late failure for a completed ledger entry leaves it alone.
	if err := f.svc.MarkPaymentResult(ctx, paid.ID, false, ""); err != nil {
		t.Fatalf("MarkPaymentResult: %v", err)
	}
	b, _ = f.svc.Get(ctx, student("2"), paid.ID)
	if b.PaymentStatus != models.PaymentPaid {
		t.Fatalf("expected paid booking, got %s", b.PaymentStatus)
	}
	entry, _ = f.ledger.Breakdown(ctx, paid.ID)
	if entry.Status != models.LedgerCompleted {
		t.Fatalf("expected completed ledger entry, got %s", entry.Status)
	}

	cancelled, err := f.svc.Cancel(ctx, student("2"), paid.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	f.svc.Wait()
	if cancelled.PaymentStatus != models.PaymentRefunded {
		t.Fatalf("expected refunded payment, got %s", cancelled.PaymentStatus)
	}

	err = f.svc.MarkPaymentResult(ctx, "missing", true, "")
	expectKind(t, err, utils.KindNotFound)
}

func TestConfirmRaceReleasesCreatedArtifact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, student("1"), privateRequest())

	// The student cancels between the tutor's read and the conditional update.
	racing := &cancelOnProvision{fakeMeetings: f.meetings, cancel: func() {
		if _, err := f.repo.CancelBooking(ctx, b.ID, models.RoleStudent, fixtureStart); err != nil {
			t.Errorf("CancelBooking: %v", err)
		}
	}}
	f.svc.Meetings = racing

	_, err := f.svc.Confirm(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindInvalidTransition)
	f.svc.Wait()

	got := f.meetings.cancelledIDs()
	if len(got) != 1 || got[0] != "evt-"+b.ID {
		t.Fatalf("expected the orphaned artifact to be cleaned up, got %v", got)
	}
}

type cancelOnProvision struct {
	*fakeMeetings
	cancel func()
}

func (c *cancelOnProvision) Provision(ctx context.Context, tutorID string, b *models.Booking) (res meeting.Result) {
	res = c.fakeMeetings.Provision(ctx, tutorID, b)
	c.cancel()
	return res
}

func TestCreateReportsRepositoryFailure(t *testing.T) {
	err := mapCreateError(errors.New("boom"))
	if utils.IsKind(err, utils.KindSlotTaken) || err == nil {
		t.Fatalf("expected a plain internal error, got %v", err)
	}
}

// refreshFailingAPI rejects every token refresh and counts event inserts.
type refreshFailingAPI struct {
	creates int
}

func (a *refreshFailingAPI) CreateEvent(context.Context, *oauth2.Token, meeting.EventRequest) (*meeting.Artifact, error) {
	a.creates++
	return &meeting.Artifact{ID: "unexpected"}, nil
}

func (a *refreshFailingAPI) AddAttendee(context.Context, *oauth2.Token, string, string) (*meeting.Artifact, error) {
	return nil, errors.New("not reachable")
}

func (a *refreshFailingAPI) DeleteEvent(context.Context, *oauth2.Token, string) error {
	return nil
}

func (a *refreshFailingAPI) RefreshToken(context.Context, *oauth2.Token) (*oauth2.Token, error) {
	return nil, errors.New("invalid_grant")
}

func TestConfirmWithExpiredCalendarTokenDegrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sealer, err := utils.NewSealer("test-seal-secret")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	expired := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
	cred, err := meeting.SealToken(sealer, expired, nil, fixtureStart)
	if err != nil {
		t.Fatalf("SealToken: %v", err)
	}
	if err := f.tutors.SaveCalendarCredential(ctx, "tutor-1", cred); err != nil {
		t.Fatalf("SaveCalendarCredential: %v", err)
	}

	api := &refreshFailingAPI{}
	f.svc.Meetings = meeting.NewProvisioner(api, f.tutors, sealer, time.Second, zap.NewNop())

	b := f.book(t, student("1"), privateRequest())
	confirmed := f.confirm(t, b.ID)
	if confirmed.Status != models.BookingConfirmed {
		t.Fatalf("expected confirmed booking, got %s", confirmed.Status)
	}
	if confirmed.MeetingLink != nil || confirmed.MeetingStatus != models.MeetingDegraded {
		t.Fatalf("expected degraded meeting, got %+v / %s", confirmed.MeetingLink, confirmed.MeetingStatus)
	}
	if api.creates != 0 {
		t.Fatalf("no event should be created without a valid token, got %d", api.creates)
	}
	entry, err := f.ledger.Breakdown(ctx, b.ID)
	if err != nil || entry.Status != models.LedgerCompleted {
		t.Fatalf("expected completed ledger entry, got %+v %v", entry, err)
	}
}

func TestDoubleConfirmKeepsLiveEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, student("1"), privateRequest())

	// A second confirm of the same booking lands first with the same event.
	racing := &cancelOnProvision{fakeMeetings: f.meetings, cancel: func() {
		id, link := "evt-"+b.ID, "https://meet.example/"+b.ID
		update := schedulerRepo.MeetingUpdate{EventID: &id, Link: &link, Status: models.MeetingCreated}
		if _, err := f.repo.ConfirmBooking(ctx, b.ID, update, fixtureStart); err != nil {
			t.Errorf("ConfirmBooking: %v", err)
		}
	}}
	f.svc.Meetings = racing

	_, err := f.svc.Confirm(ctx, tutorPrincipal, b.ID)
	expectKind(t, err, utils.KindAlreadyConfirmed)
	f.svc.Wait()

	if got := f.meetings.cancelledIDs(); len(got) != 0 {
		t.Fatalf("the live event was deleted: %v", got)
	}
	stored, err := f.repo.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetBooking: %v", err)
	}
	if stored.Status != models.BookingConfirmed || stored.ExternalEventID == nil || *stored.ExternalEventID != "evt-"+b.ID {
		t.Fatalf("unexpected stored booking %s %v", stored.Status, stored.ExternalEventID)
	}
}

func TestConcurrentGroupConfirmsShareOneMeeting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, n := range []string{"1", "2", "3"} {
		ids = append(ids, f.book(t, student(n), groupRequest()).ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(ctx, tutorPrincipal, id)
		}(i, id)
	}
	wg.Wait()
	f.svc.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("confirm %d: %v", i, err)
		}
	}
	f.meetings.mu.Lock()
	defer f.meetings.mu.Unlock()
	if len(f.meetings.provisioned) != 1 {
		t.Fatalf("expected one artifact, got %v", f.meetings.provisioned)
	}
	if got := len(f.meetings.attendees[f.meetings.provisioned[0]]); got != 3 {
		t.Fatalf("expected three attendees, got %d", got)
	}
	if len(f.meetings.cancelled) != 0 {
		t.Fatalf("no artifact should be released, got %v", f.meetings.cancelled)
	}
}

// deadlineRecorder notes the deadline each provisioning call runs under.
type deadlineRecorder struct {
	*fakeMeetings
	mu        sync.Mutex
	deadlines []time.Time
}

func (d *deadlineRecorder) Provision(ctx context.Context, tutorID string, b *models.Booking) meeting.Result {
	d.mu.Lock()
	dl, ok := ctx.Deadline()
	if ok {
		d.deadlines = append(d.deadlines, dl)
	}
	d.mu.Unlock()
	return d.fakeMeetings.Provision(ctx, tutorID, b)
}

func TestGroupProvisioningFinishesInsideLock(t *testing.T) {
	f := newFixture(t)
	rec := &deadlineRecorder{fakeMeetings: f.meetings}
	f.svc.Meetings = rec
	f.svc.LockTTL = 40 * time.Second

	b := f.book(t, student("1"), groupRequest())
	before := time.Now()
	f.confirm(t, b.ID)

	if len(rec.deadlines) != 1 {
		t.Fatalf("expected a deadline on group provisioning, got %d", len(rec.deadlines))
	}
	if left := rec.deadlines[0].Sub(before); left > f.svc.LockTTL-lockMargin {
		t.Fatalf("provisioning may outlive the slot lock: %s left", left)
	}
}

func TestLockTTLFor(t *testing.T) {
	cases := []struct {
		call time.Duration
		want time.Duration
	}{
		{5 * time.Second, slotLockTTL},
		{10 * time.Second, slotLockTTL},
		{20 * time.Second, 90 * time.Second},
		{30 * time.Second, 130 * time.Second},
	}
	for _, tc := range cases {
		if got := LockTTLFor(tc.call); got != tc.want {
			t.Fatalf("LockTTLFor(%s) = %s, want %s", tc.call, got, tc.want)
		}
	}
}
