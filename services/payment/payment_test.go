package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tutorbook/database/repository"
	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/services/booking"
	"tutorbook/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type fakeGateway struct {
	orders  []OrderRequest
	result  *WebhookResult
	hookErr error
}

func (g *fakeGateway) CreateOrder(_ context.Context, req OrderRequest) (*Order, error) {
	g.orders = append(g.orders, req)
	return &Order{ID: "pi_" + req.BookingID, ClientSecret: "secret_" + req.BookingID}, nil
}

func (g *fakeGateway) ParseWebhook([]byte, string) (*WebhookResult, error) {
	return g.result, g.hookErr
}

type paymentCall struct {
	bookingID string
	paid      bool
	paymentID string
}

// stubBookings serves one booking and records payment outcomes.
type stubBookings struct {
	booking.BookingService
	booking *models.Booking
	marked  []paymentCall
}

func (s *stubBookings) Get(_ context.Context, _ *models.Principal, id string) (*models.Booking, error) {
	if s.booking == nil || s.booking.ID != id {
		return nil, utils.NotFoundError("booking not found")
	}
	b := *s.booking
	return &b, nil
}

func (s *stubBookings) MarkPaymentResult(_ context.Context, bookingID string, paid bool, paymentID string) error {
	s.marked = append(s.marked, paymentCall{bookingID, paid, paymentID})
	return nil
}

type ledgerRows struct {
	schedulerRepo.SchedulerRepository
	entries map[string]*models.PaymentLedgerEntry
	orders  map[string]string
}

func (l *ledgerRows) GetLedgerEntry(_ context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	e, ok := l.entries[bookingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return e, nil
}

func (l *ledgerRows) SetGatewayOrder(_ context.Context, bookingID, orderID string) error {
	l.orders[bookingID] = orderID
	return nil
}

var payer = &models.Principal{UserID: "student-1", Role: models.RoleStudent, Email: "s1@example.com"}

func newPaymentService(b *models.Booking) (*DefaultPaymentService, *fakeGateway, *stubBookings, *ledgerRows) {
	gw := &fakeGateway{}
	bookings := &stubBookings{booking: b}
	rows := &ledgerRows{
		entries: map[string]*models.PaymentLedgerEntry{
			"b1": {BookingID: "b1", Currency: utils.CurrencyINR, FeeBreakdown: models.FeeBreakdown{SessionAmount: 600, StudentPlatformFee: 30, ChargeAmount: 630}},
		},
		orders: map[string]string{},
	}
	return &DefaultPaymentService{Gateway: gw, Bookings: bookings, Scheduler: rows, Logger: zap.NewNop()}, gw, bookings, rows
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:            "b1",
		StudentID:     "student-1",
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
		Participants:  models.Participants{StudentEmail: "s1@example.com"},
	}
}

func TestCreateOrderChargesLedgerAmount(t *testing.T) {
	svc, gw, _, rows := newPaymentService(pendingBooking())

	order, err := svc.CreateOrder(context.Background(), payer, "b1")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Amount != 630 || order.Currency != utils.CurrencyINR || order.OrderID != "pi_b1" {
		t.Fatalf("unexpected order %+v", order)
	}
	if len(gw.orders) != 1 || gw.orders[0].Email != "s1@example.com" {
		t.Fatalf("unexpected gateway calls %+v", gw.orders)
	}
	if rows.orders["b1"] != "pi_b1" {
		t.Fatalf("gateway order was not recorded")
	}
}

func TestCreateOrderRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *models.Booking)
		who    *models.Principal
		id     string
		kind   utils.ErrorKind
	}{
		{"tutor cannot pay", nil, &models.Principal{UserID: "tutor-user", Role: models.RoleTutor}, "b1", utils.KindUnauthorized},
		{"cancelled booking", func(b *models.Booking) { b.Status = models.BookingCancelled }, payer, "b1", utils.KindInvalidTransition},
		{"completed booking", func(b *models.Booking) { b.Status = models.BookingCompleted }, payer, "b1", utils.KindInvalidTransition},
		{"already paid", func(b *models.Booking) { b.PaymentStatus = models.PaymentPaid }, payer, "b1", utils.KindValidation},
		{"unknown booking", nil, payer, "b2", utils.KindNotFound},
		{"no ledger entry", func(b *models.Booking) { b.ID = "b3" }, payer, "b3", utils.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pendingBooking()
			if tt.mutate != nil {
				tt.mutate(b)
			}
			svc, gw, _, _ := newPaymentService(b)
			_, err := svc.CreateOrder(context.Background(), tt.who, tt.id)
			if !utils.IsKind(err, tt.kind) {
				t.Fatalf("expected %s error, got %v", tt.kind, err)
			}
			if len(gw.orders) != 0 {
				t.Fatalf("gateway should not be called")
			}
		})
	}
}

func TestHandleWebhookRouting(t *testing.T) {
	tests := []struct {
		name    string
		result  *WebhookResult
		hookErr error
		kind    utils.ErrorKind
		want    []paymentCall
	}{
		{"paid", &WebhookResult{Relevant: true, BookingID: "b1", PaymentID: "pi_1", Paid: true}, nil, "", []paymentCall{{"b1", true, "pi_1"}}},
		{"failed", &WebhookResult{Relevant: true, BookingID: "b1", PaymentID: "pi_1"}, nil, "", []paymentCall{{"b1", false, "pi_1"}}},
		{"irrelevant event", &WebhookResult{}, nil, "", nil},
		{"bad signature", nil, errors.New("signature mismatch"), utils.KindValidation, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw, bookings, _ := newPaymentService(pendingBooking())
			gw.result, gw.hookErr = tt.result, tt.hookErr

			err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
			if tt.kind != "" {
				if !utils.IsKind(err, tt.kind) {
					t.Fatalf("expected %s error, got %v", tt.kind, err)
				}
			} else if err != nil {
				t.Fatalf("HandleWebhook: %v", err)
			}
			if fmt.Sprint(bookings.marked) != fmt.Sprint(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, bookings.marked)
			}
		})
	}
}

func stripeEvent(eventType, bookingID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "type": %q,
  "api_version": %q,
  "data": {"object": {"id": "pi_1", "object": "payment_intent", "metadata": {"booking_id": %q}}}
}`, eventType, stripe.APIVersion, bookingID))
}

func TestStripeGatewayParseWebhook(t *testing.T) {
	const secret = "whsec_test"
	gw := &StripeGateway{WebhookSecret: secret}

	tests := []struct {
		name      string
		eventType string
		bookingID string
		want      WebhookResult
	}{
		{"succeeded", "payment_intent.succeeded", "b1", WebhookResult{Relevant: true, BookingID: "b1", PaymentID: "pi_1", Paid: true}},
		{"failed", "payment_intent.payment_failed", "b1", WebhookResult{Relevant: true, BookingID: "b1", PaymentID: "pi_1"}},
		{"other event", "customer.created", "b1", WebhookResult{}},
		{"no booking metadata", "payment_intent.succeeded", "", WebhookResult{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: stripeEvent(tt.eventType, tt.bookingID), Secret: secret})
			res, err := gw.ParseWebhook(signed.Payload, signed.Header)
			if err != nil {
				t.Fatalf("ParseWebhook: %v", err)
			}
			if *res != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, *res)
			}
		})
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: stripeEvent("payment_intent.succeeded", "b1"), Secret: "whsec_other"})
	if _, err := gw.ParseWebhook(signed.Payload, signed.Header); err == nil {
		t.Fatalf("expected a signature error")
	}
}
