package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tutorbook/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"
)

const metadataBookingID = "booking_id"

type OrderRequest struct {
	BookingID string
	Amount    float64
	Currency  string
	Email     string
}

type Order struct {
	ID           string
	ClientSecret string
}

// WebhookResult is the part of a gateway event the booking flow cares about.
// Relevant is false for events that carry no payment outcome.
type WebhookResult struct {
	Relevant  bool
	BookingID string
	PaymentID string
	Paid      bool
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	ParseWebhook(payload []byte, signature string) (*WebhookResult, error)
}

// StripeGateway uses PaymentIntents. The package-level stripe.Key is set in main.
type StripeGateway struct {
	WebhookSecret string
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if stripe.Key == "" {
		return nil, errors.New("stripe is not configured")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(utils.MinorUnits(req.Amount)),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata(metadataBookingID, req.BookingID)
	// One intent per booking, however often the student retries checkout.
	params.SetIdempotencyKey("booking-" + req.BookingID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return &Order{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	var paid bool
	switch event.Type {
	case "payment_intent.succeeded":
		paid = true
	case "payment_intent.payment_failed", "payment_intent.canceled":
		paid = false
	default:
		return &WebhookResult{}, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	bookingID := pi.Metadata[metadataBookingID]
	if bookingID == "" {
		return &WebhookResult{}, nil
	}
	return &WebhookResult{Relevant: true, BookingID: bookingID, PaymentID: pi.ID, Paid: paid}, nil
}
