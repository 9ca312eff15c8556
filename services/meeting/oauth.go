package meeting

import (
	"context"
	"fmt"
	"time"

	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const connectStatePurpose = "calendar-connect"

// Connector runs the OAuth consent flow that links a tutor's calendar.
type Connector struct {
	OAuth       *oauth2.Config
	Credentials CredentialStore
	Sealer      *utils.Sealer
	Logger      *zap.Logger
	// Clear removes a stored credential.
	Clear func(ctx context.Context, tutorID string) error
}

func (c *Connector) ConnectURL(tutorID string) (string, error) {
	state, err := utils.GenerateStateToken(tutorID, connectStatePurpose, 10*time.Minute)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return c.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// CompleteConnect exchanges the authorization code and stores the sealed
// credential. It returns the tutor the state was issued for.
func (c *Connector) CompleteConnect(ctx context.Context, state, code string) (string, error) {
	tutorID, err := utils.ParseStateToken(state, connectStatePurpose)
	if err != nil {
		return "", utils.ValidationError("invalid or expired state")
	}
	if code == "" {
		return "", utils.ValidationError("authorization code is required")
	}

	tok, err := c.OAuth.Exchange(ctx, code)
	if err != nil {
		c.Logger.Warn("calendar code exchange failed", zap.String("tutorID", tutorID), zap.Error(err))
		return "", utils.ValidationError("authorization code was rejected")
	}
	if tok.RefreshToken == "" {
		c.Logger.Warn("calendar grant has no refresh token", zap.String("tutorID", tutorID))
	}

	cred, err := SealToken(c.Sealer, tok, c.OAuth.Scopes, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if err := c.Credentials.SaveCalendarCredential(ctx, tutorID, cred); err != nil {
		return "", fmt.Errorf("failed to save calendar credential: %w", err)
	}
	c.Logger.Info("calendar connected", zap.String("tutorID", tutorID))
	return tutorID, nil
}

func (c *Connector) Disconnect(ctx context.Context, tutorID string) error {
	if err := c.Clear(ctx, tutorID); err != nil {
		return fmt.Errorf("failed to clear calendar credential: %w", err)
	}
	c.Logger.Info("calendar disconnected", zap.String("tutorID", tutorID))
	return nil
}

// Status reports whether a tutor has a usable calendar connection.
func (c *Connector) Status(ctx context.Context, tutorID string) (*models.CalendarCredential, error) {
	return c.Credentials.GetCalendarCredential(ctx, tutorID)
}
