package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// SealToken converts an OAuth token into its stored form.
func SealToken(sealer *utils.Sealer, tok *oauth2.Token, scopes []string, now time.Time) (models.CalendarCredential, error) {
	access, err := sealer.Seal(tok.AccessToken)
	if err != nil {
		return models.CalendarCredential{}, err
	}
	refresh, err := sealer.Seal(tok.RefreshToken)
	if err != nil {
		return models.CalendarCredential{}, err
	}
	return models.CalendarCredential{
		Connected:    true,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
		Scopes:       scopes,
		UpdatedAt:    now,
	}, nil
}

func openToken(sealer *utils.Sealer, cred *models.CalendarCredential) (*oauth2.Token, error) {
	access, err := sealer.Open(cred.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := sealer.Open(cred.RefreshToken)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    cred.TokenType,
		Expiry:       cred.Expiry,
	}, nil
}

type cachedToken struct {
	sealedAccess string
	expiry       time.Time
	token        oauth2.Token
}

// tokenCache avoids reopening sealed tokens on every call. An entry is used
// only while it still matches the persisted sealed token and expiry.
type tokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
}

func (c *tokenCache) get(tutorID string, cred *models.CalendarCredential) (*oauth2.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tutorID]
	if !ok || e.sealedAccess != cred.AccessToken || !e.expiry.Equal(cred.Expiry) {
		return nil, false
	}
	tok := e.token
	return &tok, true
}

func (c *tokenCache) put(tutorID string, cred *models.CalendarCredential, tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]cachedToken)
	}
	c.entries[tutorID] = cachedToken{sealedAccess: cred.AccessToken, expiry: cred.Expiry, token: *tok}
}

// token loads a usable access token for the tutor, refreshing and persisting
// it first when it has expired.
func (p *DefaultProvisioner) token(ctx context.Context, tutorID string) (*oauth2.Token, error) {
	cred, err := p.Credentials.GetCalendarCredential(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar credential: %w", err)
	}
	if !cred.Connected || (cred.AccessToken == "" && cred.RefreshToken == "") {
		return nil, ErrNotConnected
	}

	tok, ok := p.cache.get(tutorID, cred)
	if !ok {
		tok, err = openToken(p.Sealer, cred)
		if err != nil {
			return nil, fmt.Errorf("failed to open calendar credential: %w", err)
		}
		p.cache.put(tutorID, cred, tok)
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, fmt.Errorf("calendar token expired and no refresh token: %w", ErrNotConnected)
	}

	var fresh *oauth2.Token
	err = p.call(ctx, "refresh_token", func(ctx context.Context) error {
		var callErr error
		fresh, callErr = p.API.RefreshToken(ctx, tok)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("calendar token refresh failed: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}

	sealed, err := SealToken(p.Sealer, fresh, cred.Scopes, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to seal refreshed token: %w", err)
	}
	sealed.Email = cred.Email
	if err := p.Credentials.SaveCalendarCredential(ctx, tutorID, sealed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	p.cache.put(tutorID, &sealed, fresh)
	p.Logger.Info("calendar token refreshed", zap.String("tutorID", tutorID), zap.Time("expiry", fresh.Expiry))
	return fresh, nil
}
