package meeting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// CalendarScopes is what the connect flow asks the tutor to grant.
var CalendarScopes = []string{calendar.CalendarEventsScope}

// NewOAuthConfig builds the Google OAuth client used for connect and refresh.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       CalendarScopes,
	}
}

// GoogleCalendarAPI creates Google Calendar events with Meet conferences.
type GoogleCalendarAPI struct {
	OAuth *oauth2.Config
	// Options are appended to every client, e.g. an endpoint override.
	Options []option.ClientOption
}

func (g *GoogleCalendarAPI) service(ctx context.Context, tok *oauth2.Token) (*calendar.Service, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(oauth2.StaticTokenSource(tok))}, g.Options...)
	return calendar.NewService(ctx, opts...)
}

// hasStatus reports whether err is a Google API error with one of codes.
func hasStatus(err error, codes ...int) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	for _, c := range codes {
		if gErr.Code == c {
			return true
		}
	}
	return false
}

func (g *GoogleCalendarAPI) CreateEvent(ctx context.Context, tok *oauth2.Token, req EventRequest) (*Artifact, error) {
	svc, err := g.service(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}
	event := &calendar.Event{
		Id:          req.EventID,
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: req.Timezone},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339), TimeZone: req.Timezone},
		Attendees:   attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := svc.Events.Insert(primaryCalendar, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		// A retried insert whose first attempt landed; use what exists.
		if req.EventID != "" && hasStatus(err, http.StatusConflict) {
			existing, getErr := svc.Events.Get(primaryCalendar, req.EventID).Context(ctx).Do()
			if getErr != nil {
				return nil, fmt.Errorf("event exists but could not be loaded: %w", getErr)
			}
			return toArtifact(existing), nil
		}
		return nil, err
	}
	return toArtifact(created), nil
}

func (g *GoogleCalendarAPI) AddAttendee(ctx context.Context, tok *oauth2.Token, eventID, email string) (*Artifact, error) {
	svc, err := g.service(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	event, err := svc.Events.Get(primaryCalendar, eventID).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range event.Attendees {
		if strings.EqualFold(a.Email, email) {
			return toArtifact(event), nil
		}
	}
	attendees := append(event.Attendees, &calendar.EventAttendee{Email: email})

	updated, err := svc.Events.Patch(primaryCalendar, eventID, &calendar.Event{Attendees: attendees}).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return toArtifact(updated), nil
}

func (g *GoogleCalendarAPI) DeleteEvent(ctx context.Context, tok *oauth2.Token, eventID string) error {
	svc, err := g.service(ctx, tok)
	if err != nil {
		return fmt.Errorf("failed to create calendar client: %w", err)
	}
	err = svc.Events.Delete(primaryCalendar, eventID).SendUpdates("all").Context(ctx).Do()
	if hasStatus(err, http.StatusNotFound, http.StatusGone) {
		return nil
	}
	return err
}

func (g *GoogleCalendarAPI) RefreshToken(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	if g.OAuth == nil {
		return nil, errors.New("oauth client is not configured")
	}
	// Dropping the access token forces the source to hit the token endpoint.
	return g.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: tok.RefreshToken}).Token()
}

func toArtifact(ev *calendar.Event) *Artifact {
	art := &Artifact{ID: ev.Id, JoinLink: ev.HangoutLink}
	if ev.ConferenceData != nil {
		for _, ep := range ev.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				art.JoinLink = ep.Uri
				break
			}
		}
	}
	return art
}
