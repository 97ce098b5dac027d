package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/connectorhub/internal/connector"
)

// Scopes requested for Google Calendar accounts.
var Scopes = []string{gcal.CalendarScope}

// Client is the Google Calendar API of one account.
type Client struct {
	account string
	svc     *gcal.Service
	caller  *connector.Caller
	// newRequestID names conference creation requests.
	newRequestID func() string
}

var (
	_ API         = (*Client)(nil)
	_ FreeBusyAPI = (*Client)(nil)
)

// NewClient creates a client for account. opts carry the authenticated HTTP
// client and, in tests, the endpoint.
func NewClient(ctx context.Context, account string, caller *connector.Caller, opts ...option.ClientOption) (*Client, error) {
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{account: account, svc: svc, caller: caller, newRequestID: uuid.NewString}, nil
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

func calendarOrPrimary(id string) string {
	if id == "" {
		return PrimaryCalendar
	}
	return id
}

func (c *Client) ListCalendars(ctx context.Context) ([]Calendar, error) {
	list, err := connector.Call(ctx, c.caller, "calendarList.list", func(ctx context.Context) (*gcal.CalendarList, error) {
		return c.svc.CalendarList.List().Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	out := make([]Calendar, 0, len(list.Items))
	for _, item := range list.Items {
		cal, err := ToCalendar(item)
		if err != nil {
			return nil, err
		}
		out = append(out, cal)
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarID string, draft EventDraft) (*Event, error) {
	calendarID = calendarOrPrimary(calendarID)
	ev, err := FromDraft(draft)
	if err != nil {
		return nil, err
	}
	created, err := connector.Call(ctx, c.caller, "events.insert", func(ctx context.Context) (*gcal.Event, error) {
		call := c.svc.Events.Insert(calendarID, ev)
		if draft.AddConference {
			c.requestConference(ev)
			call = call.ConferenceDataVersion(1)
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return ToEvent(calendarID, created)
}

func (c *Client) requestConference(ev *gcal.Event) {
	if ev.ConferenceData != nil {
		return
	}
	ev.ConferenceData = &gcal.ConferenceData{
		CreateRequest: &gcal.CreateConferenceRequest{
			RequestId:             c.newRequestID(),
			ConferenceSolutionKey: &gcal.ConferenceSolutionKey{Type: "hangoutsMeet"},
		},
	}
}

func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	calendarID = calendarOrPrimary(calendarID)
	ev, err := connector.Call(ctx, c.caller, "events.get", func(ctx context.Context) (*gcal.Event, error) {
		return c.svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return ToEvent(calendarID, ev)
}

// UpdateEvent patches the set fields of draft onto the event.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, draft EventDraft) (*Event, error) {
	calendarID = calendarOrPrimary(calendarID)
	if !draft.Start.IsZero() && !draft.End.IsZero() {
		if err := validateRange(draft.Start, draft.End); err != nil {
			return nil, err
		}
	}
	patch := ToPatch(draft)
	updated, err := connector.Call(ctx, c.caller, "events.patch", func(ctx context.Context) (*gcal.Event, error) {
		call := c.svc.Events.Patch(calendarID, eventID, patch)
		if draft.AddConference {
			c.requestConference(patch)
			call = call.ConferenceDataVersion(1)
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return ToEvent(calendarID, updated)
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	calendarID = calendarOrPrimary(calendarID)
	return connector.Exec(ctx, c.caller, "events.delete", func(ctx context.Context) error {
		return c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
	})
}

// ListEvents returns one page of events.
func (c *Client) ListEvents(ctx context.Context, cr Criteria) (*EventPage, error) {
	calendarID := calendarOrPrimary(cr.CalendarID)
	res, err := connector.Call(ctx, c.caller, "events.list", func(ctx context.Context) (*gcal.Events, error) {
		call := c.svc.Events.List(calendarID).SingleEvents(cr.Single).ShowDeleted(cr.ShowDeleted)
		if !cr.TimeMin.IsZero() {
			call = call.TimeMin(cr.TimeMin.Format(time.RFC3339))
		}
		if !cr.TimeMax.IsZero() {
			call = call.TimeMax(cr.TimeMax.Format(time.RFC3339))
		}
		if cr.Query != "" {
			call = call.Q(cr.Query)
		}
		if cr.MaxResults > 0 {
			call = call.MaxResults(cr.MaxResults)
		}
		if cr.OrderBy != "" {
			call = call.OrderBy(cr.OrderBy)
		}
		if cr.PageToken != "" {
			call = call.PageToken(cr.PageToken)
		}
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	page := &EventPage{Events: make([]Event, 0, len(res.Items)), NextPageToken: res.NextPageToken}
	for _, item := range res.Items {
		ev, err := ToEvent(calendarID, item)
		if err != nil {
			return nil, err
		}
		page.Events = append(page.Events, *ev)
	}
	return page, nil
}

func (c *Client) QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusy, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
	}
	for _, id := range calendarIDs {
		req.Items = append(req.Items, &gcal.FreeBusyRequestItem{Id: id})
	}
	res, err := connector.Call(ctx, c.caller, "freebusy.query", func(ctx context.Context) (*gcal.FreeBusyResponse, error) {
		return c.svc.Freebusy.Query(req).Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return ToFreeBusy(calendarIDs, res)
}
