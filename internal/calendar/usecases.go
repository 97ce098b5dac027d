package calendar

import (
	"context"
	"time"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

// List limits.
const (
	DefaultMaxResults = 10
	MaxResultsLimit   = 250
)

// Service holds the calendar use cases for both providers. Either manager
// may be nil when the provider is not configured.
type Service struct {
	google *accounts.Manager[API]
	apple  *accounts.Manager[API]
	now    func() time.Time
}

// NewService returns the use cases over the google and apple account
// managers.
func NewService(google, apple *accounts.Manager[API]) *Service {
	return &Service{google: google, apple: apple, now: time.Now}
}

// Accounts returns the account manager of provider p, or nil.
func (s *Service) Accounts(p Provider) *accounts.Manager[API] {
	switch p {
	case ProviderGoogle:
		return s.google
	case ProviderApple:
		return s.apple
	}
	return nil
}

func (s *Service) resolve(ctx context.Context, p Provider, account string) (API, error) {
	if p == "" {
		p = ProviderGoogle
	}
	m := s.Accounts(p)
	if m == nil {
		return nil, connector.Invalidf("calendar provider %q is not configured", p)
	}
	return m.Resolve(ctx, account)
}

// Target addresses a provider account and calendar.
type Target struct {
	Provider   Provider
	Account    string
	CalendarID string
}

// EventResponse carries a created, fetched or updated event.
type EventResponse struct {
	EventID  string `json:"event_id"`
	HTMLLink string `json:"html_link,omitempty"`
	Event    *Event `json:"event"`
}

func eventResponse(ev *Event) EventResponse {
	return EventResponse{EventID: ev.ID, HTMLLink: ev.HTMLLink, Event: ev}
}

// CreateEventRequest is the input of CreateEvent.
type CreateEventRequest struct {
	Target
	Draft EventDraft
}

// CreateEvent creates an event in the target calendar.
func (s *Service) CreateEvent(ctx context.Context, req CreateEventRequest) connector.Result[EventResponse] {
	return connector.Run("create calendar event", func() (EventResponse, error) {
		if err := ValidateDraft(req.Draft); err != nil {
			return EventResponse{}, err
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return EventResponse{}, err
		}
		ev, err := c.CreateEvent(ctx, req.CalendarID, req.Draft)
		if err != nil {
			return EventResponse{}, err
		}
		return eventResponse(ev), nil
	})
}

// EventRequest addresses one event.
type EventRequest struct {
	Target
	EventID string
}

// GetEvent fetches one event.
func (s *Service) GetEvent(ctx context.Context, req EventRequest) connector.Result[EventResponse] {
	return connector.Run("get calendar event", func() (EventResponse, error) {
		if req.EventID == "" {
			return EventResponse{}, connector.Required("event_id")
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return EventResponse{}, err
		}
		ev, err := c.GetEvent(ctx, req.CalendarID, req.EventID)
		if err != nil {
			return EventResponse{}, err
		}
		return eventResponse(ev), nil
	})
}

// UpdateEventRequest is the input of UpdateEvent. Zero draft fields are
// left unchanged.
type UpdateEventRequest struct {
	Target
	EventID string
	Draft   EventDraft
}

// UpdateEvent changes the set fields of an event.
func (s *Service) UpdateEvent(ctx context.Context, req UpdateEventRequest) connector.Result[EventResponse] {
	return connector.Run("update calendar event", func() (EventResponse, error) {
		if req.EventID == "" {
			return EventResponse{}, connector.Required("event_id")
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return EventResponse{}, err
		}
		ev, err := c.UpdateEvent(ctx, req.CalendarID, req.EventID, req.Draft)
		if err != nil {
			return EventResponse{}, err
		}
		return eventResponse(ev), nil
	})
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	EventID string `json:"event_id"`
	Deleted bool   `json:"deleted"`
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, req EventRequest) connector.Result[DeleteResponse] {
	return connector.Run("delete calendar event", func() (DeleteResponse, error) {
		if req.EventID == "" {
			return DeleteResponse{}, connector.Required("event_id")
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return DeleteResponse{}, err
		}
		if err := c.DeleteEvent(ctx, req.CalendarID, req.EventID); err != nil {
			return DeleteResponse{}, err
		}
		return DeleteResponse{EventID: req.EventID, Deleted: true}, nil
	})
}

// ListEventsRequest is the input of ListEvents.
type ListEventsRequest struct {
	Provider Provider
	Account  string
	Criteria Criteria
}

// EventSummary is the short form of an event returned by listings.
type EventSummary struct {
	ID             string `json:"id"`
	Summary        string `json:"summary"`
	Start          string `json:"start"`
	End            string `json:"end"`
	AllDay         bool   `json:"all_day,omitempty"`
	Location       string `json:"location,omitempty"`
	AttendeesCount int    `json:"attendees_count"`
	IsRecurring    bool   `json:"is_recurring"`
	HTMLLink       string `json:"html_link,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Summarize shortens e.
func (e *Event) Summarize() EventSummary {
	return EventSummary{
		ID:             e.ID,
		Summary:        e.Summary,
		Start:          e.Start.String(),
		End:            e.End.String(),
		AllDay:         e.Start.AllDay(),
		Location:       e.Location,
		AttendeesCount: len(e.Attendees),
		IsRecurring:    e.IsRecurring(),
		HTMLLink:       e.HTMLLink,
		Status:         e.Status,
	}
}

// ListEventsResponse is one page of events.
type ListEventsResponse struct {
	Events        []EventSummary `json:"events"`
	Count         int            `json:"count"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

// ListEvents lists one page of events. Recurring events are expanded when
// Single is set, which also orders them by start time.
func (s *Service) ListEvents(ctx context.Context, req ListEventsRequest) connector.Result[ListEventsResponse] {
	return connector.Run("list calendar events", func() (ListEventsResponse, error) {
		cr := req.Criteria
		if !cr.TimeMin.IsZero() && !cr.TimeMax.IsZero() && cr.TimeMax.Before(cr.TimeMin) {
			return ListEventsResponse{}, connector.Invalidf("time_max is before time_min")
		}
		cr.MaxResults = clampMaxResults(cr.MaxResults)
		if cr.OrderBy == "" && cr.Single {
			cr.OrderBy = "startTime"
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return ListEventsResponse{}, err
		}
		page, err := c.ListEvents(ctx, cr)
		if err != nil {
			return ListEventsResponse{}, err
		}
		out := ListEventsResponse{Events: make([]EventSummary, 0, len(page.Events)), NextPageToken: page.NextPageToken}
		for i := range page.Events {
			out.Events = append(out.Events, page.Events[i].Summarize())
		}
		out.Count = len(out.Events)
		return out, nil
	})
}

func clampMaxResults(n int64) int64 {
	switch {
	case n <= 0:
		return DefaultMaxResults
	case n > MaxResultsLimit:
		return MaxResultsLimit
	}
	return n
}

// ListCalendarsRequest is the input of ListCalendars.
type ListCalendarsRequest struct {
	Provider Provider
	Account  string
}

// ListCalendarsResponse lists the calendars of an account.
type ListCalendarsResponse struct {
	Calendars []Calendar `json:"calendars"`
	Count     int        `json:"count"`
}

// ListCalendars lists the calendars of an account.
func (s *Service) ListCalendars(ctx context.Context, req ListCalendarsRequest) connector.Result[ListCalendarsResponse] {
	return connector.Run("list calendars", func() (ListCalendarsResponse, error) {
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return ListCalendarsResponse{}, err
		}
		cals, err := c.ListCalendars(ctx)
		if err != nil {
			return ListCalendarsResponse{}, err
		}
		if cals == nil {
			cals = []Calendar{}
		}
		return ListCalendarsResponse{Calendars: cals, Count: len(cals)}, nil
	})
}

// FreeBusyRequest is the input of QueryFreeBusy. An empty CalendarIDs
// queries the primary calendar.
type FreeBusyRequest struct {
	Provider    Provider
	Account     string
	TimeMin     time.Time
	TimeMax     time.Time
	CalendarIDs []string
}

// FreeBusyResponse lists busy intervals per calendar.
type FreeBusyResponse struct {
	TimeMin   time.Time  `json:"time_min"`
	TimeMax   time.Time  `json:"time_max"`
	Calendars []FreeBusy `json:"calendars"`
}

// QueryFreeBusy reports busy intervals. Only providers implementing
// FreeBusyAPI support it.
func (s *Service) QueryFreeBusy(ctx context.Context, req FreeBusyRequest) connector.Result[FreeBusyResponse] {
	return connector.Run("query free/busy", func() (FreeBusyResponse, error) {
		if req.TimeMin.IsZero() {
			req.TimeMin = s.now()
		}
		if req.TimeMax.IsZero() {
			req.TimeMax = req.TimeMin.Add(24 * time.Hour)
		}
		if !req.TimeMax.After(req.TimeMin) {
			return FreeBusyResponse{}, connector.Invalidf("time_max must be after time_min")
		}
		ids := req.CalendarIDs
		if len(ids) == 0 {
			ids = []string{PrimaryCalendar}
		}
		c, err := s.resolve(ctx, req.Provider, req.Account)
		if err != nil {
			return FreeBusyResponse{}, err
		}
		fb, ok := c.(FreeBusyAPI)
		if !ok {
			return FreeBusyResponse{}, connector.Invalidf("free/busy queries are not supported by the %s provider", providerName(req.Provider))
		}
		cals, err := fb.QueryFreeBusy(ctx, req.TimeMin, req.TimeMax, ids)
		if err != nil {
			return FreeBusyResponse{}, err
		}
		return FreeBusyResponse{TimeMin: req.TimeMin, TimeMax: req.TimeMax, Calendars: cals}, nil
	})
}

func providerName(p Provider) Provider {
	if p == "" {
		return ProviderGoogle
	}
	return p
}
