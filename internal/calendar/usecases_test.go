package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/connectorhub/internal/accounts"
	"github.com/teemow/connectorhub/internal/connector"
)

type fakeCalendar struct {
	provider Provider
	events   map[string]*Event
	criteria Criteria
	deleted  []string
}

func newFakeCalendar(p Provider) *fakeCalendar {
	return &fakeCalendar{provider: p, events: map[string]*Event{}}
}

func (f *fakeCalendar) ListCalendars(context.Context) ([]Calendar, error) {
	return []Calendar{{ID: "primary", Summary: string(f.provider), Provider: f.provider, Primary: true}}, nil
}

func (f *fakeCalendar) CreateEvent(_ context.Context, calendarID string, d EventDraft) (*Event, error) {
	ev := &Event{ID: "new", CalendarID: calendarID, Provider: f.provider, Summary: d.Summary, Start: d.Start, End: d.End, HTMLLink: "link"}
	f.events[ev.ID] = ev
	return ev, nil
}

func (f *fakeCalendar) GetEvent(_ context.Context, _, id string) (*Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, connector.NewNotFoundError("event "+id, nil)
	}
	return ev, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, cal, id string, d EventDraft) (*Event, error) {
	ev, err := f.GetEvent(ctx, cal, id)
	if err != nil {
		return nil, err
	}
	if d.Summary != "" {
		ev.Summary = d.Summary
	}
	return ev, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, _, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCalendar) ListEvents(_ context.Context, c Criteria) (*EventPage, error) {
	f.criteria = c
	return &EventPage{Events: []Event{
		{ID: "a", Summary: "A", Start: OnDate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)), Recurrence: []string{"RRULE:FREQ=YEARLY"}},
		{ID: "b", Summary: "B", Attendees: []Attendee{{Email: "x@example.com"}}},
	}, NextPageToken: "next"}, nil
}

type fakeGoogle struct {
	*fakeCalendar
	fbIDs []string
}

func (f *fakeGoogle) QueryFreeBusy(_ context.Context, _, _ time.Time, ids []string) ([]FreeBusy, error) {
	f.fbIDs = ids
	return []FreeBusy{{CalendarID: ids[0], Busy: []TimeRange{}}}, nil
}

func managerFor(t *testing.T, service string, api API) *accounts.Manager[API] {
	t.Helper()
	m := accounts.NewManager[API](service, func(context.Context, string) (API, error) { return api, nil })
	_, err := m.Register(context.Background(), "me@example.com")
	require.NoError(t, err)
	return m
}

func newTestService(t *testing.T) (*Service, *fakeGoogle, *fakeCalendar) {
	g := &fakeGoogle{fakeCalendar: newFakeCalendar(ProviderGoogle)}
	a := newFakeCalendar(ProviderApple)
	s := NewService(managerFor(t, "calendar", g), managerFor(t, "caldav", a))
	s.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return s, g, a
}

func validDraft() EventDraft {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return EventDraft{Summary: "Meet", Start: At(start), End: At(start.Add(time.Hour))}
}

func TestCreateEventRoutesByProvider(t *testing.T) {
	s, g, a := newTestService(t)
	ctx := context.Background()

	res := s.CreateEvent(ctx, CreateEventRequest{Draft: validDraft()})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "new", res.Value.EventID)
	assert.Equal(t, "link", res.Value.HTMLLink)
	assert.Contains(t, g.events, "new")
	assert.Empty(t, a.events)

	res = s.CreateEvent(ctx, CreateEventRequest{Target: Target{Provider: ProviderApple}, Draft: validDraft()})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, ProviderApple, res.Value.Event.Provider)
}

func TestCreateEventValidation(t *testing.T) {
	s, g, _ := newTestService(t)
	res := s.CreateEvent(context.Background(), CreateEventRequest{Draft: EventDraft{Summary: "no times"}})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "create calendar event failed: malformed request: start is required")
	assert.Empty(t, g.events)
}

func TestUnconfiguredProvider(t *testing.T) {
	s := NewService(managerFor(t, "calendar", newFakeCalendar(ProviderGoogle)), nil)
	res := s.ListCalendars(context.Background(), ListCalendarsRequest{Provider: ProviderApple})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `calendar provider "apple" is not configured`)
}

func TestGetUpdateDeleteEvent(t *testing.T) {
	s, g, _ := newTestService(t)
	ctx := context.Background()
	g.events["e1"] = &Event{ID: "e1", Summary: "Old"}

	got := s.GetEvent(ctx, EventRequest{EventID: "e1"})
	require.True(t, got.Success, got.Error)
	assert.Equal(t, "Old", got.Value.Event.Summary)

	missing := s.GetEvent(ctx, EventRequest{EventID: "nope"})
	assert.False(t, missing.Success)
	assert.Contains(t, missing.Error, "not found")

	upd := s.UpdateEvent(ctx, UpdateEventRequest{EventID: "e1", Draft: EventDraft{Summary: "New"}})
	require.True(t, upd.Success, upd.Error)
	assert.Equal(t, "New", upd.Value.Event.Summary)

	del := s.DeleteEvent(ctx, EventRequest{EventID: "e1"})
	require.True(t, del.Success, del.Error)
	assert.True(t, del.Value.Deleted)
	assert.Equal(t, []string{"e1"}, g.deleted)

	noID := s.DeleteEvent(ctx, EventRequest{})
	assert.False(t, noID.Success)
	assert.Contains(t, noID.Error, "event_id is required")
}

func TestListEvents(t *testing.T) {
	s, g, _ := newTestService(t)

	res := s.ListEvents(context.Background(), ListEventsRequest{Criteria: Criteria{Single: true, MaxResults: 9999}})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Value.Count)
	assert.Equal(t, "next", res.Value.NextPageToken)
	assert.Equal(t, "2026-01-01", res.Value.Events[0].Start)
	assert.True(t, res.Value.Events[0].AllDay)
	assert.True(t, res.Value.Events[0].IsRecurring)
	assert.Equal(t, 1, res.Value.Events[1].AttendeesCount)

	assert.EqualValues(t, MaxResultsLimit, g.criteria.MaxResults)
	assert.Equal(t, "startTime", g.criteria.OrderBy)

	bad := s.ListEvents(context.Background(), ListEventsRequest{Criteria: Criteria{
		TimeMin: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		TimeMax: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}})
	assert.False(t, bad.Success)
}

func TestQueryFreeBusy(t *testing.T) {
	s, g, _ := newTestService(t)
	ctx := context.Background()

	res := s.QueryFreeBusy(ctx, FreeBusyRequest{})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{PrimaryCalendar}, g.fbIDs)
	assert.Equal(t, 24*time.Hour, res.Value.TimeMax.Sub(res.Value.TimeMin))

	apple := s.QueryFreeBusy(ctx, FreeBusyRequest{Provider: ProviderApple})
	assert.False(t, apple.Success)
	assert.Contains(t, apple.Error, "not supported by the apple provider")
}

func TestParseProvider(t *testing.T) {
	p, ok := ParseProvider("")
	assert.True(t, ok)
	assert.Equal(t, ProviderGoogle, p)
	p, ok = ParseProvider(" Apple ")
	assert.True(t, ok)
	assert.Equal(t, ProviderApple, p)
	_, ok = ParseProvider("outlook")
	assert.False(t, ok)
}
