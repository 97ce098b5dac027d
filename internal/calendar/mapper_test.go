package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/connectorhub/internal/connector"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func TestToEventTimed(t *testing.T) {
	ev, err := ToEvent("primary", &gcal.Event{
		Id:          "ev1",
		Summary:     "Standup",
		Description: "daily",
		Location:    "Room 1",
		Start:       &gcal.EventDateTime{DateTime: "2026-03-02T09:00:00+01:00", TimeZone: "Europe/Berlin"},
		End:         &gcal.EventDateTime{DateTime: "2026-03-02T09:15:00+01:00", TimeZone: "Europe/Berlin"},
		Creator:     &gcal.EventCreator{Email: "creator@example.com"},
		Organizer:   &gcal.EventOrganizer{Email: "org@example.com"},
		Attendees: []*gcal.EventAttendee{
			{Email: "a@example.com", DisplayName: "A", ResponseStatus: "accepted"},
			{Email: "b@example.com", ResponseStatus: "bogus", Optional: true},
		},
		Reminders:  &gcal.EventReminders{Overrides: []*gcal.EventReminder{{Method: "email", Minutes: 10}}},
		Recurrence: []string{"RRULE:FREQ=DAILY"},
		ColorId:    "5",
		Visibility: "private",
		HtmlLink:   "https://calendar.google.com/event?eid=1",
		Created:    "2026-01-01T10:00:00Z",
		Updated:    "2026-01-02T10:00:00Z",
		ConferenceData: &gcal.ConferenceData{EntryPoints: []*gcal.EntryPoint{
			{EntryPointType: "phone", Uri: "tel:+1"},
			{EntryPointType: "video", Uri: "https://meet.google.com/abc"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ev1", ev.ID)
	assert.Equal(t, ProviderGoogle, ev.Provider)
	require.NotNil(t, ev.Start.DateTime)
	assert.True(t, ev.Start.DateTime.Equal(mustTime(t, "2026-03-02T08:00:00Z")))
	assert.Equal(t, "Europe/Berlin", ev.Start.TimeZone)
	assert.False(t, ev.Start.AllDay())
	assert.Equal(t, "creator@example.com", ev.Creator)
	assert.Equal(t, "org@example.com", ev.Organizer)
	require.Len(t, ev.Attendees, 2)
	assert.Equal(t, ResponseAccepted, ev.Attendees[0].ResponseStatus)
	assert.Equal(t, ResponseNeedsAction, ev.Attendees[1].ResponseStatus)
	assert.True(t, ev.Attendees[1].Optional)
	assert.Equal(t, []Reminder{{Method: "email", Minutes: 10}}, ev.Reminders)
	assert.False(t, ev.DefaultReminders)
	assert.True(t, ev.IsRecurring())
	assert.Equal(t, "confirmed", ev.Status)
	assert.Equal(t, "https://meet.google.com/abc", ev.ConferenceLink)
	require.NotNil(t, ev.Created)
	assert.Equal(t, 2026, ev.Created.Year())
}

func TestToEventAllDayAndSparse(t *testing.T) {
	ev, err := ToEvent("cal", &gcal.Event{
		Id:    "ev2",
		Start: &gcal.EventDateTime{Date: "2026-05-01"},
		End:   &gcal.EventDateTime{Date: "2026-05-02"},
	})
	require.NoError(t, err)
	assert.True(t, ev.Start.AllDay())
	assert.Equal(t, "2026-05-01", ev.Start.String())
	assert.Empty(t, ev.Attendees)
	assert.NotNil(t, ev.Attendees)
	assert.Nil(t, ev.Created)

	ev, err = ToEvent("cal", &gcal.Event{Id: "ev3"})
	require.NoError(t, err)
	assert.True(t, ev.Start.IsZero())
}

func TestToEventRequiresID(t *testing.T) {
	_, err := ToEvent("primary", &gcal.Event{Summary: "x"})
	assert.ErrorIs(t, err, connector.ErrMalformedResponse)
	_, err = ToCalendar(&gcal.CalendarListEntry{})
	assert.ErrorIs(t, err, connector.ErrMalformedResponse)
}

func TestToCalendar(t *testing.T) {
	cal, err := ToCalendar(&gcal.CalendarListEntry{Id: "me@example.com", Summary: "Me", Primary: true, BackgroundColor: "#9fe1e7", AccessRole: "owner"})
	require.NoError(t, err)
	assert.Equal(t, Calendar{ID: "me@example.com", Summary: "Me", TimeZone: "UTC", Provider: ProviderGoogle, Primary: true, Color: "#9fe1e7", AccessRole: "owner"}, cal)
}

func TestValidateDraft(t *testing.T) {
	start := mustTime(t, "2026-03-02T09:00:00Z")
	tests := []struct {
		name  string
		draft EventDraft
		want  string
	}{
		{"missing summary", EventDraft{Start: At(start), End: At(start)}, "summary is required"},
		{"missing start", EventDraft{Summary: "x", End: At(start)}, "start is required"},
		{"missing end", EventDraft{Summary: "x", Start: At(start)}, "end is required"},
		{"mixed kinds", EventDraft{Summary: "x", Start: At(start), End: OnDate(start)}, "both be dates"},
		{"end before start", EventDraft{Summary: "x", Start: At(start), End: At(start.Add(-time.Hour))}, "before start"},
		{"bad date", EventDraft{Summary: "x", Start: EventTime{Date: "03/02/2026"}, End: OnDate(start)}, "invalid start date"},
		{"date end before start", EventDraft{Summary: "x", Start: OnDate(start), End: OnDate(start.AddDate(0, 0, -1))}, "before start date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDraft(tt.draft)
			require.Error(t, err)
			assert.ErrorIs(t, err, connector.ErrMalformedRequest)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoError(t, ValidateDraft(EventDraft{Summary: "x", Start: OnDate(start), End: OnDate(start)}))
}

func TestFromDraftDefaults(t *testing.T) {
	start := mustTime(t, "2026-03-02T09:00:00Z")
	ev, err := FromDraft(EventDraft{Summary: "x", Start: At(start), End: At(start.Add(time.Hour))})
	require.NoError(t, err)
	require.NotNil(t, ev.Reminders)
	assert.True(t, ev.Reminders.UseDefault)
	assert.Equal(t, VisibilityDefault, ev.Visibility)
	assert.Equal(t, "2026-03-02T09:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "UTC", ev.Start.TimeZone)
}

func TestToPatchOmitsUnsetFields(t *testing.T) {
	ev := ToPatch(EventDraft{Location: "Elsewhere"})
	assert.Equal(t, "Elsewhere", ev.Location)
	assert.Nil(t, ev.Start)
	assert.Nil(t, ev.End)
	assert.Nil(t, ev.Reminders)
	assert.Empty(t, ev.Summary)
	assert.Empty(t, ev.Visibility)

	raw, err := ev.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"location":"Elsewhere"}`, string(raw))
}

// Every field FromDraft writes is read back by ToEvent.
func TestDraftRoundTrip(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, berlin)

	tests := []struct {
		name  string
		draft EventDraft
	}{
		{
			name: "timed with everything",
			draft: EventDraft{
				Summary:     "Planning",
				Description: "quarterly",
				Location:    "HQ",
				Start:       At(start),
				End:         At(start.Add(90 * time.Minute)),
				Attendees:   []Attendee{{Email: "a@example.com", DisplayName: "Ann"}, {Email: "b@example.com", Optional: true}},
				Reminders:   []Reminder{{Method: "email", Minutes: 60}, {Minutes: 0}},
				Recurrence:  []string{"RRULE:FREQ=WEEKLY;BYDAY=MO"},
				ColorID:     "7",
				Visibility:  VisibilityPrivate,
			},
		},
		{
			name: "all day",
			draft: EventDraft{
				Summary: "Holiday",
				Start:   OnDate(start),
				End:     OnDate(start.AddDate(0, 0, 1)),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := FromDraft(tt.draft)
			require.NoError(t, err)
			wire.Id = "rt"

			ev, err := ToEvent("primary", wire)
			require.NoError(t, err)

			d := tt.draft
			assert.Equal(t, d.Summary, ev.Summary)
			assert.Equal(t, d.Description, ev.Description)
			assert.Equal(t, d.Location, ev.Location)
			assert.Equal(t, d.Start.String(), ev.Start.String())
			assert.Equal(t, d.End.String(), ev.End.String())
			assert.Equal(t, d.Recurrence, ev.Recurrence)
			assert.Equal(t, d.ColorID, ev.ColorID)
			require.Len(t, ev.Attendees, len(d.Attendees))
			for i, a := range d.Attendees {
				assert.Equal(t, a.Email, ev.Attendees[i].Email)
				assert.Equal(t, a.DisplayName, ev.Attendees[i].DisplayName)
				assert.Equal(t, a.Optional, ev.Attendees[i].Optional)
			}
			if len(d.Reminders) == 0 {
				assert.True(t, ev.DefaultReminders)
				assert.Equal(t, VisibilityDefault, ev.Visibility)
				return
			}
			assert.Equal(t, d.Visibility, ev.Visibility)
			assert.False(t, ev.DefaultReminders)
			assert.Equal(t, []Reminder{{Method: "email", Minutes: 60}, {Method: DefaultReminderMethod, Minutes: 0}}, ev.Reminders)
			assert.Equal(t, "Europe/Berlin", ev.Start.TimeZone)
		})
	}
}

func TestToFreeBusy(t *testing.T) {
	res := &gcal.FreeBusyResponse{Calendars: map[string]gcal.FreeBusyCalendar{
		"primary": {Busy: []*gcal.TimePeriod{{Start: "2026-03-02T09:00:00Z", End: "2026-03-02T10:00:00Z"}}},
		"denied":  {Errors: []*gcal.Error{{Reason: "notFound"}}},
	}}
	fb, err := ToFreeBusy([]string{"primary", "denied", "missing"}, res)
	require.NoError(t, err)
	require.Len(t, fb, 3)
	assert.Equal(t, "primary", fb[0].CalendarID)
	require.Len(t, fb[0].Busy, 1)
	assert.Equal(t, time.Hour, fb[0].Busy[0].End.Sub(fb[0].Busy[0].Start))
	assert.Equal(t, []string{"notFound"}, fb[1].Errors)
	assert.Equal(t, []string{"notFound"}, fb[2].Errors)

	_, err = ToFreeBusy([]string{"x"}, &gcal.FreeBusyResponse{Calendars: map[string]gcal.FreeBusyCalendar{
		"x": {Busy: []*gcal.TimePeriod{{Start: "soon", End: "later"}}},
	}})
	assert.ErrorIs(t, err, connector.ErrMalformedResponse)
}
