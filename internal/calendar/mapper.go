package calendar

import (
	"fmt"
	"slices"
	"time"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/teemow/connectorhub/internal/connector"
)

// ValidateDraft checks a draft used to create an event.
func ValidateDraft(d EventDraft) error {
	if d.Summary == "" {
		return connector.Required("summary")
	}
	if d.Start.IsZero() {
		return connector.Required("start")
	}
	if d.End.IsZero() {
		return connector.Required("end")
	}
	return validateRange(d.Start, d.End)
}

func validateRange(start, end EventTime) error {
	if start.AllDay() != end.AllDay() {
		return connector.Invalidf("start and end must both be dates or both be date-times")
	}
	if start.AllDay() {
		s, err := time.Parse(DateLayout, start.Date)
		if err != nil {
			return connector.Invalidf("invalid start date %q", start.Date)
		}
		e, err := time.Parse(DateLayout, end.Date)
		if err != nil {
			return connector.Invalidf("invalid end date %q", end.Date)
		}
		if e.Before(s) {
			return connector.Invalidf("end date %s is before start date %s", end.Date, start.Date)
		}
		return nil
	}
	if end.DateTime.Before(*start.DateTime) {
		return connector.Invalidf("end %s is before start %s", end, start)
	}
	return nil
}

// ToCalendar converts a calendar list entry.
func ToCalendar(e *gcal.CalendarListEntry) (Calendar, error) {
	if e == nil || e.Id == "" {
		return Calendar{}, connector.NewMalformedResponseError("calendar list entry has no id", nil)
	}
	tz := e.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	return Calendar{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		TimeZone:    tz,
		Provider:    ProviderGoogle,
		Primary:     e.Primary,
		Color:       e.BackgroundColor,
		AccessRole:  e.AccessRole,
	}, nil
}

// ToEvent converts a Google event of calendarID.
func ToEvent(calendarID string, e *gcal.Event) (*Event, error) {
	if e == nil || e.Id == "" {
		return nil, connector.NewMalformedResponseError("calendar event has no id", nil)
	}
	ev := &Event{
		ID:          e.Id,
		CalendarID:  calendarID,
		Provider:    ProviderGoogle,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       parseEventTime(e.Start),
		End:         parseEventTime(e.End),
		Attendees:   []Attendee{},
		Reminders:   []Reminder{},
		Recurrence:  slices.Clone(e.Recurrence),
		Status:      e.Status,
		ColorID:     e.ColorId,
		Visibility:  e.Visibility,
		HTMLLink:    e.HtmlLink,
		Created:     parseTimestamp(e.Created),
		Updated:     parseTimestamp(e.Updated),
	}
	if ev.Status == "" {
		ev.Status = "confirmed"
	}
	if e.Creator != nil {
		ev.Creator = e.Creator.Email
	}
	if e.Organizer != nil {
		ev.Organizer = e.Organizer.Email
	}
	for _, a := range e.Attendees {
		if a == nil {
			continue
		}
		ev.Attendees = append(ev.Attendees, Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: responseStatus(a.ResponseStatus),
			Optional:       a.Optional,
			Organizer:      a.Organizer,
			Comment:        a.Comment,
		})
	}
	if r := e.Reminders; r != nil {
		ev.DefaultReminders = r.UseDefault
		for _, o := range r.Overrides {
			if o != nil {
				ev.Reminders = append(ev.Reminders, Reminder{Method: o.Method, Minutes: o.Minutes})
			}
		}
	}
	ev.ConferenceLink = e.HangoutLink
	if cd := e.ConferenceData; cd != nil {
		for _, ep := range cd.EntryPoints {
			if ep != nil && ep.EntryPointType == "video" {
				ev.ConferenceLink = ep.Uri
				break
			}
		}
	}
	return ev, nil
}

func responseStatus(s string) string {
	switch s {
	case ResponseAccepted, ResponseDeclined, ResponseTentative:
		return s
	}
	return ResponseNeedsAction
}

func parseEventTime(t *gcal.EventDateTime) EventTime {
	if t == nil {
		return EventTime{}
	}
	out := EventTime{TimeZone: t.TimeZone}
	switch {
	case t.DateTime != "":
		if v, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			out.DateTime = &v
		}
	case t.Date != "":
		out.Date = t.Date
	}
	return out
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// FromDraft converts a complete draft into an insertable event.
func FromDraft(d EventDraft) (*gcal.Event, error) {
	if err := ValidateDraft(d); err != nil {
		return nil, err
	}
	ev := ToPatch(d)
	if ev.Reminders == nil {
		ev.Reminders = &gcal.EventReminders{UseDefault: true}
	}
	if ev.Visibility == "" {
		ev.Visibility = VisibilityDefault
	}
	return ev, nil
}

// ToPatch converts the set fields of d into an event for events.patch.
// Fields left zero are omitted from the request.
func ToPatch(d EventDraft) *gcal.Event {
	ev := &gcal.Event{
		Summary:     d.Summary,
		Description: d.Description,
		Location:    d.Location,
		ColorId:     d.ColorID,
		Visibility:  d.Visibility,
		Recurrence:  slices.Clone(d.Recurrence),
	}
	if !d.Start.IsZero() {
		ev.Start = formatEventTime(d.Start)
	}
	if !d.End.IsZero() {
		ev.End = formatEventTime(d.End)
	}
	for _, a := range d.Attendees {
		ev.Attendees = append(ev.Attendees, &gcal.EventAttendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
			Optional:    a.Optional,
		})
	}
	if len(d.Reminders) > 0 {
		r := &gcal.EventReminders{UseDefault: false, ForceSendFields: []string{"UseDefault"}}
		for _, rem := range d.Reminders {
			method := rem.Method
			if method == "" {
				method = DefaultReminderMethod
			}
			r.Overrides = append(r.Overrides, &gcal.EventReminder{Method: method, Minutes: rem.Minutes, ForceSendFields: []string{"Minutes"}})
		}
		ev.Reminders = r
	}
	return ev
}

func formatEventTime(t EventTime) *gcal.EventDateTime {
	if t.DateTime == nil {
		return &gcal.EventDateTime{Date: t.Date}
	}
	tz := t.TimeZone
	if tz == "" || tz == "Local" {
		tz = "UTC"
	}
	return &gcal.EventDateTime{DateTime: t.DateTime.Format(time.RFC3339), TimeZone: tz}
}

// ToFreeBusy converts a free/busy response in the order of ids.
func ToFreeBusy(ids []string, res *gcal.FreeBusyResponse) ([]FreeBusy, error) {
	if res == nil {
		return nil, connector.NewMalformedResponseError("empty free/busy response", nil)
	}
	out := make([]FreeBusy, 0, len(ids))
	for _, id := range ids {
		fb := FreeBusy{CalendarID: id, Busy: []TimeRange{}}
		cal, ok := res.Calendars[id]
		if !ok {
			fb.Errors = []string{"notFound"}
			out = append(out, fb)
			continue
		}
		for _, b := range cal.Busy {
			if b == nil {
				continue
			}
			start, err := time.Parse(time.RFC3339, b.Start)
			if err != nil {
				return nil, connector.NewMalformedResponseError(fmt.Sprintf("busy start %q of %s", b.Start, id), err)
			}
			end, err := time.Parse(time.RFC3339, b.End)
			if err != nil {
				return nil, connector.NewMalformedResponseError(fmt.Sprintf("busy end %q of %s", b.End, id), err)
			}
			fb.Busy = append(fb.Busy, TimeRange{Start: start, End: end})
		}
		for _, e := range cal.Errors {
			if e != nil {
				fb.Errors = append(fb.Errors, e.Reason)
			}
		}
		out = append(out, fb)
	}
	return out, nil
}
