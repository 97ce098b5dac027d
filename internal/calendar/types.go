package calendar

import (
	"context"
	"strings"
	"time"
)

// Provider names a calendar backend.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// ParseProvider accepts "google" and "apple"; empty selects google.
func ParseProvider(s string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProviderGoogle:
		return ProviderGoogle, true
	case ProviderApple:
		return ProviderApple, true
	}
	return "", false
}

// PrimaryCalendar addresses the account's default calendar.
const PrimaryCalendar = "primary"

// DateLayout is the format of all-day dates.
const DateLayout = "2006-01-02"

// Attendee response statuses.
const (
	ResponseNeedsAction = "needsAction"
	ResponseAccepted    = "accepted"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
)

// Visibility values.
const (
	VisibilityDefault      = "default"
	VisibilityPublic       = "public"
	VisibilityPrivate      = "private"
	VisibilityConfidential = "confidential"
)

// Calendar is a calendar of either provider.
type Calendar struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	TimeZone    string   `json:"timezone"`
	Provider    Provider `json:"provider"`
	Primary     bool     `json:"is_primary"`
	Color       string   `json:"color,omitempty"`
	AccessRole  string   `json:"access_role,omitempty"`
}

// EventTime is either a point in time or an all-day date.
type EventTime struct {
	DateTime *time.Time `json:"datetime,omitempty"`
	// Date is YYYY-MM-DD for all-day events.
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timezone,omitempty"`
}

// IsZero reports whether neither a time nor a date is set.
func (t EventTime) IsZero() bool { return t.DateTime == nil && t.Date == "" }

// AllDay reports whether t is a date.
func (t EventTime) AllDay() bool { return t.DateTime == nil && t.Date != "" }

// String renders t as RFC 3339 or as the date.
func (t EventTime) String() string {
	switch {
	case t.DateTime != nil:
		return t.DateTime.Format(time.RFC3339)
	case t.Date != "":
		return t.Date
	}
	return ""
}

// At returns an EventTime for a timed event.
func At(t time.Time) EventTime {
	return EventTime{DateTime: &t, TimeZone: t.Location().String()}
}

// OnDate returns an EventTime for an all-day event.
func OnDate(t time.Time) EventTime {
	return EventTime{Date: t.Format(DateLayout)}
}

// Attendee is an event participant.
type Attendee struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name,omitempty"`
	ResponseStatus string `json:"response_status,omitempty"`
	Optional       bool   `json:"optional,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	Comment        string `json:"comment,omitempty"`
}

// Reminder fires Minutes before the event start.
type Reminder struct {
	Method  string `json:"method"`
	Minutes int64  `json:"minutes"`
}

// DefaultReminderMethod is used when a reminder has no method.
const DefaultReminderMethod = "popup"

// Event is a calendar event of either provider.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendar_id"`
	Provider    Provider   `json:"provider"`
	Summary     string     `json:"summary"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Start       EventTime  `json:"start"`
	End         EventTime  `json:"end"`
	Creator     string     `json:"creator,omitempty"`
	Organizer   string     `json:"organizer,omitempty"`
	Attendees   []Attendee `json:"attendees"`
	Reminders   []Reminder `json:"reminders"`
	// DefaultReminders is set when the calendar's default reminders apply.
	DefaultReminders bool       `json:"default_reminders,omitempty"`
	Recurrence       []string   `json:"recurrence,omitempty"`
	Status           string     `json:"status,omitempty"`
	ColorID          string     `json:"color_id,omitempty"`
	Visibility       string     `json:"visibility,omitempty"`
	ConferenceLink   string     `json:"conference_link,omitempty"`
	HTMLLink         string     `json:"html_link,omitempty"`
	Created          *time.Time `json:"created,omitempty"`
	Updated          *time.Time `json:"updated,omitempty"`
}

// IsRecurring reports whether the event has recurrence rules.
func (e *Event) IsRecurring() bool { return len(e.Recurrence) > 0 }

// EventDraft carries the fields of an event to create. On update, zero
// fields are left unchanged.
type EventDraft struct {
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	Attendees   []Attendee
	// Reminders override the calendar defaults when non-empty.
	Reminders []Reminder
	// Recurrence holds RRULE, EXRULE, RDATE or EXDATE lines.
	Recurrence []string
	ColorID    string
	Visibility string
	// AddConference requests a Google Meet link.
	AddConference bool
}

// Criteria selects events. Single expands recurring events into instances.
type Criteria struct {
	CalendarID  string
	Query       string
	TimeMin     time.Time
	TimeMax     time.Time
	ShowDeleted bool
	Single      bool
	MaxResults  int64
	OrderBy     string
	PageToken   string
}

// EventPage is one page of events.
type EventPage struct {
	Events        []Event
	NextPageToken string
}

// TimeRange is a busy interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeBusy is the availability of one calendar.
type FreeBusy struct {
	CalendarID string      `json:"calendar_id"`
	Busy       []TimeRange `json:"busy"`
	Errors     []string    `json:"errors,omitempty"`
}

// API is the provider surface used by the use cases. Each method is one
// remote operation.
type API interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	CreateEvent(ctx context.Context, calendarID string, draft EventDraft) (*Event, error)
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, draft EventDraft) (*Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	ListEvents(ctx context.Context, c Criteria) (*EventPage, error)
}

// FreeBusyAPI is implemented by providers that answer availability queries.
type FreeBusyAPI interface {
	QueryFreeBusy(ctx context.Context, timeMin, timeMax time.Time, calendarIDs []string) ([]FreeBusy, error)
}
