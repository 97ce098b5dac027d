package caldav

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/connector"
)

// ProductID identifies objects written by this connector.
const ProductID = "-//connectorhub//caldav//EN"

const (
	propColor    = "COLOR"
	propSequence = "SEQUENCE"
	paramTZID    = "TZID"
)

var recurrenceProps = []string{"RRULE", "EXRULE", "RDATE", "EXDATE"}

// FromDraft builds a VCALENDAR holding one VEVENT for d. The result depends
// only on its arguments.
func FromDraft(d calendar.EventDraft, uid string, stamp time.Time) (*ical.Calendar, error) {
	if err := calendar.ValidateDraft(d); err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, connector.Required("uid")
	}
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if err := apply(ev.Component, d); err != nil {
		return nil, err
	}
	cal.Children = append(cal.Children, ev.Component)
	return cal, nil
}

// Merge writes the set fields of d onto the event in cal.
func Merge(cal *ical.Calendar, d calendar.EventDraft, stamp time.Time) error {
	ev := findEvent(cal)
	if ev == nil {
		return connector.NewMalformedResponseError("calendar object has no VEVENT", nil)
	}
	if !d.Start.IsZero() && !d.End.IsZero() {
		if err := calendar.ValidateDraft(calendar.EventDraft{Summary: "-", Start: d.Start, End: d.End}); err != nil {
			return err
		}
	}
	if err := apply(ev, d); err != nil {
		return err
	}
	seq := 0
	if p := ev.Props.Get(propSequence); p != nil {
		seq, _ = strconv.Atoi(p.Value)
	}
	sp := ical.NewProp(propSequence)
	sp.Value = strconv.Itoa(seq + 1)
	ev.Props.Set(sp)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ev.Props.SetDateTime(ical.PropLastModified, stamp.UTC())
	return nil
}

// apply writes the non-zero fields of d.
func apply(ev *ical.Component, d calendar.EventDraft) error {
	if d.Summary != "" {
		ev.Props.SetText(ical.PropSummary, d.Summary)
	}
	if d.Description != "" {
		ev.Props.SetText(ical.PropDescription, d.Description)
	}
	if d.Location != "" {
		ev.Props.SetText(ical.PropLocation, d.Location)
	}
	if !d.Start.IsZero() {
		if err := setTime(ev.Props, ical.PropDateTimeStart, d.Start); err != nil {
			return err
		}
	}
	if !d.End.IsZero() {
		if err := setTime(ev.Props, ical.PropDateTimeEnd, d.End); err != nil {
			return err
		}
	}
	if len(d.Attendees) > 0 {
		delete(ev.Props, ical.PropAttendee)
		for _, a := range d.Attendees {
			ev.Props.Add(attendeeProp(a))
		}
	}
	if len(d.Reminders) > 0 {
		ev.Children = slices.DeleteFunc(ev.Children, func(c *ical.Component) bool { return c.Name == ical.CompAlarm })
		for _, r := range d.Reminders {
			ev.Children = append(ev.Children, alarm(r))
		}
	}
	if len(d.Recurrence) > 0 {
		for _, name := range recurrenceProps {
			delete(ev.Props, name)
		}
		for _, line := range d.Recurrence {
			p, err := recurrenceProp(line)
			if err != nil {
				return err
			}
			ev.Props.Add(p)
		}
	}
	if d.ColorID != "" {
		p := ical.NewProp(propColor)
		p.Value = d.ColorID
		ev.Props.Set(p)
	}
	switch d.Visibility {
	case "", calendar.VisibilityDefault:
	case calendar.VisibilityPublic, calendar.VisibilityPrivate, calendar.VisibilityConfidential:
		ev.Props.SetText(ical.PropClass, strings.ToUpper(d.Visibility))
	default:
		return connector.Invalidf("invalid visibility %q", d.Visibility)
	}
	return nil
}

func setTime(props ical.Props, name string, t calendar.EventTime) error {
	if t.AllDay() {
		day, err := time.Parse(calendar.DateLayout, t.Date)
		if err != nil {
			return connector.Invalidf("invalid date %q", t.Date)
		}
		props.SetDate(name, day)
		return nil
	}
	v := t.DateTime.UTC()
	if loc := location(t.TimeZone); loc != nil {
		v = t.DateTime.In(loc)
	}
	props.SetDateTime(name, v)
	return nil
}

// location returns the named zone, or nil when times are written in UTC.
func location(tz string) *time.Location {
	switch tz {
	case "", "UTC", "Local":
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil
	}
	return loc
}

func attendeeProp(a calendar.Attendee) *ical.Prop {
	p := ical.NewProp(ical.PropAttendee)
	p.Value = "mailto:" + a.Email
	cn := a.DisplayName
	if cn == "" {
		cn = a.Email
	}
	p.Params.Set(ical.ParamCommonName, cn)
	role := "REQ-PARTICIPANT"
	if a.Optional {
		role = "OPT-PARTICIPANT"
	}
	p.Params.Set(ical.ParamRole, role)
	p.Params.Set(ical.ParamRSVP, "TRUE")
	return p
}

func alarm(r calendar.Reminder) *ical.Component {
	c := ical.NewComponent(ical.CompAlarm)
	action := "DISPLAY"
	if strings.EqualFold(r.Method, "email") {
		action = "EMAIL"
		c.Props.SetText(ical.PropSummary, "Reminder")
	}
	c.Props.SetText(ical.PropAction, action)
	c.Props.SetText(ical.PropDescription, "Reminder")
	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = fmt.Sprintf("-PT%dM", r.Minutes)
	c.Props.Set(trigger)
	return c
}

// recurrenceProp parses "RRULE:FREQ=DAILY", "EXDATE;TZID=x:..." or a bare
// rule, which is taken as RRULE.
func recurrenceProp(line string) (*ical.Prop, error) {
	line = strings.TrimSpace(line)
	name, value := "RRULE", line
	if i := strings.IndexByte(line, ':'); i > 0 {
		head := strings.ToUpper(line[:i])
		base, _, _ := strings.Cut(head, ";")
		if slices.Contains(recurrenceProps, base) {
			name, value = line[:i], line[i+1:]
		}
	}
	if value == "" {
		return nil, connector.Invalidf("empty recurrence rule %q", line)
	}
	parts := strings.Split(name, ";")
	p := ical.NewProp(strings.ToUpper(parts[0]))
	for _, param := range parts[1:] {
		k, v, ok := strings.Cut(param, "=")
		if !ok {
			return nil, connector.Invalidf("invalid recurrence parameter %q", param)
		}
		p.Params.Set(strings.ToUpper(k), v)
	}
	p.Value = value
	return p, nil
}

func findEvent(cal *ical.Calendar) *ical.Component {
	if cal == nil {
		return nil
	}
	for _, c := range cal.Children {
		if c.Name == ical.CompEvent {
			return c
		}
	}
	return nil
}

// ToEvent converts the first VEVENT of cal.
func ToEvent(calendarID string, cal *ical.Calendar) (*calendar.Event, error) {
	ev := findEvent(cal)
	if ev == nil {
		return nil, connector.NewMalformedResponseError("calendar object has no VEVENT", nil)
	}
	uid := text(ev.Props, ical.PropUID)
	if uid == "" {
		return nil, connector.NewMalformedResponseError("VEVENT has no UID", nil)
	}
	out := &calendar.Event{
		ID:          uid,
		CalendarID:  calendarID,
		Provider:    calendar.ProviderApple,
		Summary:     text(ev.Props, ical.PropSummary),
		Description: text(ev.Props, ical.PropDescription),
		Location:    text(ev.Props, ical.PropLocation),
		Start:       eventTime(ev.Props.Get(ical.PropDateTimeStart)),
		End:         eventTime(ev.Props.Get(ical.PropDateTimeEnd)),
		Organizer:   mailto(ev.Props.Get(ical.PropOrganizer)),
		Attendees:   []calendar.Attendee{},
		Reminders:   []calendar.Reminder{},
		Status:      strings.ToLower(text(ev.Props, ical.PropStatus)),
		Visibility:  strings.ToLower(text(ev.Props, ical.PropClass)),
		Created:     timestamp(ev.Props.Get(ical.PropCreated)),
		Updated:     timestamp(ev.Props.Get(ical.PropLastModified)),
	}
	if out.Status == "" {
		out.Status = "confirmed"
	}
	if p := ev.Props.Get(propColor); p != nil {
		out.ColorID = p.Value
	}
	for _, p := range ev.Props[ical.PropAttendee] {
		out.Attendees = append(out.Attendees, toAttendee(p))
	}
	for _, c := range ev.Children {
		if c.Name != ical.CompAlarm {
			continue
		}
		if r, ok := toReminder(c); ok {
			out.Reminders = append(out.Reminders, r)
		}
	}
	for _, name := range recurrenceProps {
		for _, p := range ev.Props[name] {
			out.Recurrence = append(out.Recurrence, recurrenceLine(name, p))
		}
	}
	return out, nil
}

func text(props ical.Props, name string) string {
	p := props.Get(name)
	if p == nil {
		return ""
	}
	if s, err := p.Text(); err == nil {
		return s
	}
	return p.Value
}

func eventTime(p *ical.Prop) calendar.EventTime {
	if p == nil {
		return calendar.EventTime{}
	}
	if p.ValueType() == ical.ValueDate {
		t, err := p.DateTime(time.UTC)
		if err != nil {
			return calendar.EventTime{}
		}
		return calendar.EventTime{Date: t.Format(calendar.DateLayout)}
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return calendar.EventTime{}
	}
	tz := p.Params.Get(paramTZID)
	if tz == "" {
		tz = "UTC"
	}
	return calendar.EventTime{DateTime: &t, TimeZone: tz}
}

func timestamp(p *ical.Prop) *time.Time {
	if p == nil {
		return nil
	}
	t, err := p.DateTime(time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func mailto(p *ical.Prop) string {
	if p == nil {
		return ""
	}
	v := p.Value
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return v
}

func toAttendee(p ical.Prop) calendar.Attendee {
	a := calendar.Attendee{Email: mailto(&p), ResponseStatus: calendar.ResponseNeedsAction}
	if cn := p.Params.Get(ical.ParamCommonName); cn != "" && cn != a.Email {
		a.DisplayName = cn
	}
	a.Optional = strings.EqualFold(p.Params.Get(ical.ParamRole), "OPT-PARTICIPANT")
	switch strings.ToUpper(p.Params.Get(ical.ParamParticipationStatus)) {
	case "ACCEPTED":
		a.ResponseStatus = calendar.ResponseAccepted
	case "DECLINED":
		a.ResponseStatus = calendar.ResponseDeclined
	case "TENTATIVE":
		a.ResponseStatus = calendar.ResponseTentative
	}
	return a
}

func toReminder(c *ical.Component) (calendar.Reminder, bool) {
	p := c.Props.Get(ical.PropTrigger)
	if p == nil {
		return calendar.Reminder{}, false
	}
	d, ok := parseTrigger(p.Value)
	if !ok || d > 0 {
		return calendar.Reminder{}, false
	}
	method := calendar.DefaultReminderMethod
	if strings.EqualFold(text(c.Props, ical.PropAction), "EMAIL") {
		method = "email"
	}
	return calendar.Reminder{Method: method, Minutes: int64(-d / time.Minute)}, true
}

// parseTrigger reads a relative RFC 5545 duration such as -PT15M or -P1DT2H.
func parseTrigger(s string) (time.Duration, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	sign := time.Duration(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign, s = -1, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") {
		return 0, false
	}
	s = s[1:]
	var total time.Duration
	inTime := false
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
			continue
		case r == 'T':
			inTime = true
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, false
		}
		num = ""
		var unit time.Duration
		switch {
		case r == 'W' && !inTime:
			unit = 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			unit = 24 * time.Hour
		case r == 'H' && inTime:
			unit = time.Hour
		case r == 'M' && inTime:
			unit = time.Minute
		case r == 'S' && inTime:
			unit = time.Second
		default:
			return 0, false
		}
		total += time.Duration(n) * unit
	}
	if num != "" {
		return 0, false
	}
	return sign * total, true
}

func recurrenceLine(name string, p ical.Prop) string {
	var b strings.Builder
	b.WriteString(name)
	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(";" + k + "=" + strings.Join(p.Params[k], ","))
	}
	b.WriteString(":" + p.Value)
	return b.String()
}

// ToCalendar converts a discovered calendar collection.
func ToCalendar(path, name, description string) calendar.Calendar {
	id := calendarID(path)
	if name == "" {
		name = id
	}
	return calendar.Calendar{
		ID:          id,
		Summary:     name,
		Description: description,
		TimeZone:    "UTC",
		Provider:    calendar.ProviderApple,
	}
}

// calendarID is the last path segment of a collection path.
func calendarID(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
