package caldav

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/connector"
	"github.com/teemow/connectorhub/internal/credentials"
)

// DefaultURL is the iCloud CalDAV endpoint.
const DefaultURL = "https://caldav.icloud.com"

// DAV is the CalDAV surface used by Client. *caldav.Client implements it.
type DAV interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]caldav.Calendar, error)
	GetCalendarObject(ctx context.Context, path string) (*caldav.CalendarObject, error)
	PutCalendarObject(ctx context.Context, path string, cal *ical.Calendar) (*caldav.CalendarObject, error)
	QueryCalendar(ctx context.Context, calendar string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error)
	RemoveAll(ctx context.Context, name string) error
}

var _ DAV = (*caldav.Client)(nil)

// Client is the Apple calendar of one account.
type Client struct {
	account string
	dav     DAV
	caller  *connector.Caller
	now     func() time.Time
	newUID  func() string

	mu      sync.Mutex
	homeSet string
}

var _ calendar.API = (*Client)(nil)

// NewClient connects to the CalDAV server named in rec with the username
// and app-specific password it holds. hc carries transport instrumentation.
func NewClient(account string, rec *credentials.Record, hc *http.Client, caller *connector.Caller) (*Client, error) {
	user, pass := rec.Value(credentials.ValueUsername), rec.Value(credentials.ValuePassword)
	if user == "" || pass == "" {
		return nil, connector.NewAuthenticationError("apple calendar credential needs username and password", nil)
	}
	endpoint := rec.Value(credentials.ValueURL)
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	dav, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(statusClient{hc}, user, pass), endpoint)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return newClient(account, dav, caller), nil
}

func newClient(account string, dav DAV, caller *connector.Caller) *Client {
	return &Client{account: account, dav: dav, caller: caller, now: time.Now, newUID: uuid.NewString}
}

// Account returns the account the client is bound to.
func (c *Client) Account() string { return c.account }

// statusClient turns error statuses into connector errors before the
// WebDAV layer sees them, so every failure is classified by status.
type statusClient struct {
	hc *http.Client
}

func (s statusClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(resp.StatusCode)
	}
	return nil, connector.FromStatus(resp.StatusCode, fmt.Sprintf("%s %s: %s", req.Method, req.URL.Path, msg), resp.Header)
}

// home discovers the calendar home set once per client.
func (c *Client) home(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.homeSet != "" {
		return c.homeSet, nil
	}
	principal, err := connector.Call(ctx, c.caller, "principal.find", func(ctx context.Context) (string, error) {
		return c.dav.FindCurrentUserPrincipal(ctx)
	})
	if err != nil {
		return "", err
	}
	home, err := connector.Call(ctx, c.caller, "homeset.find", func(ctx context.Context) (string, error) {
		return c.dav.FindCalendarHomeSet(ctx, principal)
	})
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(home, "/") {
		home += "/"
	}
	c.homeSet = home
	return home, nil
}

func (c *Client) calendars(ctx context.Context) ([]caldav.Calendar, error) {
	home, err := c.home(ctx)
	if err != nil {
		return nil, err
	}
	cals, err := connector.Call(ctx, c.caller, "calendars.find", func(ctx context.Context) ([]caldav.Calendar, error) {
		return c.dav.FindCalendars(ctx, home)
	})
	if err != nil {
		return nil, err
	}
	out := cals[:0:0]
	for _, cal := range cals {
		if len(cal.SupportedComponentSet) == 0 || slices.Contains(cal.SupportedComponentSet, ical.CompEvent) {
			out = append(out, cal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// calendarPath maps a calendar id to its collection path. "primary" is the
// first event calendar of the home set; other ids are collection names
// below it, or absolute paths.
func (c *Client) calendarPath(ctx context.Context, id string) (string, error) {
	switch {
	case id == "" || id == calendar.PrimaryCalendar:
		cals, err := c.calendars(ctx)
		if err != nil {
			return "", err
		}
		if len(cals) == 0 {
			return "", connector.NewNotFoundError("account has no event calendars", nil)
		}
		return withSlash(cals[0].Path), nil
	case strings.HasPrefix(id, "/"):
		return withSlash(id), nil
	}
	home, err := c.home(ctx)
	if err != nil {
		return "", err
	}
	return home + url.PathEscape(id) + "/", nil
}

func withSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func objectPath(calPath, uid string) string {
	return calPath + url.PathEscape(uid) + ".ics"
}

func (c *Client) ListCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	cals, err := c.calendars(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]calendar.Calendar, 0, len(cals))
	for i, cal := range cals {
		entry := ToCalendar(cal.Path, cal.Name, cal.Description)
		entry.Primary = i == 0
		out = append(out, entry)
	}
	return out, nil
}

func (c *Client) CreateEvent(ctx context.Context, calendarID string, draft calendar.EventDraft) (*calendar.Event, error) {
	uid := c.newUID()
	obj, err := FromDraft(draft, uid, c.now())
	if err != nil {
		return nil, err
	}
	calPath, err := c.calendarPath(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	if _, err := connector.Call(ctx, c.caller, "object.put", func(ctx context.Context) (*caldav.CalendarObject, error) {
		return c.dav.PutCalendarObject(ctx, objectPath(calPath, uid), obj)
	}); err != nil {
		return nil, err
	}
	return ToEvent(calendarIDOr(calendarID), obj)
}

func calendarIDOr(id string) string {
	if id == "" {
		return calendar.PrimaryCalendar
	}
	return id
}

func (c *Client) getObject(ctx context.Context, calendarID, eventID string) (*caldav.CalendarObject, string, error) {
	calPath, err := c.calendarPath(ctx, calendarID)
	if err != nil {
		return nil, "", err
	}
	path := objectPath(calPath, eventID)
	obj, err := connector.Call(ctx, c.caller, "object.get", func(ctx context.Context) (*caldav.CalendarObject, error) {
		return c.dav.GetCalendarObject(ctx, path)
	})
	if err != nil {
		return nil, "", err
	}
	if obj == nil || obj.Data == nil {
		return nil, "", connector.NewMalformedResponseError("empty calendar object "+path, nil)
	}
	return obj, path, nil
}

func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	obj, _, err := c.getObject(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	return ToEvent(calendarIDOr(calendarID), obj.Data)
}

// UpdateEvent reads the stored object, merges the set fields of draft and
// writes it back. CalDAV has no partial update, so this is two requests.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, draft calendar.EventDraft) (*calendar.Event, error) {
	obj, path, err := c.getObject(ctx, calendarID, eventID)
	if err != nil {
		return nil, err
	}
	if err := Merge(obj.Data, draft, c.now()); err != nil {
		return nil, err
	}
	if _, err := connector.Call(ctx, c.caller, "object.put", func(ctx context.Context) (*caldav.CalendarObject, error) {
		return c.dav.PutCalendarObject(ctx, path, obj.Data)
	}); err != nil {
		return nil, err
	}
	return ToEvent(calendarIDOr(calendarID), obj.Data)
}

func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	calPath, err := c.calendarPath(ctx, calendarID)
	if err != nil {
		return err
	}
	return connector.Exec(ctx, c.caller, "object.delete", func(ctx context.Context) error {
		return c.dav.RemoveAll(ctx, objectPath(calPath, eventID))
	})
}

// ListEvents runs a calendar-query over the time range. The server returns
// every match, so the query text filter and the result limit are applied
// here and no page token is produced.
func (c *Client) ListEvents(ctx context.Context, cr calendar.Criteria) (*calendar.EventPage, error) {
	calPath, err := c.calendarPath(ctx, cr.CalendarID)
	if err != nil {
		return nil, err
	}
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: cr.TimeMin,
				End:   cr.TimeMax,
			}},
		},
	}
	objs, err := connector.Call(ctx, c.caller, "calendar.query", func(ctx context.Context) ([]caldav.CalendarObject, error) {
		return c.dav.QueryCalendar(ctx, calPath, query)
	})
	if err != nil {
		return nil, err
	}

	id := calendarIDOr(cr.CalendarID)
	needle := strings.ToLower(cr.Query)
	events := make([]calendar.Event, 0, len(objs))
	for _, obj := range objs {
		ev, err := ToEvent(id, obj.Data)
		if err != nil {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ev.Summary), needle) {
			continue
		}
		events = append(events, *ev)
	}
	sort.SliceStable(events, func(i, j int) bool { return startKey(events[i]) < startKey(events[j]) })
	if cr.MaxResults > 0 && int64(len(events)) > cr.MaxResults {
		events = events[:cr.MaxResults]
	}
	return &calendar.EventPage{Events: events}, nil
}

func startKey(e calendar.Event) string {
	if e.Start.DateTime != nil {
		return e.Start.DateTime.UTC().Format(time.RFC3339)
	}
	return e.Start.Date
}
