package calendar_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/connectorhub/internal/calendar"
	"github.com/teemow/connectorhub/internal/instrumentation"
	"github.com/teemow/connectorhub/internal/server"
	"github.com/teemow/connectorhub/internal/tools/common"
)

func draftOptions(required bool) []mcp.ToolOption {
	req := func(desc string) []mcp.PropertyOption {
		opts := []mcp.PropertyOption{mcp.Description(desc)}
		if required {
			opts = append(opts, mcp.Required())
		}
		return opts
	}
	return []mcp.ToolOption{
		mcp.WithString("summary", req("Event title")...),
		mcp.WithString("description", mcp.Description("Event description")),
		mcp.WithString("location", mcp.Description("Event location")),
		mcp.WithString("start", req("Start, RFC 3339 (e.g. '2025-01-15T14:00:00+01:00') or YYYY-MM-DD for all-day events")...),
		mcp.WithString("end", req("End, same format as start. All-day end dates are inclusive.")...),
		mcp.WithString("time_zone", mcp.Description("IANA time zone of the start and end, e.g. 'Europe/Madrid'")),
		mcp.WithArray("attendees", mcp.WithStringItems(), mcp.Description("Attendee email addresses")),
		mcp.WithArray("reminders", mcp.Description("Reminder overrides as objects with method ('popup' or 'email') and minutes")),
		mcp.WithArray("recurrence", mcp.WithStringItems(), mcp.Description("Recurrence lines, e.g. 'RRULE:FREQ=WEEKLY;BYDAY=MO'")),
		mcp.WithString("color_id", mcp.Description("Google event color id")),
		mcp.WithString("visibility", mcp.Enum(
			calendar.VisibilityDefault, calendar.VisibilityPublic, calendar.VisibilityPrivate, calendar.VisibilityConfidential,
		), mcp.Description("Event visibility")),
		mcp.WithBoolean("add_conference", mcp.Description("Add a Google Meet link (google only)")),
	}
}

func registerEventTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) {
	listEventsTool := mcp.NewTool("list_calendar_events",
		mcp.WithDescription("List or search calendar events within a time range"),
		providerOption(),
		accountOption(),
		calendarIDOption(),
		mcp.WithString("time_min", mcp.Description("Start of the range (RFC 3339 or YYYY-MM-DD)")),
		mcp.WithString("time_max", mcp.Description("End of the range (RFC 3339 or YYYY-MM-DD)")),
		mcp.WithString("query", mcp.Description("Free text filter")),
		mcp.WithBoolean("single_events", mcp.Description("Expand recurring events into instances (default: true)")),
		mcp.WithBoolean("show_deleted", mcp.Description("Include cancelled events")),
		mcp.WithNumber("max_results", mcp.Description(fmt.Sprintf("Maximum number of events (default: %d, max: %d)", calendar.DefaultMaxResults, calendar.MaxResultsLimit))),
		mcp.WithString("page_token", mcp.Description("Token of the page to fetch")),
	)
	s.AddTool(listEventsTool, common.Instrumented("list_calendar_events", instrumentation.ServiceCalendar, "list events", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	getEventTool := mcp.NewTool("get_calendar_event",
		mcp.WithDescription("Get the details of a calendar event"),
		providerOption(),
		accountOption(),
		calendarIDOption(),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("The ID of the event")),
	)
	s.AddTool(getEventTool, common.Instrumented("get_calendar_event", instrumentation.ServiceCalendar, "get event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			target, err := targetFromArgs(args)
			if err != nil {
				return common.InvalidArgument("get calendar event", err), nil
			}
			return common.ToolResult(sc.Calendar().GetEvent(ctx, calendar.EventRequest{
				Target:  target,
				EventID: common.String(args, "event_id"),
			})), nil
		}))

	if readOnly {
		return
	}

	createOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Create a calendar event. Timed and all-day events, attendees, reminders and recurrence are supported."),
		providerOption(),
		accountOption(),
		calendarIDOption(),
	}, draftOptions(true)...)
	s.AddTool(mcp.NewTool("create_calendar_event", createOpts...),
		common.Instrumented("create_calendar_event", instrumentation.ServiceCalendar, "create event", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args := request.GetArguments()
				target, err := targetFromArgs(args)
				if err != nil {
					return common.InvalidArgument("create calendar event", err), nil
				}
				draft, err := draftFromArgs(args)
				if err != nil {
					return common.InvalidArgument("create calendar event", err), nil
				}
				return common.ToolResult(sc.Calendar().CreateEvent(ctx, calendar.CreateEventRequest{
					Target: target,
					Draft:  draft,
				})), nil
			}))

	updateOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Update a calendar event. Only the given fields change."),
		providerOption(),
		accountOption(),
		calendarIDOption(),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("The ID of the event to update")),
	}, draftOptions(false)...)
	s.AddTool(mcp.NewTool("update_calendar_event", updateOpts...),
		common.Instrumented("update_calendar_event", instrumentation.ServiceCalendar, "update event", sc,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				args := request.GetArguments()
				target, err := targetFromArgs(args)
				if err != nil {
					return common.InvalidArgument("update calendar event", err), nil
				}
				draft, err := draftFromArgs(args)
				if err != nil {
					return common.InvalidArgument("update calendar event", err), nil
				}
				return common.ToolResult(sc.Calendar().UpdateEvent(ctx, calendar.UpdateEventRequest{
					Target:  target,
					EventID: common.String(args, "event_id"),
					Draft:   draft,
				})), nil
			}))

	deleteEventTool := mcp.NewTool("delete_calendar_event",
		mcp.WithDescription("Delete a calendar event"),
		providerOption(),
		accountOption(),
		calendarIDOption(),
		mcp.WithString("event_id", mcp.Required(), mcp.Description("The ID of the event to delete")),
	)
	s.AddTool(deleteEventTool, common.Instrumented("delete_calendar_event", instrumentation.ServiceCalendar, "delete event", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			target, err := targetFromArgs(args)
			if err != nil {
				return common.InvalidArgument("delete calendar event", err), nil
			}
			return common.ToolResult(sc.Calendar().DeleteEvent(ctx, calendar.EventRequest{
				Target:  target,
				EventID: common.String(args, "event_id"),
			})), nil
		}))
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	p, err := providerFromArgs(args)
	if err != nil {
		return common.InvalidArgument("list calendar events", err), nil
	}
	timeMin, err := common.Time(args, "time_min")
	if err != nil {
		return common.InvalidArgument("list calendar events", err), nil
	}
	timeMax, err := common.Time(args, "time_max")
	if err != nil {
		return common.InvalidArgument("list calendar events", err), nil
	}
	maxResults, err := common.Int(args, "max_results", calendar.DefaultMaxResults)
	if err != nil {
		return common.InvalidArgument("list calendar events", err), nil
	}

	return common.ToolResult(sc.Calendar().ListEvents(ctx, calendar.ListEventsRequest{
		Provider: p,
		Account:  common.AccountFromArgs(args),
		Criteria: calendar.Criteria{
			CalendarID:  common.String(args, "calendar_id"),
			Query:       common.String(args, "query"),
			TimeMin:     timeMin,
			TimeMax:     timeMax,
			ShowDeleted: common.Bool(args, "show_deleted", false),
			Single:      common.Bool(args, "single_events", true),
			MaxResults:  int64(maxResults),
			PageToken:   common.String(args, "page_token"),
		},
	})), nil
}

// eventTime parses a start or end argument. A date makes an all-day time;
// a timestamp is moved into time_zone when one is given.
func eventTime(args map[string]any, key string, loc *time.Location) (calendar.EventTime, error) {
	t, err := common.Time(args, key)
	if err != nil || t.IsZero() {
		return calendar.EventTime{}, err
	}
	if common.IsDate(args, key) {
		return calendar.OnDate(t), nil
	}
	if loc != nil {
		t = t.In(loc)
	}
	return calendar.At(t), nil
}

func draftFromArgs(args map[string]any) (calendar.EventDraft, error) {
	var loc *time.Location
	if tz := common.String(args, "time_zone"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return calendar.EventDraft{}, fmt.Errorf("unknown time_zone %q", tz)
		}
		loc = l
	}
	start, err := eventTime(args, "start", loc)
	if err != nil {
		return calendar.EventDraft{}, err
	}
	end, err := eventTime(args, "end", loc)
	if err != nil {
		return calendar.EventDraft{}, err
	}

	emails, err := common.StringList(args, "attendees")
	if err != nil {
		return calendar.EventDraft{}, err
	}
	attendees := make([]calendar.Attendee, 0, len(emails))
	for _, e := range emails {
		attendees = append(attendees, calendar.Attendee{Email: e})
	}

	var reminders []calendar.Reminder
	if _, err := common.Decode(args, "reminders", &reminders); err != nil {
		return calendar.EventDraft{}, err
	}
	for i, r := range reminders {
		if r.Minutes < 0 {
			return calendar.EventDraft{}, fmt.Errorf("reminders[%d].minutes must not be negative", i)
		}
		if r.Method == "" {
			reminders[i].Method = calendar.DefaultReminderMethod
		}
	}

	recurrence, err := common.StringList(args, "recurrence")
	if err != nil {
		return calendar.EventDraft{}, err
	}

	return calendar.EventDraft{
		Summary:       common.String(args, "summary"),
		Description:   common.String(args, "description"),
		Location:      common.String(args, "location"),
		Start:         start,
		End:           end,
		Attendees:     attendees,
		Reminders:     reminders,
		Recurrence:    recurrence,
		ColorID:       common.String(args, "color_id"),
		Visibility:    common.String(args, "visibility"),
		AddConference: common.Bool(args, "add_conference", false),
	}, nil
}
