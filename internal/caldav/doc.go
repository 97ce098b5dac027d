// Package caldav implements the Apple Calendar connector over CalDAV.
//
// Accounts authenticate with basic auth using an app-specific password kept
// as a static credential. Events are stored as one iCalendar object per
// event at <calendar>/<uid>.ics.
package caldav
