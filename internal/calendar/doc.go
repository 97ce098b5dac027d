// Package calendar holds the calendar domain shared by the Google Calendar
// and Apple (CalDAV) connectors, the Google Calendar client and mapper, and
// the calendar use cases.
//
// Both providers implement API. The use cases select the provider named in
// the request and resolve the account through that provider's account
// manager:
//
//	svc := calendar.NewService(googleAccounts, appleAccounts)
//	res := svc.CreateEvent(ctx, calendar.CreateEventRequest{
//		Provider: calendar.ProviderGoogle,
//		Draft:    draft,
//	})
package calendar
