// Package holded connects Holded business accounts: invoicing documents,
// contacts, products, treasury and the expense and income accounts of the
// chart of accounts.
//
// Holded authenticates with a static API key sent in the "key" header.
// Dates on the wire are unix timestamps; list endpoints return every record
// at once, so results are truncated to the requested maximum locally.
package holded
