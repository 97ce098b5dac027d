// Package gmail connects Gmail accounts.
//
// It is layered like every connector in connectorhub:
//   - Client wraps the Gmail Users service of one account. Every call is
//     rate limited, retried on transient failures and classified into the
//     connector error taxonomy.
//   - ToEmail and FromDraft map between Gmail messages and the Email and
//     Draft entities. FromDraft builds deterministic MIME, ToEmail reads both
//     full-format and raw-format messages.
//   - Service holds the use cases. Each returns a connector.Result and never
//     an error.
//
// Accounts are keyed by email address; the first account added becomes the
// default used when a call names no account.
package gmail
