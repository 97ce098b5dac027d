// Package logging holds the structured logging conventions shared by every
// connector: attribute keys, attribute helpers and redaction of account
// identifiers and secrets.
//
// Loggers are plain *slog.Logger values. Components receive one at construction
// and derive scoped loggers from it:
//
//	logger := logging.WithService(slog.Default(), "gmail")
//	logger.Info("message sent", logging.Account(account), logging.Status(logging.StatusSuccess))
//
// Account identifiers are usually email addresses, so Account hashes them.
// Tokens and API keys must only ever be logged through SanitizeToken.
package logging
