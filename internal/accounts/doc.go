// Package accounts maps account identifiers to live client handles for one
// connector. Handles are created lazily through a Factory, at most one per
// account, and a default account is used when a caller names none.
package accounts
