// Package storefront implements the account and catalog backend for a small
// shop front end: OTP gated registration, bearer token sessions, profile
// management and an admin gated product catalog.
//
// Account lifecycle:
//   - Register creates a pending account holding a six digit OTP valid for
//     ten minutes and dispatches the code through a Mailer. When the dispatch
//     fails the account is deleted again and the caller must start over.
//   - VerifyOTP moves a pending account to verified exactly once and issues a
//     token. Pending and verified are modeled as AccountState variants so a
//     verified account can never carry a live code.
//   - Login only succeeds for verified accounts; unknown email and wrong
//     password produce the same error.
//
// Tokens:
//   - TokenService mints signed bearer tokens backed by a token row. Tokens do
//     not expire; Logout revokes every token of the account by deleting rows.
//   - Guard resolves a token to an account and optionally enforces a Role.
//
// Activity sinks:
//   - ActivitySink receives audit events for registrations, verifications,
//     logins and catalog changes. Sinks run best effort (errors are logged).
package storefront
