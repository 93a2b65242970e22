// Package client talks to the DocScrib auth API and bootstraps the local
// session database.
//
// # Overview
//
//  1. Client is the API contract: login, register, Google callback, current
//     user (read/update), onboarding, profile image upload, logout.
//  2. HTTPClient implements it over net/http. Every request carries the
//     stored bearer token, a cookie jar (the server may also set session
//     cookies) and an X-Request-ID. Login-type responses are returned as
//     received; the auth service commits their tokens once the user
//     normalizes.
//  3. InitDatabase and RunMigrations open the SQLite session database and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// Non-2xx responses become *APIError, which unwraps to ErrBadRequest,
// ErrUnauthorized or ErrServer. Server errors are also pushed to the
// configured notify.Notifier before being returned, so every caller gets a
// toast without handling it. Transport failures wrap ErrUnavailable.
//
// There is no retry and no default timeout; cancellation comes from the
// caller's context or from config's request timeout when set.
package client
