// Package cli provides the interactive DocScrib command-line client.
//
// It wires configuration, the local session database, the API client and
// the session manager into a REPL. Commands are split the way the web
// dashboard splits its pages: guest commands (register, login, google) are
// behind guard.Guest, account commands (profile, update, avatar,
// onboarding, refresh, logout) behind guard.Protected.
//
// Typical flow: check the stored session, land on the login or dashboard
// path, start the background session watcher, then execute user commands.
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
