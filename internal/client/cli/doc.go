// Package cli provides the interactive GophGuard console client.
//
// It dials the AccessControl service, keeps the session token of the
// current login in memory and runs a REPL. Typical flow: register, follow
// the verification link, login (answering the e-mailed code when asked),
// inspect login events and logout.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits
// or input ends.
package cli
