package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context, args []string) error
	VerifyEmail(ctx context.Context, args []string) error
	ResendVerification(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context, args []string) error
	Events(ctx context.Context, args []string) error
	ForgotPassword(ctx context.Context, args []string) error
	ResetPassword(ctx context.Context, args []string) error
	Ping(ctx context.Context, args []string) error
}

const (
	helpLoggedOut = "Available commands: register, verify [token], resend [email], login [email], forgot [email], reset [token], ping, exit"
	helpLoggedIn  = "Available commands: events [limit], logout, ping, exit"
)

// runREPL reads commands from reader until EOF, "exit"/"quit" or ctx is done.
// Command errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "gg%s> ", statusFn())

		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}

		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}
		case "register":
			cmdErr = a.Register(ctx, args)
		case "verify":
			cmdErr = a.VerifyEmail(ctx, args)
		case "resend":
			cmdErr = a.ResendVerification(ctx, args)
		case "login":
			cmdErr = a.Login(ctx, args)
		case "logout":
			cmdErr = a.Logout(ctx, args)
		case "events":
			cmdErr = a.Events(ctx, args)
		case "forgot":
			cmdErr = a.ForgotPassword(ctx, args)
		case "reset":
			cmdErr = a.ResetPassword(ctx, args)
		case "ping":
			cmdErr = a.Ping(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}
