package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	gs "github.com/dmitrijs2005/gophguard/internal/server/grpc"
)

var (
	errNotLoggedIn      = errors.New("not logged in")
	errAlreadyLoggedIn  = errors.New("already logged in, logout first")
	errPasswordMismatch = errors.New("passwords do not match")
	errEmptyInput       = errors.New("value is required")
)

// callError is an RPC failure together with the trailer the server sent.
type callError struct {
	err     error
	trailer metadata.MD
}

func (e *callError) Error() string {
	return describe(e.err, e.trailer)
}

func (e *callError) Unwrap() error {
	return e.err
}

func wrapCall(err error, trailer metadata.MD) error {
	if err == nil {
		return nil
	}
	return &callError{err: err, trailer: trailer}
}

// describe turns a gRPC status and its trailer into a line for the user.
func describe(err error, trailer metadata.MD) string {
	st, ok := status.FromError(err)
	if !ok {
		return err.Error()
	}

	switch st.Code() {
	case codes.Unavailable:
		return "server unavailable, try again later"
	case codes.DeadlineExceeded:
		return "request timed out"
	}

	var hints []string
	if v := first(trailer, gs.TrailerRemainingAttempts); v != "" {
		hints = append(hints, v+" attempt(s) left before lockout")
	}
	if v := first(trailer, gs.TrailerLockedUntil); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			hints = append(hints, "locked until "+t.Local().Format(time.DateTime))
		}
	}

	if len(hints) == 0 {
		return st.Message()
	}
	return fmt.Sprintf("%s (%s)", st.Message(), strings.Join(hints, ", "))
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
