package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docscrib/docscrib-cli/internal/client/client"
	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/oauth"
	"github.com/docscrib/docscrib-cli/internal/client/services"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	state() models.AuthState
	settle(ctx context.Context) models.AuthState
	navigator() guard.Navigator

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Google(ctx context.Context) error
	Profile(ctx context.Context) error
	Update(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Onboarding(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
}

const (
	guestHelp     = "Available commands: register, login, google, help, exit"
	protectedHelp = "Available commands: profile, update, avatar [path], onboarding, refresh, logout, help, exit"
)

// runREPL starts a simple read-eval-print loop for the DocScrib CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Guest commands run only when guard.Guest
// renders, account commands only when guard.Protected does; otherwise the
// guard's redirect is applied and the command is skipped. A command that
// arrives while the session is being checked waits for the check first. The loop exits
// on EOF, when ctx is done, or when the user types "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("docscrib %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.state().IsAuthenticated {
				printlnFn(protectedHelp)
			} else {
				printlnFn(guestHelp)
			}

		case "register", "login", "google":
			if !admit(ctx, a, guard.Guest) {
				continue
			}
			switch cmd {
			case "register":
				cmdErr = a.Register(ctx)
			case "login":
				cmdErr = a.Login(ctx)
			default:
				cmdErr = a.Google(ctx)
			}

		case "profile", "update", "avatar", "onboarding", "refresh", "logout":
			if !admit(ctx, a, guard.Protected) {
				continue
			}
			switch cmd {
			case "profile":
				cmdErr = a.Profile(ctx)
			case "update":
				cmdErr = a.Update(ctx)
			case "avatar":
				path := ""
				if len(args) > 0 {
					path = args[0]
				}
				cmdErr = a.Avatar(ctx, path)
			case "onboarding":
				cmdErr = a.Onboarding(ctx)
			case "refresh":
				cmdErr = a.Refresh(ctx)
			default:
				cmdErr = a.Logout(ctx)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describeError(cmdErr))
		}
	}
}

// admit runs g against the session. When g cannot decide because a session
// operation is in flight, it waits for that operation once and asks again.
func admit(ctx context.Context, a execIface, g func(models.AuthState) guard.Decision) bool {
	d := g(a.state())
	if d.Pending() {
		d = g(a.settle(ctx))
	}
	return allowed(d, a.navigator())
}

// allowed applies a guard decision and explains a refusal.
func allowed(d guard.Decision, nav guard.Navigator) bool {
	if guard.Enforce(d, nav) {
		return true
	}
	switch d.Redirect {
	case guard.DashboardPath:
		printlnFn("You are already logged in. Use 'logout' first.")
	case guard.LoginPath:
		printlnFn("Please log in first.")
	default:
		printlnFn("Session check in progress, try again in a moment.")
	}
	return false
}

// describeError turns an error into the text shown next to the prompt.
func describeError(err error) string {
	var (
		apiErr  *client.APIError
		rejErr  *models.RejectedError
		valErr  *models.ValidationError
		provErr *oauth.ProviderError
	)
	switch {
	case errors.As(err, &valErr):
		return valErr.Error()
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &rejErr):
		if rejErr.Message != "" {
			return rejErr.Message
		}
		return "the server rejected the request"
	case errors.As(err, &provErr):
		return provErr.Error()
	case errors.Is(err, client.ErrUnavailable):
		return "the server is unavailable, try again later"
	case errors.Is(err, models.ErrUnrecognizedPayload):
		return "unexpected response from the server"
	case errors.Is(err, services.ErrSessionChanged):
		return "your session changed while the request was running"
	default:
		return err.Error()
	}
}
