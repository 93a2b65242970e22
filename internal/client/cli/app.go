package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docscrib/docscrib-cli/internal/client/client"
	"github.com/docscrib/docscrib-cli/internal/client/config"
	"github.com/docscrib/docscrib-cli/internal/client/guard"
	"github.com/docscrib/docscrib-cli/internal/client/models"
	"github.com/docscrib/docscrib-cli/internal/client/notify"
	"github.com/docscrib/docscrib-cli/internal/client/oauth"
	"github.com/docscrib/docscrib-cli/internal/client/repositories/metadata"
	"github.com/docscrib/docscrib-cli/internal/client/services"
	"github.com/docscrib/docscrib-cli/internal/client/tokens"
	"github.com/docscrib/docscrib-cli/internal/filex"
	"github.com/docscrib/docscrib-cli/internal/logging"
)

type App struct {
	config   *config.Config
	auth     services.AuthService
	api      client.Client
	google   *oauth.Google
	location *guard.Location
	log      logging.Logger
	reader   *bufio.Reader
	db       *sql.DB

	outMu sync.Mutex
	out   io.Writer
}

// NewApp opens the session database under cfg.DataDir and builds the API
// client and session manager on top of it.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dir, err := filex.EnsureDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	db, err := client.InitDatabase(ctx, filepath.Join(dir, c.DatabaseFile))
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := tokens.NewMetadataStore(db, c.TokenExpiryLeeway)
	notifier := notify.Multi{notify.NewWriterNotifier(os.Stdout), notify.NewLogNotifier(log)}

	api, err := client.NewHTTPClient(
		client.HTTPClientConfig{BaseURL: c.ServerBaseURL, Timeout: c.RequestTimeout},
		store,
		client.WithNotifier(notifier),
		client.WithLogger(log),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var g *oauth.Google
	if c.GoogleEnabled() {
		if g, err = oauth.NewGoogle(c.GoogleClientID, c.GoogleRedirectURL); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	loc := guard.NewLocation("/")
	users := services.NewUserStore(metadata.NewSQLiteRepository(db))
	as := services.NewAuthService(api, store, users,
		services.WithNavigator(loc),
		services.WithLogger(log),
	)

	return &App{
		config:   c,
		auth:     as,
		api:      api,
		google:   g,
		location: loc,
		log:      log.With("component", "cli"),
		reader:   bufio.NewReader(os.Stdin),
		db:       db,
		out:      os.Stdout,
	}, nil
}

// Run checks the stored session, lands on the matching page and serves the
// REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	a.println("Welcome to DocScrib CLI (type 'help' for commands)")

	st := a.auth.CheckAuthStatus(ctx)
	a.land(st)
	if st.IsAuthenticated {
		a.println("Signed in as " + st.User.DisplayName())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.followSession(ctx)
	go a.StartSessionWatcher(ctx, a.config.SessionCheckInterval)

	runREPL(ctx, a, a.status, a.reader)
	return nil
}

// Close releases the session manager, the API client and the database.
func (a *App) Close() error {
	var errs []error
	if a.auth != nil {
		errs = append(errs, a.auth.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

// land routes to the dashboard when the session allows it and to the login
// page otherwise.
func (a *App) land(st models.AuthState) {
	if guard.Enforce(guard.Protected(st), a.location) {
		a.location.Navigate(guard.DashboardPath)
	}
}

// StartSessionWatcher re-checks the session every interval so an access
// token that expires while the shell is open sends the user back to the
// login page. A non-positive interval disables it.
func (a *App) StartSessionWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			before := a.auth.State()
			after := a.auth.Refresh(ctx)

			if before.IsAuthenticated && !after.IsAuthenticated {
				a.log.Info(ctx, "session ended", "phase", after.Phase.String())
				a.println("Your session has ended. Please log in again.")
				guard.Enforce(guard.Protected(after), a.location)
			}

		case <-ctx.Done():
			return
		}
	}
}

// followSession logs every phase change published by the session manager.
func (a *App) followSession(ctx context.Context) {
	ch, unsubscribe := a.auth.Subscribe()
	defer unsubscribe()

	last := models.PhaseUnknown
	for {
		select {
		case st, ok := <-ch:
			if !ok {
				return
			}
			if st.Phase != last {
				a.log.Debug(ctx, "session phase", "from", last.String(), "to", st.Phase.String())
				last = st.Phase
			}
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) status() string {
	st := a.auth.State()
	if st.IsAuthenticated && st.User != nil {
		return fmt.Sprintf("(%s %s)", st.User.DisplayName(), a.location.Path())
	}
	return fmt.Sprintf("(%s)", a.location.Path())
}

func (a *App) state() models.AuthState {
	return a.auth.State()
}

// settleTimeout bounds how long a command waits for a session operation
// that is already running, such as the watcher's periodic refresh.
const settleTimeout = 5 * time.Second

// settle waits until no session operation is in flight, ctx is done or
// settleTimeout passes, and returns the session as it then stands.
func (a *App) settle(ctx context.Context) models.AuthState {
	ch, unsubscribe := a.auth.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()

	for {
		select {
		case st, ok := <-ch:
			if !ok || !st.IsLoading {
				return a.auth.State()
			}
		case <-ctx.Done():
			return a.auth.State()
		}
	}
}

func (a *App) navigator() guard.Navigator {
	return a.location
}

func (a *App) println(args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, args...)
}
