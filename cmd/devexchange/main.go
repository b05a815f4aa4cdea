package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/lorrc/devexchange/internal/adapters/primary/terminal"
	"github.com/lorrc/devexchange/internal/adapters/secondary/live"
	"github.com/lorrc/devexchange/internal/adapters/secondary/rest"
	"github.com/lorrc/devexchange/internal/adapters/secondary/session"
	"github.com/lorrc/devexchange/internal/config"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
	"github.com/lorrc/devexchange/internal/core/services"
	"github.com/lorrc/devexchange/internal/infrastructure/logging"
)

// exitSessionExpired is returned after the session ended under a running
// command. The login message has already been printed.
const exitSessionExpired = 2

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":         {"sign in and store the session", runLogin},
	"logout":        {"drop the stored session", runLogout},
	"me":            {"show the signed-in user", runMe},
	"profile":       {"update full name, email or bio", runProfile},
	"tickets":       {"list tickets", runTickets},
	"create":        {"file a new ticket", runCreate},
	"thread":        {"open a ticket thread and follow it live", runThread},
	"post":          {"post one comment to a ticket", runPost},
	"resolve":       {"mark a ticket solved (owner or admin)", runResolve},
	"notifications": {"list, open or watch notifications", runNotifications},
	"users":         {"list or delete users (admins)", runUsers},
	"leaderboard":   {"show the top contributors", runLeaderboard},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, apperrors.ErrSessionExpired) {
			os.Exit(exitSessionExpired)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	flagSet := pflag.NewFlagSet("devexchange", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	logLevel := flagSet.String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(argv); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(os.Stderr)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printHelp(os.Stderr)
		return nil
	}

	name := flagSet.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		printHelp(os.Stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := newApp(cfg, os.Stdout, cancel)
	if err != nil {
		return err
	}

	if err := cmd.run(ctx, a, flagSet.Args()[1:]); err != nil {
		if errors.Is(err, context.Canceled) && a.expired() {
			return apperrors.ErrSessionExpired
		}
		return err
	}
	if a.expired() {
		return apperrors.ErrSessionExpired
	}
	return nil
}

// app is the wired client: one session, one REST client, one live dialer.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer

	nav     *terminal.Navigator
	session *session.Session
	api     *rest.Client
	live    *live.Dialer

	auth    *services.AuthService
	tickets *services.TicketService
	profile *services.ProfileService
	admin   *services.AdminService

	// ended is closed if the credential present at start-up expires.
	ended <-chan struct{}
}

func newApp(cfg *config.Config, out io.Writer, cancel context.CancelFunc) (*app, error) {
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stderr,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	nav := terminal.NewNavigator(out)
	nav.OnLogin(func(expired bool) {
		if expired {
			cancel()
		}
	})

	mirror, err := session.NewCookieMirror(nil, cfg.Client.FrontendURL, cfg.Edge.SessionCookie)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Client.HTTPTimeout, Jar: mirror.Jar()}

	sess, err := session.New(session.NewFileStore(cfg.Client.SessionFile), mirror, nav, httpClient, logger)
	if err != nil {
		return nil, err
	}

	api, err := rest.NewClient(cfg.Client.APIBaseURL, sess, logger,
		rest.WithHTTPClient(httpClient),
		rest.WithRateLimit(cfg.Client.RequestsPerS, cfg.Client.Burst),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		nav:     nav,
		session: sess,
		api:     api,
		live:    live.NewDialer(cfg.Client.WSBaseURL, cfg.WebSocket, logger),
		auth:    services.NewAuthService(api, sess, nav, logger),
		tickets: services.NewTicketService(api, api),
		profile: services.NewProfileService(api),
		admin:   services.NewAdminService(api, sess, nav, logger),
		ended:   sess.Expired(),
	}, nil
}

// expired reports whether the session ended while the command ran.
func (a *app) expired() bool {
	select {
	case <-a.ended:
		return true
	default:
		return false
	}
}

func printHelp(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "DevExchange terminal client.\n\nUsage:\n  devexchange [--log-level LEVEL] <command> [flags]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nRun \"devexchange <command> --help\" for command flags.\n")
}
