package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/lorrc/devexchange/internal/adapters/primary/terminal"
	"github.com/lorrc/devexchange/internal/adapters/primary/validation"
	"github.com/lorrc/devexchange/internal/config"
	"github.com/lorrc/devexchange/internal/core/domain"
	"github.com/lorrc/devexchange/internal/core/services"
)

// newFlags returns a flag set for one subcommand. Parse errors, including
// --help, are returned to the caller.
func newFlags(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n  devexchange %s %s\n\nFlags:\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}

func parse(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

var errHelp = errors.New("help requested")

// ignoreHelp turns an explicit --help into a clean exit.
func ignoreHelp(err error) error {
	if errors.Is(err, errHelp) {
		return nil
	}
	return err
}

func oneArg(fs *pflag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("expected exactly one %s", what)
	}
	return fs.Arg(0), nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login", "[flags]")
	username := fs.StringP("username", "u", "", "account name")
	password := fs.StringP("password", "p", "", "password (default: $DEVEXCHANGE_PASSWORD, else read from stdin)")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	if *password == "" {
		*password = os.Getenv("DEVEXCHANGE_PASSWORD")
	}
	if *password == "" {
		fmt.Fprint(a.out, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	if err := validation.Login(*username, *password); err != nil {
		return err
	}

	cred, err := a.auth.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s).\n", *username, cred.Role)
	return nil
}

func runLogout(_ context.Context, a *app, args []string) error {
	fs := newFlags("logout", "")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	return a.auth.Logout()
}

func runMe(ctx context.Context, a *app, args []string) error {
	fs := newFlags("me", "")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	me, err := a.profile.Me(ctx)
	if err != nil {
		return err
	}
	terminal.Profile(a.out, me)
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlags("profile", "[--full-name NAME] [--email EMAIL] [--bio TEXT]")
	fullName := fs.String("full-name", "", "display name")
	email := fs.String("email", "", "contact email")
	bio := fs.String("bio", "", "short biography")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	var update domain.ProfileUpdate
	if fs.Changed("full-name") {
		update.FullName = fullName
	}
	if fs.Changed("email") {
		update.Email = email
	}
	if fs.Changed("bio") {
		update.Bio = bio
	}
	if err := validation.Profile(update); err != nil {
		return err
	}

	me, err := a.profile.UpdateProfile(ctx, update)
	if err != nil {
		return err
	}
	terminal.Profile(a.out, me)
	return nil
}

func runTickets(ctx context.Context, a *app, args []string) error {
	fs := newFlags("tickets", "[--mine] [-q TEXT] [--status open|solved] [--priority P]")
	mine := fs.Bool("mine", false, "only tickets I opened")
	query := fs.StringP("query", "q", "", "search title and description")
	status := fs.String("status", "", "open or solved")
	priority := fs.String("priority", "", "critical, high, medium or low")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	filter, err := validation.TicketFilter(*query, *status, *priority)
	if err != nil {
		return err
	}

	var tickets []domain.Ticket
	if *mine {
		tickets, err = a.tickets.MyTickets(ctx, filter)
	} else {
		tickets, err = a.tickets.ListTickets(ctx, filter)
	}
	if err != nil {
		return err
	}
	terminal.Tickets(a.out, tickets)
	return nil
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create", "--title T --description D [--priority P] [--tags a,b]")
	title := fs.StringP("title", "t", "", "ticket title")
	description := fs.StringP("description", "d", "", "what is wrong")
	priority := fs.String("priority", string(domain.PriorityMedium), "critical, high, medium or low")
	tags := fs.String("tags", "", "comma separated tags")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	params, err := validation.NewTicket(*title, *description, *priority, *tags)
	if err != nil {
		return err
	}
	ticket, err := a.tickets.CreateTicket(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created ticket #%s.\n", ticket.ID)
	return nil
}

// openThread mounts a thread view rendered to the terminal.
func (a *app) openThread(ctx context.Context, ticketID, order string) (*services.ThreadView, error) {
	renderer := terminal.NewRenderer(a.out)

	var opts []services.ThreadViewOption
	if order == config.ThreadOrderCreatedAt {
		opts = append(opts, services.WithCreatedAtOrder())
	}

	view := services.NewThreadView(ticketID, services.ThreadViewDeps{
		Tickets:  a.api,
		Comments: a.api,
		Users:    a.api,
		Uploads:  a.api,
		Live:     a.live,
	}, renderer, a.logger, opts...)

	if err := view.Open(ctx); err != nil {
		_ = view.Close()
		return nil, err
	}
	if view.State() == domain.ThreadNotFound {
		_ = view.Close()
		return nil, fmt.Errorf("ticket %s not found", ticketID)
	}
	return view, nil
}

func closeThread(view *services.ThreadView) {
	_ = view.Close()
	view.Wait()
}

func runThread(ctx context.Context, a *app, args []string) error {
	fs := newFlags("thread", "TICKET_ID [--order arrival|created_at]")
	order := fs.String("order", a.cfg.Client.ThreadOrder, "arrival or created_at")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	ticketID, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}
	if *order != config.ThreadOrderArrival && *order != config.ThreadOrderCreatedAt {
		return fmt.Errorf("--order must be %s or %s", config.ThreadOrderArrival, config.ThreadOrderCreatedAt)
	}

	view, err := a.openThread(ctx, ticketID, *order)
	if err != nil {
		return err
	}
	defer closeThread(view)

	fmt.Fprintln(a.out, "Type a message and press enter. /attach PATH, /resolve and /quit are available.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var attachment string
	for {
		select {
		case <-ctx.Done():
			if a.expired() {
				return ctx.Err()
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "/quit":
				return nil
			case line == "/resolve":
				if !view.CanResolve() {
					fmt.Fprintln(a.out, "Only the ticket owner or an administrator can resolve it.")
					continue
				}
				if err := view.Resolve(ctx); err != nil {
					a.logger.Debug("resolve failed", "error", err)
				}
			case strings.HasPrefix(line, "/attach "):
				attachment = strings.TrimSpace(strings.TrimPrefix(line, "/attach "))
				fmt.Fprintf(a.out, "Attached %s to the next message.\n", filepath.Base(attachment))
			default:
				view.SetDraft(line)
				if err := postWithAttachment(ctx, view, attachment); err != nil {
					a.logger.Debug("post failed", "error", err)
					continue
				}
				attachment = ""
			}
		}
	}
}

func postWithAttachment(ctx context.Context, view *services.ThreadView, path string) error {
	if path == "" {
		return view.PostComment(ctx, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open attachment: %w", err)
	}
	defer f.Close()
	return view.PostComment(ctx, &domain.Attachment{Filename: filepath.Base(path), Content: f})
}

func runPost(ctx context.Context, a *app, args []string) error {
	fs := newFlags("post", "TICKET_ID -m MESSAGE [--file PATH]")
	message := fs.StringP("message", "m", "", "comment text")
	file := fs.String("file", "", "file to upload and attach")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	ticketID, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}

	view, err := a.openThread(ctx, ticketID, a.cfg.Client.ThreadOrder)
	if err != nil {
		return err
	}
	defer closeThread(view)

	view.SetDraft(*message)
	return postWithAttachment(ctx, view, *file)
}

func runResolve(ctx context.Context, a *app, args []string) error {
	fs := newFlags("resolve", "TICKET_ID")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	ticketID, err := oneArg(fs, "ticket id")
	if err != nil {
		return err
	}

	view, err := a.openThread(ctx, ticketID, a.cfg.Client.ThreadOrder)
	if err != nil {
		return err
	}
	defer closeThread(view)

	return view.Resolve(ctx)
}

func runNotifications(ctx context.Context, a *app, args []string) error {
	fs := newFlags("notifications", "[--watch] [--open ID]")
	watch := fs.BoolP("watch", "w", false, "stay connected and print new notifications")
	open := fs.String("open", "", "follow the notification link and mark it read")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	renderer := terminal.NewRenderer(a.out)
	center := services.NewNotificationCenter(services.NotificationCenterDeps{
		Users:         a.api,
		Notifications: a.api,
		Live:          a.live,
		Navigator:     a.nav,
	}, renderer, a.logger)

	if err := center.Mount(ctx); err != nil {
		return err
	}
	defer func() {
		_ = center.Unmount()
		center.Wait()
	}()

	if *open != "" {
		if err := center.Open(ctx, *open); err != nil {
			return err
		}
	}

	if !*watch {
		return nil
	}
	<-ctx.Done()
	if a.expired() {
		return ctx.Err()
	}
	return nil
}

func runUsers(ctx context.Context, a *app, args []string) error {
	fs := newFlags("users", "[-q TEXT] [--role admin|manager|user] [--delete ID,...]")
	query := fs.StringP("query", "q", "", "search username, name or email")
	role := fs.String("role", "", "admin, manager or user")
	remove := fs.StringSlice("delete", nil, "ids of users to delete")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}

	if len(*remove) > 0 {
		if err := a.admin.DeleteUsers(ctx, *remove); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %d user(s).\n", len(*remove))
		return nil
	}

	filter, err := validation.UserFilter(*query, *role)
	if err != nil {
		return err
	}
	users, err := a.admin.ListUsers(ctx, filter)
	if err != nil {
		return err
	}
	terminal.Users(a.out, users)
	return nil
}

func runLeaderboard(ctx context.Context, a *app, args []string) error {
	fs := newFlags("leaderboard", "")
	if err := parse(fs, args); err != nil {
		return ignoreHelp(err)
	}
	users, err := a.profile.Leaderboard(ctx)
	if err != nil {
		return err
	}
	terminal.Leaderboard(a.out, users)
	return nil
}
