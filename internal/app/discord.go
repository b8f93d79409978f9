package app

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/pagebot/core/cmd"
	"github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/discord"
	"github.com/m3rciful/pagebot/core/pages"
)

func (a *App) discordRunOptions(lc cmd.Lifecycle) discord.RunOptions {
	core := a.cfg.CoreConfig()
	return discord.RunOptions{
		Config: core,
		Router: discord.NewRouter(core.Discord.CommandPrefix),
		Setup: func(_ context.Context, rt discord.Runtime) error {
			return a.registerDiscord(rt.Router, rt.Host)
		},
		OnStart: func(ctx context.Context, _ discord.Runtime) error {
			lc.Ready(ctx)
			return nil
		},
		OnStop: func(ctx context.Context, _ discord.Runtime) error {
			lc.Stopping(ctx)
			return a.shutdown(ctx)
		},
	}
}

// registerDiscord adds the bot commands to r, posting paginated messages through host.
func (a *App) registerDiscord(r *discord.Router, host pages.Host) error {
	admin := a.cfg.Discord.AdminID
	return errors.Join(
		r.Register("pages", discord.Command{
			Handler:     a.dcPages(host),
			Description: "Open a book: " + r.Prefix() + "pages <book>",
			Aliases:     []string{"p"},
		}),
		r.Register("books", discord.Command{
			Handler:     a.dcBooks,
			Description: "List stored books",
		}),
		r.Register("help", discord.Command{
			Handler:     a.dcHelp(r),
			Description: "Show commands and navigation controls",
		}),
		r.Register("sessions", discord.Command{
			Handler: func(ctx context.Context, inv *discord.Invocation) error {
				if admin == "" || inv.Author.ID != admin {
					return nil
				}
				return inv.Reply(SessionsText(a.library.Sessions().Snapshot()))
			},
			Description: "Show listening paginated messages",
			Hidden:      true,
		}),
	)
}

func (a *App) dcPages(host pages.Host) discord.HandlerFunc {
	return func(ctx context.Context, inv *discord.Invocation) error {
		book := strings.Join(inv.Args, " ")
		_, err := a.library.Open(ctx, host, OpenRequest{
			Book:    book,
			Channel: inv.ChannelID,
			Invoker: inv.Author,
		})
		if err == nil {
			return nil
		}
		_ = inv.Reply(ErrorText(book, err))
		if errors.Is(err, database.ErrBookNotFound) {
			return nil
		}
		return err
	}
}

func (a *App) dcBooks(ctx context.Context, inv *discord.Invocation) error {
	text, err := a.library.Listing(ctx)
	if err != nil {
		_ = inv.Reply(ErrorText("", err))
		return err
	}
	return inv.Reply(text)
}

func (a *App) dcHelp(r *discord.Router) discord.HandlerFunc {
	return func(ctx context.Context, inv *discord.Invocation) error {
		names := r.Names(true)
		lines := make([]string, 0, len(names))
		for _, name := range names {
			_, c, _ := r.Lookup(name)
			lines = append(lines, r.Prefix()+name+" - "+c.Description)
		}
		return inv.Reply(HelpText(lines))
	}
}
