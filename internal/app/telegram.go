package app

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/pagebot/core/cmd"
	"github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/outbox"
	"github.com/m3rciful/pagebot/core/pages"
	coretelegram "github.com/m3rciful/pagebot/core/telegram"
	tghelpers "github.com/m3rciful/pagebot/core/telegram/helpers"
	"github.com/m3rciful/pagebot/core/telegram/pagehost"
	"github.com/m3rciful/pagebot/core/telegram/router"

	tele "gopkg.in/telebot.v4"
)

// telegramRunOptions wires the bot commands, the navigation callback and the page host.
func (a *App) telegramRunOptions(lc cmd.Lifecycle) (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	bot, err := a.newBot(core)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}
	out := coretelegram.NewOutbox(outbox.Options{})
	host := pagehost.New(bot, pagehost.WithOutbox(out))

	reg := coretelegram.NewRegistry()
	err = errors.Join(
		reg.RegisterCallback(pagehost.CallbackUnique, host.HandleCallback),
		reg.RegisterCommand("/pages", coretelegram.Command{
			Handler:     a.tgPages(host),
			Description: "Open a book: /pages <book>",
			Aliases:     []string{"p"},
		}),
		reg.RegisterCommand("/books", coretelegram.Command{
			Handler:     a.tgBooks,
			Description: "List stored books",
		}),
		reg.RegisterCommand("/help", coretelegram.Command{
			Handler:     a.tgHelp(reg),
			Description: "Show commands and navigation controls",
			Aliases:     []string{"start"},
		}),
		reg.RegisterCommand("/sessions", coretelegram.Command{
			Handler:     a.tgSessions,
			Description: "Show listening paginated messages",
			AdminOnly:   true,
		}),
	)
	if err != nil {
		out.Close()
		return coretelegram.RunOptions{}, err
	}

	return coretelegram.RunOptions{
		Config:      core,
		Registry:    reg,
		Bot:         bot,
		Outbox:      out,
		Middlewares: coretelegram.DefaultMiddlewares(core, nil),
		Routes:      router.Routes(reg, router.Options{AdminID: core.Telegram.AdminID}),
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			lc.Ready(ctx)
			return nil
		},
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			lc.Stopping(ctx)
			return a.shutdown(ctx)
		},
	}, nil
}

func telegramUser(u *tele.User) pages.User {
	if u == nil {
		return pages.User{}
	}
	return pages.User{ID: strconv.FormatInt(u.ID, 10), Name: u.Username, Bot: u.IsBot}
}

func (a *App) tgPages(host pages.Host) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil {
			return nil
		}
		ctx := tghelpers.Context(c)
		book := strings.Join(c.Args(), " ")
		_, err := a.library.Open(ctx, host, OpenRequest{
			Book:    book,
			Channel: strconv.FormatInt(c.Chat().ID, 10),
			Invoker: telegramUser(c.Sender()),
		})
		if err == nil {
			return nil
		}
		_ = tghelpers.SendText(c, ErrorText(book, err))
		if errors.Is(err, database.ErrBookNotFound) {
			return nil
		}
		return err
	}
}

func (a *App) tgBooks(c tele.Context) error {
	text, err := a.library.Listing(tghelpers.Context(c))
	if err != nil {
		_ = tghelpers.SendText(c, ErrorText("", err))
		return err
	}
	return tghelpers.SendText(c, text)
}

func (a *App) tgHelp(reg *coretelegram.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		list := reg.ListCommands(true)
		lines := make([]string, 0, len(list))
		for _, entry := range list {
			lines = append(lines, entry.Text+" - "+entry.Description)
		}
		return tghelpers.SendText(c, HelpText(lines))
	}
}

func (a *App) tgSessions(c tele.Context) error {
	return tghelpers.SendText(c, SessionsText(a.library.Sessions().Snapshot()))
}
