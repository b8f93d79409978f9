package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pagebot/core/bootstrap"
	"github.com/m3rciful/pagebot/core/database"
	"github.com/m3rciful/pagebot/core/pages"
)

// GuideBook is the book seeded on first start.
const GuideBook = "guide"

const guideColor = 0x5865f2

// GuidePages is the built-in introduction to the bot.
func GuidePages() []pages.Page {
	return []pages.Page{
		{
			Title:       "Welcome to pagebot",
			Description: "pagebot shows long content as a single message you can page through.",
			Color:       guideColor,
			Fields: []pages.Field{
				{Name: "Open a book", Value: "/pages <book>", Inline: true},
				{Name: "List books", Value: "/books", Inline: true},
			},
		},
		{
			Title:       "Navigating",
			Description: "Use the controls under the message to move between pages. Moving past the last page brings you back to the first.",
			Color:       guideColor,
		},
		{
			Title:       "Jumping",
			Description: "The outer controls skip ten pages at once and stop at the first or last page.",
			Color:       guideColor,
		},
		{
			Title:       "Help and stop",
			Description: "The help control swaps the current page for a legend and back. The stop control ends navigation; the page stays readable.",
			Color:       guideColor,
		},
		{
			Title:       "Time limit",
			Description: "A message listens for a limited time. When it ends the controls disappear but the page stays readable.",
			Color:       guideColor,
		},
	}
}

// GuideSeeder stores the guide book unless one is already present.
func GuideSeeder() bootstrap.NamedSeeder {
	return bootstrap.NamedSeeder{
		Name: "guide_book",
		Seeder: bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			return seedGuide(ctx, database.NewCatalog(db))
		}),
	}
}

func seedGuide(ctx context.Context, c *database.Catalog) error {
	_, err := c.Book(ctx, GuideBook)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, database.ErrBookNotFound):
		return fmt.Errorf("check guide book: %w", err)
	}
	return c.SaveBook(ctx, GuideBook, GuidePages())
}
