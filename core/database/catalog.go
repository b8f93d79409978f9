package database

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/pagebot/core/logger"
	"github.com/m3rciful/pagebot/core/pages"
)

// ErrBookNotFound is returned when a book has no stored pages.
var ErrBookNotFound = errors.New("database: book not found")

const (
	selectBook = `SELECT book, position, title, description, url, color, image_url, fields
FROM page_documents WHERE book = ? ORDER BY position`

	selectBooks = `SELECT book, COUNT(*) AS pages FROM page_documents GROUP BY book ORDER BY book`

	upsertPage = `INSERT INTO page_documents (book, position, title, description, url, color, image_url, fields)
VALUES (:book, :position, :title, :description, :url, :color, :image_url, :fields)
ON CONFLICT (book, position) DO UPDATE SET
	title = excluded.title,
	description = excluded.description,
	url = excluded.url,
	color = excluded.color,
	image_url = excluded.image_url,
	fields = excluded.fields,
	updated_at = CURRENT_TIMESTAMP`

	deleteBook = `DELETE FROM page_documents WHERE book = ?`
)

// BookInfo summarises one stored book.
type BookInfo struct {
	Name  string `db:"book"`
	Pages int    `db:"pages"`
}

// Catalog stores page books: named, ordered lists of pages.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog returns a Catalog backed by db.
func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

type storedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// fieldsJSON is the jsonb fields column.
type fieldsJSON []storedField

// Value encodes as text; lib/pq would send []byte as bytea.
func (f fieldsJSON) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]storedField(f))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan decodes the column from either driver representation.
func (f *fieldsJSON) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*f = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("database: cannot scan %T into page fields", src)
	}
	return json.Unmarshal(data, (*[]storedField)(f))
}

type pageRow struct {
	Book        string     `db:"book"`
	Position    int        `db:"position"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	URL         string     `db:"url"`
	Color       int        `db:"color"`
	ImageURL    string     `db:"image_url"`
	Fields      fieldsJSON `db:"fields"`
}

func rowFromPage(book string, position int, p pages.Page) pageRow {
	row := pageRow{
		Book:        book,
		Position:    position,
		Title:       p.Title,
		Description: p.Description,
		URL:         p.URL,
		Color:       p.Color,
		ImageURL:    p.ImageURL,
	}
	for _, f := range p.Fields {
		row.Fields = append(row.Fields, storedField(f))
	}
	return row
}

func (r pageRow) page() pages.Page {
	p := pages.Page{
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		Color:       r.Color,
		ImageURL:    r.ImageURL,
	}
	for _, f := range r.Fields {
		p.Fields = append(p.Fields, pages.Field(f))
	}
	return p
}

func normalizeBook(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Book loads the pages of a book in order.
func (c *Catalog) Book(ctx context.Context, name string) ([]pages.Page, error) {
	name = normalizeBook(name)
	start := time.Now()
	var rows []pageRow
	if err := c.db.SelectContext(ctx, &rows, c.db.Rebind(selectBook), name); err != nil {
		return nil, fmt.Errorf("load book %q: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, ErrBookNotFound
	}
	out := make([]pages.Page, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.page())
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelDebug, "catalog.book.load",
		slog.String("book", name),
		slog.Int("pages", len(out)),
		slog.Duration("duration", logger.Took(start)),
	)
	return out, nil
}

// Books lists stored books alphabetically.
func (c *Catalog) Books(ctx context.Context) ([]BookInfo, error) {
	var books []BookInfo
	if err := c.db.SelectContext(ctx, &books, selectBooks); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// SavePage inserts or replaces the page at position in book.
func (c *Catalog) SavePage(ctx context.Context, book string, position int, p pages.Page) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if position < 0 {
		return fmt.Errorf("save page: negative position %d", position)
	}
	book = normalizeBook(book)
	if _, err := c.db.NamedExecContext(ctx, upsertPage, rowFromPage(book, position, p)); err != nil {
		return fmt.Errorf("save page %s/%d: %w", book, position, err)
	}
	return nil
}

// SaveBook replaces every page of book in one transaction.
func (c *Catalog) SaveBook(ctx context.Context, book string, set []pages.Page) (err error) {
	book = normalizeBook(book)
	if book == "" {
		return errors.New("save book: empty name")
	}
	if len(set) == 0 {
		return pages.ErrEmptyPageSet
	}
	for _, p := range set {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save book %s: begin: %w", book, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(deleteBook), book); err != nil {
		return fmt.Errorf("save book %s: clear: %w", book, err)
	}
	for i, p := range set {
		if _, err = tx.NamedExecContext(ctx, upsertPage, rowFromPage(book, i, p)); err != nil {
			return fmt.Errorf("save book %s: page %d: %w", book, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("save book %s: commit: %w", book, err)
	}
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "catalog.book.save",
		slog.String("book", book),
		slog.Int("pages", len(set)),
	)
	return nil
}
