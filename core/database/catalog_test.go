package database

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/pagebot/core/pages"
)

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	return NewCatalog(openMigrated(t))
}

func TestCatalogSaveAndLoadBook(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	book := []pages.Page{
		{Title: "One", Description: "first", Color: 0xff0000},
		{Title: "Two", Fields: []pages.Field{{Name: "k", Value: "v", Inline: true}}},
		{Description: "three", URL: "https://e.com", ImageURL: "https://e.com/i.png"},
	}
	if err := c.SaveBook(ctx, " Guide ", book); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := c.Book(ctx, "GUIDE")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("pages = %d", len(got))
	}
	if got[0].Title != "One" || got[0].Color != 0xff0000 {
		t.Fatalf("page 0 = %+v", got[0])
	}
	if len(got[1].Fields) != 1 || got[1].Fields[0] != (pages.Field{Name: "k", Value: "v", Inline: true}) {
		t.Fatalf("page 1 fields = %+v", got[1].Fields)
	}
	if got[2].URL != "https://e.com" || got[2].ImageURL != "https://e.com/i.png" || got[2].Fields != nil {
		t.Fatalf("page 2 = %+v", got[2])
	}

	// replacing a book drops pages beyond the new length
	if err := c.SaveBook(ctx, "guide", book[:1]); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = c.Book(ctx, "guide")
	if err != nil || len(got) != 1 {
		t.Fatalf("after resave: %d pages, err %v", len(got), err)
	}
}

func TestCatalogSavePageUpserts(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	if err := c.SavePage(ctx, "notes", 1, pages.Page{Title: "second"}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := c.SavePage(ctx, "notes", 0, pages.Page{Title: "first"}); err != nil {
		t.Fatalf("save 0: %v", err)
	}
	if err := c.SavePage(ctx, "notes", 1, pages.Page{Title: "second, edited"}); err != nil {
		t.Fatalf("update 1: %v", err)
	}
	got, err := c.Book(ctx, "notes")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0].Title != "first" || got[1].Title != "second, edited" {
		t.Fatalf("book = %+v", got)
	}

	if err := c.SavePage(ctx, "notes", -1, pages.Page{Title: "x"}); err == nil {
		t.Fatal("expected error for negative position")
	}
	if err := c.SavePage(ctx, "notes", 2, pages.Page{}); !errors.Is(err, pages.ErrInvalidPage) {
		t.Fatalf("empty page error = %v", err)
	}
}

func TestCatalogBooks(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	books, err := c.Books(ctx)
	if err != nil || len(books) != 0 {
		t.Fatalf("empty catalog = %v, %v", books, err)
	}
	_ = c.SaveBook(ctx, "zeta", []pages.Page{{Title: "z"}})
	_ = c.SaveBook(ctx, "alpha", []pages.Page{{Title: "a"}, {Title: "b"}})

	books, err = c.Books(ctx)
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	if len(books) != 2 || books[0] != (BookInfo{Name: "alpha", Pages: 2}) || books[1].Name != "zeta" {
		t.Fatalf("books = %+v", books)
	}
}

func TestCatalogErrors(t *testing.T) {
	ctx := context.Background()
	c := openCatalog(t)

	if _, err := c.Book(ctx, "missing"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("missing book error = %v", err)
	}
	if err := c.SaveBook(ctx, "empty", nil); !errors.Is(err, pages.ErrEmptyPageSet) {
		t.Fatalf("empty book error = %v", err)
	}
	if err := c.SaveBook(ctx, "  ", []pages.Page{{Title: "x"}}); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := c.SaveBook(ctx, "bad", []pages.Page{{Title: "ok"}, {}}); !errors.Is(err, pages.ErrInvalidPage) {
		t.Fatalf("invalid page error = %v", err)
	}
}

func TestFieldsJSONScan(t *testing.T) {
	var f fieldsJSON
	if err := f.Scan([]byte(`[{"name":"a","value":"b"}]`)); err != nil || len(f) != 1 || f[0].Name != "a" {
		t.Fatalf("scan bytes = %+v, %v", f, err)
	}
	if err := f.Scan(nil); err != nil || f != nil {
		t.Fatalf("scan nil = %+v, %v", f, err)
	}
	if err := f.Scan(42); err == nil {
		t.Fatal("expected error for int source")
	}
	v, err := fieldsJSON(nil).Value()
	if err != nil || v != "[]" {
		t.Fatalf("empty value = %v, %v", v, err)
	}
}
