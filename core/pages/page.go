package pages

import (
	"fmt"
	"unicode/utf8"
)

const (
	maxTitleRunes       = 256
	maxDescriptionRunes = 4096
	maxFields           = 25
)

// Field is a named block of text shown below the page description.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Page is one renderable unit of a paginated message.
// Pages are treated as values: the controller copies them on entry and never writes into them.
type Page struct {
	Title       string
	Description string
	URL         string
	Color       int
	ImageURL    string
	Fields      []Field
}

// Validate reports whether p has a shape every host can display.
func (p Page) Validate() error {
	if p.Title == "" && p.Description == "" && len(p.Fields) == 0 {
		return &InvalidPageError{Reason: "page has no title, description or fields"}
	}
	if n := utf8.RuneCountInString(p.Title); n > maxTitleRunes {
		return &InvalidPageError{Reason: fmt.Sprintf("title has %d runes, max %d", n, maxTitleRunes)}
	}
	if n := utf8.RuneCountInString(p.Description); n > maxDescriptionRunes {
		return &InvalidPageError{Reason: fmt.Sprintf("description has %d runes, max %d", n, maxDescriptionRunes)}
	}
	if len(p.Fields) > maxFields {
		return &InvalidPageError{Reason: fmt.Sprintf("page has %d fields, max %d", len(p.Fields), maxFields)}
	}
	for i, f := range p.Fields {
		if f.Name == "" || f.Value == "" {
			return &InvalidPageError{Reason: fmt.Sprintf("field %d needs both name and value", i)}
		}
	}
	return nil
}

func (p Page) clone() Page {
	if p.Fields != nil {
		p.Fields = append([]Field(nil), p.Fields...)
	}
	return p
}

// Render is what a host displays: a page plus the footer line computed for it.
type Render struct {
	Page   Page
	Footer string
}

// RenderPage pairs a page with its footer. The page is copied, so hosts may keep the result.
func RenderPage(p Page, footer string) Render {
	return Render{Page: p.clone(), Footer: footer}
}

// FooterText formats the page counter shown under each page, 1-indexed.
func FooterText(index, count int) string {
	return fmt.Sprintf("Page: %d/%d", index+1, count)
}

const helpFooter = "You are currently using this help page. React ℹ️ again to continue navigating."

var helpPage = Page{
	Title: "Page Navigation",
	Description: "React with:\n" +
		string(SkipBack) + " to go 10 pages backwards.\n" +
		string(Back) + " to go 1 page backward.\n" +
		string(Forward) + " to go 1 page forward.\n" +
		string(SkipForward) + " to go 10 pages forwards.\n" +
		string(Stop) + " to stop the navigation.\n" +
		string(Help) + " to display this page again.",
}

// HelpPage returns the navigation legend shown while help mode is active.
func HelpPage() Page {
	return helpPage.clone()
}

func helpRender() Render {
	return RenderPage(helpPage, helpFooter)
}
