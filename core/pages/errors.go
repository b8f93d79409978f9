package pages

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyPageSet is returned when pages are created from an empty set.
	ErrEmptyPageSet = errors.New("pages: tried to create pages with no pages in the set")
	// ErrNotInitialized is returned when an operation runs before CreatePages or after the message is gone.
	ErrNotInitialized = errors.New("pages: message has not been created or was deleted")
	// ErrInvalidPage is matched by every *InvalidPageError.
	ErrInvalidPage = errors.New("pages: invalid page")
	// ErrPageIndexOutOfRange is matched by every *PageIndexOutOfRangeError.
	ErrPageIndexOutOfRange = errors.New("pages: page index out of range")
	// ErrAlreadyCreated is returned when CreatePages runs twice on one controller.
	ErrAlreadyCreated = errors.New("pages: message already created")
)

// InvalidPageError describes why a page was refused.
type InvalidPageError struct {
	Reason string
}

func (e *InvalidPageError) Error() string {
	return "pages: invalid page: " + e.Reason
}

// Is makes errors.Is(err, ErrInvalidPage) succeed.
func (e *InvalidPageError) Is(target error) bool { return target == ErrInvalidPage }

// Code returns a stable error code for logs.
func (e *InvalidPageError) Code() string { return "INVALID_PAGE" }

// PageIndexOutOfRangeError reports a page index outside the current set.
type PageIndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *PageIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("pages: page %d does not exist (have %d)", e.Index, e.Count)
}

// Is makes errors.Is(err, ErrPageIndexOutOfRange) succeed.
func (e *PageIndexOutOfRangeError) Is(target error) bool { return target == ErrPageIndexOutOfRange }

// Code returns a stable error code for logs.
func (e *PageIndexOutOfRangeError) Code() string { return "PAGE_INDEX_OUT_OF_RANGE" }
