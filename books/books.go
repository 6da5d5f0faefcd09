package books

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// OrderCreatedDesc orders annotations by creation time, newest first.
const OrderCreatedDesc = "-creation_date"

// OrderCreatedAsc orders annotations by creation time, oldest first.
const OrderCreatedAsc = "creation_date"

// Collection is a user-defined grouping of books.
type Collection struct {
	ID           string
	Title        string
	Details      string
	Hidden       bool
	LastModified time.Time
	Books        []Book
}

// String renders the collection on one line.
func (c Collection) String() string {
	return fmt.Sprintf("%s (ID: %s) - %d books", SingleLine(c.Title), c.ID, len(c.Books))
}

// Book is one asset in the library.
type Book struct {
	ID              string
	Title           string
	SortTitle       string
	Author          string
	Genre           string
	Description     string
	Path            string
	ContentType     string
	PageCount       int
	Rating          int
	ReadingProgress float64
	Finished        bool
	Sample          bool
	Created         time.Time
	LastOpened      time.Time
	Modified        time.Time
	Annotations     []Annotation
}

// String renders the book on one line.
func (b Book) String() string {
	title := SingleLine(b.Title)
	if title == "" {
		title = "Untitled"
	}
	if author := SingleLine(b.Author); author != "" {
		return fmt.Sprintf("%s by %s (ID: %s)", title, author, b.ID)
	}
	return fmt.Sprintf("%s (ID: %s)", title, b.ID)
}

// Annotation is a highlight and/or note attached to a passage of a book.
type Annotation struct {
	ID                 string
	AssetID            string
	SelectedText       string
	RepresentativeText string
	Note               string
	Color              Color
	Chapter            string
	Location           string
	Created            time.Time
	Modified           time.Time
	// Book is nil when the owning book cannot be resolved.
	Book *Book
}

// String renders the annotation on one line.
func (a Annotation) String() string {
	var b strings.Builder
	if a.SelectedText != "" {
		fmt.Fprintf(&b, "Highlight: %s", SingleLine(a.SelectedText))
	} else {
		b.WriteString("Highlight: (none)")
	}
	if a.Color != "" {
		fmt.Fprintf(&b, " [%s]", a.Color)
	}
	if a.Note != "" {
		fmt.Fprintf(&b, " - Note: %s", SingleLine(a.Note))
	}
	return b.String()
}

// BookTitle returns the owning book's title or "Unknown".
func (a Annotation) BookTitle() string {
	if a.Book == nil || strings.TrimSpace(a.Book.Title) == "" {
		return "Unknown"
	}
	return SingleLine(a.Book.Title)
}

// ListOptions narrows ListAnnotations.
type ListOptions struct {
	// Limit caps the result size; zero means no limit.
	Limit int
	// OrderBy is OrderCreatedDesc, OrderCreatedAsc or empty for store order.
	OrderBy string
}

// Library is the data access facade over an Apple Books library.
// Implementations return ErrNotFound, ErrInvalidArgument or ErrUnavailable
// (possibly wrapped) on failure.
type Library interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	GetCollection(ctx context.Context, id string) (Collection, error)
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id string) (Book, error)
	ListAnnotations(ctx context.Context, opts ListOptions) ([]Annotation, error)
	GetAnnotation(ctx context.Context, id string) (Annotation, error)
	AnnotationsByColor(ctx context.Context, color string) ([]Annotation, error)
	SearchHighlightedText(ctx context.Context, text string) ([]Annotation, error)
	SearchNotes(ctx context.Context, text string) ([]Annotation, error)
	SearchText(ctx context.Context, text string) ([]Annotation, error)
}

// SingleLine collapses every run of whitespace, line breaks included, into
// one space so a store value renders on a single line.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
