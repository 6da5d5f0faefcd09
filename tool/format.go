package tool

import (
	"fmt"
	"strings"

	"github.com/petal-labs/applebooks-mcp/books"
)

// formatList renders "<kind>:\n" followed by one block per item, each
// terminated by a blank line. Items keep the order they were given in.
func formatList[T fmt.Stringer](kind string, items []T, detail func(T) string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString(":\n")
	for _, item := range items {
		b.WriteString(item.String())
		b.WriteString("\n")
		if detail != nil {
			b.WriteString(detail(item))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatCollections(collections []books.Collection) string {
	return formatList("Collections", collections, nil)
}

func formatBooks(items []books.Book) string {
	return formatList("Books", items, nil)
}

func formatAnnotations(annotations []books.Annotation) string {
	return formatList("Annotations", annotations, annotationPlacement)
}

func annotationPlacement(a books.Annotation) string {
	return fmt.Sprintf("Book: %s - Chapter: %s - Location: %s",
		a.BookTitle(), books.SingleLine(a.Chapter), books.SingleLine(a.Location))
}
