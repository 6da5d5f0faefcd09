package tool

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/applebooks-mcp/books"
)

// field is one key of a describe block. Exactly one of value or list is used.
type field struct {
	key   string
	value string
	list  []string
}

// str replaces invalid UTF-8 from the store; yaml.v3 refuses it under !!str.
func str(key, value string) field { return field{key: key, value: validUTF8(value)} }

func validUTF8(s string) string { return strings.ToValidUTF8(s, "\uFFFD") }

func integer(key string, value int) field { return str(key, strconv.Itoa(value)) }

func boolean(key string, value bool) field { return str(key, strconv.FormatBool(value)) }

func timestamp(key string, value time.Time) field {
	if value.IsZero() {
		return str(key, "")
	}
	return str(key, value.UTC().Format(time.RFC3339))
}

func collectionFields(c books.Collection) []field {
	titles := make([]string, 0, len(c.Books))
	for _, book := range c.Books {
		titles = append(titles, book.String())
	}
	return []field{
		str("id", c.ID),
		str("title", c.Title),
		str("details", c.Details),
		boolean("hidden", c.Hidden),
		timestamp("last_modified", c.LastModified),
		integer("book_count", len(c.Books)),
		{key: "books", list: titles},
	}
}

func bookFields(b books.Book) []field {
	return []field{
		str("id", b.ID),
		str("title", b.Title),
		str("sort_title", b.SortTitle),
		str("author", b.Author),
		str("genre", b.Genre),
		str("description", b.Description),
		str("path", b.Path),
		str("content_type", b.ContentType),
		integer("page_count", b.PageCount),
		integer("rating", b.Rating),
		str("reading_progress", strconv.FormatFloat(b.ReadingProgress, 'f', -1, 64)),
		boolean("finished", b.Finished),
		boolean("sample", b.Sample),
		timestamp("created", b.Created),
		timestamp("last_opened", b.LastOpened),
		timestamp("modified", b.Modified),
		integer("annotation_count", len(b.Annotations)),
	}
}

func annotationFields(a books.Annotation) []field {
	return []field{
		str("id", a.ID),
		str("asset_id", a.AssetID),
		str("book", a.BookTitle()),
		str("selected_text", a.SelectedText),
		str("representative_text", a.RepresentativeText),
		str("note", a.Note),
		str("color", string(a.Color)),
		str("chapter", a.Chapter),
		str("location", a.Location),
		timestamp("created", a.Created),
		timestamp("modified", a.Modified),
	}
}

// describe serializes fields as a flat YAML mapping in the given key order.
func describe(fields []field) (string, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range fields {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.key}
		var value *yaml.Node
		if f.list != nil {
			value = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
			for _, item := range f.list {
				value.Content = append(value.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: validUTF8(item)})
			}
		} else {
			value = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.value}
		}
		doc.Content = append(doc.Content, key, value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("tool: encode description: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("tool: encode description: %w", err)
	}
	return buf.String(), nil
}
