package tool

import (
	"context"

	"github.com/petal-labs/applebooks-mcp/books"
)

// RecentAnnotationsLimit caps recent_annotations.
const RecentAnnotationsLimit = 10

var (
	argCollectionID = Arg{Name: "collection_id", Description: "Identifier of the collection"}
	argBookID       = Arg{Name: "book_id", Description: "Identifier (asset id) of the book"}
	argAnnotationID = Arg{Name: "annotation_id", Description: "Identifier (UUID) of the annotation"}
	argColor        = Arg{Name: "color", Description: "Highlight color: underline, green, blue, yellow, pink or purple"}
	argText         = Arg{Name: "text", Description: "Substring to search for", Text: true}
	argNote         = Arg{Name: "note", Description: "Substring to search for in notes", Text: true}
)

// Catalog returns the fixed tool table in advertised order.
func Catalog() []Tool {
	return []Tool{
		{
			Name:        "list_all_collections",
			Description: "List all collections in my Apple Books library.",
			Handler:     listAllCollections,
		},
		{
			Name:        "get_collection_books",
			Description: "Get all books in a collection.",
			Args:        []Arg{argCollectionID},
			Handler:     getCollectionBooks,
		},
		{
			Name:        "describe_collection",
			Description: "Get details of a collection.",
			Args:        []Arg{argCollectionID},
			Handler:     describeCollection,
		},
		{
			Name:        "list_all_books",
			Description: "List all books in my Apple Books library.",
			Handler:     listAllBooks,
		},
		{
			Name:        "get_book_annotations",
			Description: "Get all annotations for a book.",
			Args:        []Arg{argBookID},
			Handler:     getBookAnnotations,
		},
		{
			Name:        "describe_book",
			Description: "Get details of a book.",
			Args:        []Arg{argBookID},
			Handler:     describeBook,
		},
		{
			Name:        "list_all_annotations",
			Description: "List all annotations in my Apple Books library.",
			Handler:     listAllAnnotations,
		},
		{
			Name:        "get_highlights_by_color",
			Description: "Get all highlights with a given color.",
			Args:        []Arg{argColor},
			Handler:     getHighlightsByColor,
		},
		{
			Name:        "search_highlighted_text",
			Description: "Search annotations by highlighted text.",
			Args:        []Arg{argText},
			Handler:     searchHighlightedText,
		},
		{
			Name:        "search_notes",
			Description: "Search annotations by note.",
			Args:        []Arg{argNote},
			Handler:     searchNotes,
		},
		{
			Name:        "full_text_search",
			Description: "Search annotations whose highlighted text or note contains the given text.",
			Args:        []Arg{argText},
			Handler:     fullTextSearch,
		},
		{
			Name:        "recent_annotations",
			Description: "Get the 10 most recently created annotations, newest first.",
			Handler:     recentAnnotations,
		},
		{
			Name:        "describe_annotation",
			Description: "Get details of an annotation.",
			Args:        []Arg{argAnnotationID},
			Handler:     describeAnnotation,
		},
	}
}

func listAllCollections(ctx context.Context, lib books.Library, _ Args) (string, error) {
	collections, err := lib.ListCollections(ctx)
	if err != nil {
		return "", err
	}
	return formatCollections(collections), nil
}

func getCollectionBooks(ctx context.Context, lib books.Library, args Args) (string, error) {
	collection, err := lib.GetCollection(ctx, args[argCollectionID.Name])
	if err != nil {
		return "", err
	}
	return formatBooks(collection.Books), nil
}

func describeCollection(ctx context.Context, lib books.Library, args Args) (string, error) {
	collection, err := lib.GetCollection(ctx, args[argCollectionID.Name])
	if err != nil {
		return "", err
	}
	return describe(collectionFields(collection))
}

func listAllBooks(ctx context.Context, lib books.Library, _ Args) (string, error) {
	all, err := lib.ListBooks(ctx)
	if err != nil {
		return "", err
	}
	return formatBooks(all), nil
}

func getBookAnnotations(ctx context.Context, lib books.Library, args Args) (string, error) {
	book, err := lib.GetBook(ctx, args[argBookID.Name])
	if err != nil {
		return "", err
	}
	return formatAnnotations(book.Annotations), nil
}

func describeBook(ctx context.Context, lib books.Library, args Args) (string, error) {
	book, err := lib.GetBook(ctx, args[argBookID.Name])
	if err != nil {
		return "", err
	}
	return describe(bookFields(book))
}

func listAllAnnotations(ctx context.Context, lib books.Library, _ Args) (string, error) {
	annotations, err := lib.ListAnnotations(ctx, books.ListOptions{})
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func getHighlightsByColor(ctx context.Context, lib books.Library, args Args) (string, error) {
	annotations, err := lib.AnnotationsByColor(ctx, args[argColor.Name])
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func searchHighlightedText(ctx context.Context, lib books.Library, args Args) (string, error) {
	annotations, err := lib.SearchHighlightedText(ctx, args[argText.Name])
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func searchNotes(ctx context.Context, lib books.Library, args Args) (string, error) {
	annotations, err := lib.SearchNotes(ctx, args[argNote.Name])
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func fullTextSearch(ctx context.Context, lib books.Library, args Args) (string, error) {
	annotations, err := lib.SearchText(ctx, args[argText.Name])
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func recentAnnotations(ctx context.Context, lib books.Library, _ Args) (string, error) {
	annotations, err := lib.ListAnnotations(ctx, books.ListOptions{
		Limit:   RecentAnnotationsLimit,
		OrderBy: books.OrderCreatedDesc,
	})
	if err != nil {
		return "", err
	}
	return formatAnnotations(annotations), nil
}

func describeAnnotation(ctx context.Context, lib books.Library, args Args) (string, error) {
	annotation, err := lib.GetAnnotation(ctx, args[argAnnotationID.Name])
	if err != nil {
		return "", err
	}
	return describe(annotationFields(annotation))
}
