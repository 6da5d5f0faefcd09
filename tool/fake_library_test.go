package tool

import (
	"context"
	"fmt"

	"github.com/petal-labs/applebooks-mcp/books"
)

type libraryCall struct {
	method string
	arg    string
	opts   books.ListOptions
}

// fakeLibrary serves fixed entities and records every call it receives.
type fakeLibrary struct {
	collections []books.Collection
	books       []books.Book
	annotations []books.Annotation
	err         error
	calls       []libraryCall
}

var _ books.Library = (*fakeLibrary)(nil)

func newFakeLibrary() *fakeLibrary {
	book := books.Book{ID: "book1", Title: "Book 1", Author: "A. Writer"}
	owner := book
	anno := books.Annotation{
		ID:           "anno1",
		AssetID:      "book1",
		SelectedText: "Test text",
		Color:        books.ColorYellow,
		Chapter:      "Chapter 1",
		Location:     "Page 1",
		Book:         &owner,
	}
	book.Annotations = []books.Annotation{anno}

	return &fakeLibrary{
		collections: []books.Collection{{ID: "col1", Title: "Collection 1", Books: []books.Book{book}}},
		books:       []books.Book{book},
		annotations: []books.Annotation{anno},
	}
}

func (f *fakeLibrary) record(method, arg string) {
	f.calls = append(f.calls, libraryCall{method: method, arg: arg})
}

func (f *fakeLibrary) ListCollections(ctx context.Context) ([]books.Collection, error) {
	f.record("ListCollections", "")
	if f.err != nil {
		return nil, f.err
	}
	return f.collections, nil
}

func (f *fakeLibrary) GetCollection(ctx context.Context, id string) (books.Collection, error) {
	f.record("GetCollection", id)
	if f.err != nil {
		return books.Collection{}, f.err
	}
	for _, c := range f.collections {
		if c.ID == id {
			return c, nil
		}
	}
	return books.Collection{}, fmt.Errorf("%w: collection %q", books.ErrNotFound, id)
}

func (f *fakeLibrary) ListBooks(ctx context.Context) ([]books.Book, error) {
	f.record("ListBooks", "")
	if f.err != nil {
		return nil, f.err
	}
	return f.books, nil
}

func (f *fakeLibrary) GetBook(ctx context.Context, id string) (books.Book, error) {
	f.record("GetBook", id)
	if f.err != nil {
		return books.Book{}, f.err
	}
	for _, b := range f.books {
		if b.ID == id {
			return b, nil
		}
	}
	return books.Book{}, fmt.Errorf("%w: book %q", books.ErrNotFound, id)
}

func (f *fakeLibrary) ListAnnotations(ctx context.Context, opts books.ListOptions) ([]books.Annotation, error) {
	f.calls = append(f.calls, libraryCall{method: "ListAnnotations", opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	return f.annotations, nil
}

func (f *fakeLibrary) GetAnnotation(ctx context.Context, id string) (books.Annotation, error) {
	f.record("GetAnnotation", id)
	if f.err != nil {
		return books.Annotation{}, f.err
	}
	for _, a := range f.annotations {
		if a.ID == id {
			return a, nil
		}
	}
	return books.Annotation{}, fmt.Errorf("%w: annotation %q", books.ErrNotFound, id)
}

func (f *fakeLibrary) AnnotationsByColor(ctx context.Context, color string) ([]books.Annotation, error) {
	f.record("AnnotationsByColor", color)
	return f.matching(func(a books.Annotation) bool { return string(a.Color) == color })
}

func (f *fakeLibrary) SearchHighlightedText(ctx context.Context, text string) ([]books.Annotation, error) {
	f.record("SearchHighlightedText", text)
	return f.all()
}

func (f *fakeLibrary) SearchNotes(ctx context.Context, text string) ([]books.Annotation, error) {
	f.record("SearchNotes", text)
	return f.all()
}

func (f *fakeLibrary) SearchText(ctx context.Context, text string) ([]books.Annotation, error) {
	f.record("SearchText", text)
	return f.all()
}

func (f *fakeLibrary) all() ([]books.Annotation, error) {
	return f.matching(func(books.Annotation) bool { return true })
}

func (f *fakeLibrary) matching(keep func(books.Annotation) bool) ([]books.Annotation, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []books.Annotation
	for _, a := range f.annotations {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out, nil
}
