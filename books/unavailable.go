package books

import (
	"context"
	"fmt"
)

// UnavailableLibrary fails every call with ErrUnavailable. It stands in
// for a library whose stores could not be opened so a server can keep
// answering requests with a per-call failure.
type UnavailableLibrary struct {
	Cause error
}

var _ Library = UnavailableLibrary{}

func (u UnavailableLibrary) fail() error {
	if u.Cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, u.Cause)
}

func (u UnavailableLibrary) ListCollections(context.Context) ([]Collection, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) GetCollection(context.Context, string) (Collection, error) {
	return Collection{}, u.fail()
}

func (u UnavailableLibrary) ListBooks(context.Context) ([]Book, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) GetBook(context.Context, string) (Book, error) {
	return Book{}, u.fail()
}

func (u UnavailableLibrary) ListAnnotations(context.Context, ListOptions) ([]Annotation, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) GetAnnotation(context.Context, string) (Annotation, error) {
	return Annotation{}, u.fail()
}

func (u UnavailableLibrary) AnnotationsByColor(context.Context, string) ([]Annotation, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) SearchHighlightedText(context.Context, string) ([]Annotation, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) SearchNotes(context.Context, string) ([]Annotation, error) {
	return nil, u.fail()
}

func (u UnavailableLibrary) SearchText(context.Context, string) ([]Annotation, error) {
	return nil, u.fail()
}
