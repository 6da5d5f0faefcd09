package books

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

const fixtureLibrarySchema = `
CREATE TABLE ZBKLIBRARYASSET (
	Z_PK INTEGER PRIMARY KEY,
	ZASSETID TEXT,
	ZTITLE TEXT,
	ZSORTTITLE TEXT,
	ZAUTHOR TEXT,
	ZGENRE TEXT,
	ZBOOKDESCRIPTION TEXT,
	ZPATH TEXT,
	ZCONTENTTYPE INTEGER,
	ZPAGECOUNT INTEGER,
	ZRATING INTEGER,
	ZREADINGPROGRESS REAL,
	ZISFINISHED INTEGER,
	ZISSAMPLE INTEGER,
	ZCREATIONDATE TIMESTAMP,
	ZLASTOPENDATE TIMESTAMP,
	ZMODIFICATIONDATE TIMESTAMP
);
CREATE TABLE ZBKCOLLECTION (
	Z_PK INTEGER PRIMARY KEY,
	ZCOLLECTIONID TEXT,
	ZTITLE TEXT,
	ZDETAILS TEXT,
	ZHIDDEN INTEGER,
	ZDELETEDFLAG INTEGER,
	ZLASTMODIFICATION TIMESTAMP
);
CREATE TABLE ZBKCOLLECTIONMEMBER (
	Z_PK INTEGER PRIMARY KEY,
	ZCOLLECTION INTEGER,
	ZASSETID TEXT,
	ZSORTKEY INTEGER
);`

const fixtureAnnotationSchema = `
CREATE TABLE ZAEANNOTATION (
	Z_PK INTEGER PRIMARY KEY,
	ZANNOTATIONUUID TEXT,
	ZANNOTATIONASSETID TEXT,
	ZANNOTATIONSELECTEDTEXT TEXT,
	ZANNOTATIONREPRESENTATIVETEXT TEXT,
	ZANNOTATIONNOTE TEXT,
	ZANNOTATIONSTYLE INTEGER,
	ZFUTUREPROOFING5 TEXT,
	ZANNOTATIONLOCATION TEXT,
	ZANNOTATIONCREATIONDATE TIMESTAMP,
	ZANNOTATIONMODIFICATIONDATE TIMESTAMP,
	ZANNOTATIONDELETED INTEGER,
	ZPLLOCATIONRANGESTART INTEGER
);`

const (
	annoDune     = "6F1C1B0E-6A43-4E36-9F0C-3C2B5C1E0A01"
	annoDuneNote = "6F1C1B0E-6A43-4E36-9F0C-3C2B5C1E0A02"
	annoOrphan   = "6F1C1B0E-6A43-4E36-9F0C-3C2B5C1E0A03"
	annoDeleted  = "6F1C1B0E-6A43-4E36-9F0C-3C2B5C1E0A04"
	annoHobbit   = "6F1C1B0E-6A43-4E36-9F0C-3C2B5C1E0A05"
)

func execFixture(t *testing.T, path, schema string, inserts ...string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open(%s) error = %v", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema error = %v", err)
	}
	for _, stmt := range inserts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q error = %v", stmt, err)
		}
	}
}

func newFixtureLibrary(t *testing.T) *SQLiteLibrary {
	t.Helper()

	dir := t.TempDir()
	paths := StorePaths{
		Library:    filepath.Join(dir, "BKLibrary-1-091020131601.sqlite"),
		Annotation: filepath.Join(dir, "AEAnnotation_v10312011_1727_local.sqlite"),
	}

	execFixture(t, paths.Library, fixtureLibrarySchema,
		`INSERT INTO ZBKLIBRARYASSET VALUES (1, 'DUNE01', 'Dune', 'Dune', 'Frank Herbert', 'Science Fiction', 'Desert planet.', '/books/dune.epub', 1, 612, 5, 0.42, 0, 0, 700000000, 710000000, 710000100)`,
		`INSERT INTO ZBKLIBRARYASSET VALUES (2, 'HOBBIT01', 'The Hobbit', 'Hobbit', 'J.R.R. Tolkien', 'Fantasy', NULL, '/books/hobbit.epub', 1, 310, 0, 1.0, 1, 0, 600000000, 690000000, NULL)`,
		`INSERT INTO ZBKCOLLECTION VALUES (10, 'col-scifi', 'Sci-Fi', 'Spice and ships', 0, 0, 705000000)`,
		`INSERT INTO ZBKCOLLECTION VALUES (11, 'col-empty', 'Empty', NULL, 0, 0, NULL)`,
		`INSERT INTO ZBKCOLLECTION VALUES (12, 'col-gone', 'Gone', NULL, 0, 1, NULL)`,
		`INSERT INTO ZBKCOLLECTIONMEMBER VALUES (100, 10, 'HOBBIT01', 2)`,
		`INSERT INTO ZBKCOLLECTIONMEMBER VALUES (101, 10, 'DUNE01', 1)`,
	)

	execFixture(t, paths.Annotation, fixtureAnnotationSchema,
		`INSERT INTO ZAEANNOTATION VALUES (1, '`+annoDune+`', 'DUNE01', 'Fear is the mind-killer.', 'I must not fear.', NULL, 3, 'Chapter 1', 'epubcfi(/6/4)', 700000500, 700000600, 0, 10)`,
		`INSERT INTO ZAEANNOTATION VALUES (2, '`+annoDuneNote+`', 'DUNE01', 'The spice must flow.', NULL, 'remember the spice', 1, 'Chapter 2', 'epubcfi(/6/8)', 700000900, 700000900, 0, 20)`,
		`INSERT INTO ZAEANNOTATION VALUES (3, '`+annoOrphan+`', 'MISSING01', 'Lost words.', NULL, NULL, 3, NULL, NULL, 700000100, NULL, 0, 5)`,
		`INSERT INTO ZAEANNOTATION VALUES (4, '`+annoDeleted+`', 'DUNE01', 'deleted text', NULL, NULL, 3, NULL, NULL, 700001000, NULL, 1, 30)`,
		`INSERT INTO ZAEANNOTATION VALUES (5, '`+annoHobbit+`', 'HOBBIT01', 'In a hole in the ground there lived a hobbit.', NULL, 'Spice free', 4, 'An Unexpected Party', 'epubcfi(/6/2)', 690000000, 690000000, 0, 1)`,
	)

	lib, err := NewSQLiteLibrary(context.Background(), SQLiteLibraryConfig{Paths: paths})
	if err != nil {
		t.Fatalf("NewSQLiteLibrary() error = %v", err)
	}
	t.Cleanup(func() {
		_ = lib.Close()
	})
	return lib
}

func annotationIDs(annotations []Annotation) []string {
	ids := make([]string, 0, len(annotations))
	for _, annotation := range annotations {
		ids = append(ids, annotation.ID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSQLiteLibraryListCollections(t *testing.T) {
	lib := newFixtureLibrary(t)

	collections, err := lib.ListCollections(context.Background())
	if err != nil {
		t.Fatalf("ListCollections() error = %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("len(collections) = %d, want 2 (deleted collection excluded)", len(collections))
	}

	scifi := collections[0]
	if scifi.ID != "col-scifi" || scifi.Title != "Sci-Fi" {
		t.Fatalf("collections[0] = %q/%q, want col-scifi/Sci-Fi", scifi.ID, scifi.Title)
	}
	if len(scifi.Books) != 2 {
		t.Fatalf("len(scifi.Books) = %d, want 2", len(scifi.Books))
	}
	if scifi.Books[0].ID != "DUNE01" || scifi.Books[1].ID != "HOBBIT01" {
		t.Fatalf("member order = %s,%s, want sort-key order DUNE01,HOBBIT01", scifi.Books[0].ID, scifi.Books[1].ID)
	}
	if want := time.Unix(coreDataEpoch+705000000, 0).UTC(); !scifi.LastModified.Equal(want) {
		t.Fatalf("LastModified = %v, want %v", scifi.LastModified, want)
	}
	if len(collections[1].Books) != 0 {
		t.Fatalf("empty collection has %d books", len(collections[1].Books))
	}
}

func TestSQLiteLibraryGetCollection(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	collection, err := lib.GetCollection(ctx, "col-scifi")
	if err != nil {
		t.Fatalf("GetCollection() error = %v", err)
	}
	if collection.Details != "Spice and ships" {
		t.Fatalf("Details = %q, want Spice and ships", collection.Details)
	}

	_, err = lib.GetCollection(ctx, "col-gone")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCollection(deleted) error = %v, want ErrNotFound", err)
	}
	_, err = lib.GetCollection(ctx, "")
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("GetCollection(\"\") error = %v, want ErrInvalidArgument", err)
	}
}

func TestSQLiteLibraryBooks(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	all, err := lib.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(ListBooks()) = %d, want 2", len(all))
	}

	book, err := lib.GetBook(ctx, "DUNE01")
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if book.Title != "Dune" || book.Author != "Frank Herbert" {
		t.Fatalf("book = %q by %q", book.Title, book.Author)
	}
	if book.ContentType != "book" || book.PageCount != 612 || book.ReadingProgress != 0.42 {
		t.Fatalf("book metadata = %q/%d/%v", book.ContentType, book.PageCount, book.ReadingProgress)
	}
	if got := annotationIDs(book.Annotations); !equalStrings(got, []string{annoDune, annoDuneNote}) {
		t.Fatalf("annotations = %v, want live annotations in location order", got)
	}
	for _, annotation := range book.Annotations {
		if annotation.Book == nil || annotation.Book.ID != "DUNE01" {
			t.Fatalf("annotation %s book back-reference = %v", annotation.ID, annotation.Book)
		}
	}

	hobbit, err := lib.GetBook(ctx, "HOBBIT01")
	if err != nil {
		t.Fatalf("GetBook(HOBBIT01) error = %v", err)
	}
	if !hobbit.Finished || !hobbit.Modified.IsZero() {
		t.Fatalf("hobbit finished=%v modified=%v, want true and zero", hobbit.Finished, hobbit.Modified)
	}

	_, err = lib.GetBook(ctx, "NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBook(NOPE) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteLibraryListAnnotations(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{
			name: "store order",
			want: []string{annoDune, annoDuneNote, annoOrphan, annoHobbit},
		},
		{
			name: "newest first with limit",
			opts: ListOptions{Limit: 2, OrderBy: OrderCreatedDesc},
			want: []string{annoDuneNote, annoDune},
		},
		{
			name: "oldest first",
			opts: ListOptions{OrderBy: OrderCreatedAsc},
			want: []string{annoHobbit, annoOrphan, annoDune, annoDuneNote},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := lib.ListAnnotations(ctx, tc.opts)
			if err != nil {
				t.Fatalf("ListAnnotations() error = %v", err)
			}
			if ids := annotationIDs(got); !equalStrings(ids, tc.want) {
				t.Fatalf("ids = %v, want %v", ids, tc.want)
			}
		})
	}

	if _, err := lib.ListAnnotations(ctx, ListOptions{OrderBy: "title"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ListAnnotations(bad order) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := lib.ListAnnotations(ctx, ListOptions{Limit: -1}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("ListAnnotations(negative limit) error = %v, want ErrInvalidArgument", err)
	}
}

func TestSQLiteLibraryOrphanAnnotationHasNilBook(t *testing.T) {
	lib := newFixtureLibrary(t)

	annotation, err := lib.GetAnnotation(context.Background(), annoOrphan)
	if err != nil {
		t.Fatalf("GetAnnotation() error = %v", err)
	}
	if annotation.Book != nil {
		t.Fatalf("Book = %+v, want nil for unresolved asset", annotation.Book)
	}
	if annotation.BookTitle() != "Unknown" {
		t.Fatalf("BookTitle() = %q, want Unknown", annotation.BookTitle())
	}
}

func TestSQLiteLibraryGetAnnotation(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	annotation, err := lib.GetAnnotation(ctx, "6f1c1b0e-6a43-4e36-9f0c-3c2b5c1e0a01")
	if err != nil {
		t.Fatalf("GetAnnotation(lowercase) error = %v", err)
	}
	if annotation.Color != ColorYellow || annotation.Chapter != "Chapter 1" {
		t.Fatalf("annotation color/chapter = %q/%q", annotation.Color, annotation.Chapter)
	}
	if annotation.Book == nil || annotation.Book.Title != "Dune" {
		t.Fatalf("annotation book = %+v, want Dune", annotation.Book)
	}

	if _, err := lib.GetAnnotation(ctx, "anno1"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("GetAnnotation(non-uuid) error = %v, want ErrInvalidArgument", err)
	}
	if _, err := lib.GetAnnotation(ctx, annoDeleted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetAnnotation(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteLibraryAnnotationsByColor(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	yellow, err := lib.AnnotationsByColor(ctx, "yellow")
	if err != nil {
		t.Fatalf("AnnotationsByColor(yellow) error = %v", err)
	}
	if ids := annotationIDs(yellow); !equalStrings(ids, []string{annoDune, annoOrphan}) {
		t.Fatalf("yellow ids = %v", ids)
	}

	purple, err := lib.AnnotationsByColor(ctx, "purple")
	if err != nil {
		t.Fatalf("AnnotationsByColor(purple) error = %v", err)
	}
	if len(purple) != 0 {
		t.Fatalf("len(purple) = %d, want 0", len(purple))
	}

	if _, err := lib.AnnotationsByColor(ctx, "mauve"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("AnnotationsByColor(mauve) error = %v, want ErrInvalidArgument", err)
	}
}

func TestSQLiteLibrarySearch(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		search func(context.Context, string) ([]Annotation, error)
		text   string
		want   []string
	}{
		{name: "highlight", search: lib.SearchHighlightedText, text: "spice", want: []string{annoDuneNote}},
		{name: "highlight is case sensitive", search: lib.SearchHighlightedText, text: "Spice", want: []string{}},
		{name: "note", search: lib.SearchNotes, text: "spice", want: []string{annoDuneNote}},
		{name: "note capitalised", search: lib.SearchNotes, text: "Spice", want: []string{annoHobbit}},
		{name: "text matches either", search: lib.SearchText, text: "hobbit", want: []string{annoHobbit}},
		{name: "text across fields", search: lib.SearchText, text: "spice", want: []string{annoDuneNote}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.search(ctx, tc.text)
			if err != nil {
				t.Fatalf("search(%q) error = %v", tc.text, err)
			}
			if ids := annotationIDs(got); !equalStrings(ids, tc.want) {
				t.Fatalf("ids = %v, want %v", ids, tc.want)
			}
		})
	}

	if _, err := lib.SearchText(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("SearchText(\"\") error = %v, want ErrInvalidArgument", err)
	}
}

func TestSQLiteLibraryCanceledContext(t *testing.T) {
	lib := newFixtureLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := lib.ListBooks(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ListBooks(canceled) error = %v, want context.Canceled", err)
	}
}

func TestNewSQLiteLibraryMissingStore(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSQLiteLibrary(context.Background(), SQLiteLibraryConfig{
		Paths: StorePaths{
			Library:    filepath.Join(dir, "missing.sqlite"),
			Annotation: filepath.Join(dir, "missing-too.sqlite"),
		},
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("NewSQLiteLibrary(missing) error = %v, want ErrUnavailable", err)
	}
}

func TestNewSQLiteLibraryRequiresPaths(t *testing.T) {
	_, err := NewSQLiteLibrary(context.Background(), SQLiteLibraryConfig{})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("NewSQLiteLibrary(empty) error = %v, want ErrInvalidArgument", err)
	}
}

func TestQueryFailedWrapping(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := queryFailed("list books", cause)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("queryFailed() = %v, want ErrUnavailable wrapping cause", err)
	}
	if errors.Is(err, ErrBusy) {
		t.Fatalf("queryFailed() = %v, want not ErrBusy", err)
	}

	for _, ctxErr := range []error{context.Canceled, context.DeadlineExceeded} {
		if got := queryFailed("list books", ctxErr); got != ctxErr {
			t.Fatalf("queryFailed(%v) = %v, want unchanged", ctxErr, got)
		}
	}
}
