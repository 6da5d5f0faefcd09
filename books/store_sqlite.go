package books

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// coreDataEpoch is the Unix time of 2001-01-01T00:00:00Z, the reference date
// of Core Data timestamp columns.
const coreDataEpoch = 978307200

const bookColumns = `a.ZASSETID, a.ZTITLE, a.ZSORTTITLE, a.ZAUTHOR, a.ZGENRE,
	a.ZBOOKDESCRIPTION, a.ZPATH, a.ZCONTENTTYPE, a.ZPAGECOUNT, a.ZRATING,
	a.ZREADINGPROGRESS, a.ZISFINISHED, a.ZISSAMPLE, a.ZCREATIONDATE,
	a.ZLASTOPENDATE, a.ZMODIFICATIONDATE`

const annotationColumns = `ZANNOTATIONUUID, ZANNOTATIONASSETID,
	ZANNOTATIONSELECTEDTEXT, ZANNOTATIONREPRESENTATIVETEXT, ZANNOTATIONNOTE,
	ZANNOTATIONSTYLE, ZFUTUREPROOFING5, ZANNOTATIONLOCATION,
	ZANNOTATIONCREATIONDATE, ZANNOTATIONMODIFICATIONDATE`

// liveAnnotation excludes deleted rows and bookmarks without content.
const liveAnnotation = `COALESCE(ZANNOTATIONDELETED, 0) = 0
	AND (ZANNOTATIONSELECTEDTEXT IS NOT NULL OR ZANNOTATIONNOTE IS NOT NULL)`

var contentTypes = map[int64]string{
	1: "book",
	3: "pdf",
	6: "audiobook",
}

// SQLiteLibraryConfig configures the SQLite-backed library.
type SQLiteLibraryConfig struct {
	Paths  StorePaths
	Logger *logrus.Entry
}

// SQLiteLibrary reads Apple Books' BKLibrary and AEAnnotation stores.
// Both databases are opened read-only.
type SQLiteLibrary struct {
	library     *sql.DB
	annotations *sql.DB
	log         *logrus.Entry
}

var _ Library = (*SQLiteLibrary)(nil)

// NewSQLiteLibrary opens both stores and verifies they are readable.
func NewSQLiteLibrary(ctx context.Context, cfg SQLiteLibraryConfig) (*SQLiteLibrary, error) {
	if strings.TrimSpace(cfg.Paths.Library) == "" || strings.TrimSpace(cfg.Paths.Annotation) == "" {
		return nil, fmt.Errorf("%w: sqlite library and annotation paths are required", ErrInvalidArgument)
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	library, err := openReadOnly(ctx, cfg.Paths.Library)
	if err != nil {
		return nil, err
	}
	annotations, err := openReadOnly(ctx, cfg.Paths.Annotation)
	if err != nil {
		_ = library.Close()
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"library":    cfg.Paths.Library,
		"annotation": cfg.Paths.Annotation,
	}).Info("opened apple books stores")

	return &SQLiteLibrary{
		library:     library,
		annotations: annotations,
		log:         log,
	}, nil
}

func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("books: sqlite open %s: %w: %w", path, ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("books: sqlite ping %s: %w: %w", path, ErrUnavailable, err)
	}
	return db, nil
}

// Close releases both database handles.
func (s *SQLiteLibrary) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.library != nil {
		errs = append(errs, s.library.Close())
	}
	if s.annotations != nil {
		errs = append(errs, s.annotations.Close())
	}
	return errors.Join(errs...)
}

// ListCollections returns every non-deleted collection with its books.
func (s *SQLiteLibrary) ListCollections(ctx context.Context) ([]Collection, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.library.QueryContext(ctx, `
SELECT Z_PK, ZCOLLECTIONID, ZTITLE, ZDETAILS, ZHIDDEN, ZLASTMODIFICATION
FROM ZBKCOLLECTION
WHERE COALESCE(ZDELETEDFLAG, 0) = 0
ORDER BY Z_PK ASC`)
	if err != nil {
		return nil, queryFailed("list collections", err)
	}

	var (
		collections []Collection
		keys        []int64
	)
	for rows.Next() {
		key, collection, err := scanCollection(rows)
		if err != nil {
			rows.Close()
			return nil, queryFailed("scan collection", err)
		}
		keys = append(keys, key)
		collections = append(collections, collection)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, queryFailed("collection rows", err)
	}
	rows.Close()

	for i := range collections {
		members, err := s.collectionBooks(ctx, keys[i])
		if err != nil {
			return nil, err
		}
		collections[i].Books = members
	}
	return collections, nil
}

// GetCollection returns one collection by its collection id.
func (s *SQLiteLibrary) GetCollection(ctx context.Context, id string) (Collection, error) {
	if err := s.ready(ctx); err != nil {
		return Collection{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Collection{}, fmt.Errorf("%w: collection id is required", ErrInvalidArgument)
	}

	row := s.library.QueryRowContext(ctx, `
SELECT Z_PK, ZCOLLECTIONID, ZTITLE, ZDETAILS, ZHIDDEN, ZLASTMODIFICATION
FROM ZBKCOLLECTION
WHERE ZCOLLECTIONID = ? AND COALESCE(ZDELETEDFLAG, 0) = 0`, id)
	key, collection, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, fmt.Errorf("%w: collection %q", ErrNotFound, id)
	}
	if err != nil {
		return Collection{}, queryFailed("get collection", err)
	}

	members, err := s.collectionBooks(ctx, key)
	if err != nil {
		return Collection{}, err
	}
	collection.Books = members
	return collection, nil
}

func (s *SQLiteLibrary) collectionBooks(ctx context.Context, collectionKey int64) ([]Book, error) {
	rows, err := s.library.QueryContext(ctx, `
SELECT `+bookColumns+`
FROM ZBKCOLLECTIONMEMBER m
JOIN ZBKLIBRARYASSET a ON a.ZASSETID = m.ZASSETID
WHERE m.ZCOLLECTION = ?
ORDER BY m.ZSORTKEY ASC, m.Z_PK ASC`, collectionKey)
	if err != nil {
		return nil, queryFailed("list collection members", err)
	}
	defer rows.Close()
	return scanBooks(rows)
}

// ListBooks returns every asset in store order. Annotations are not loaded.
func (s *SQLiteLibrary) ListBooks(ctx context.Context) ([]Book, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	rows, err := s.library.QueryContext(ctx, `
SELECT `+bookColumns+`
FROM ZBKLIBRARYASSET a
WHERE a.ZASSETID IS NOT NULL
ORDER BY a.Z_PK ASC`)
	if err != nil {
		return nil, queryFailed("list books", err)
	}
	defer rows.Close()
	return scanBooks(rows)
}

// GetBook returns one asset with its annotations loaded.
func (s *SQLiteLibrary) GetBook(ctx context.Context, id string) (Book, error) {
	if err := s.ready(ctx); err != nil {
		return Book{}, err
	}
	if strings.TrimSpace(id) == "" {
		return Book{}, fmt.Errorf("%w: book id is required", ErrInvalidArgument)
	}

	row := s.library.QueryRowContext(ctx, `
SELECT `+bookColumns+`
FROM ZBKLIBRARYASSET a
WHERE a.ZASSETID = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("%w: book %q", ErrNotFound, id)
	}
	if err != nil {
		return Book{}, queryFailed("get book", err)
	}

	annotations, err := s.queryAnnotations(ctx, "ZANNOTATIONASSETID = ?", []any{id}, "ORDER BY ZPLLOCATIONRANGESTART ASC, Z_PK ASC", "")
	if err != nil {
		return Book{}, err
	}
	owner := book
	for i := range annotations {
		annotations[i].Book = &owner
	}
	book.Annotations = annotations
	return book, nil
}

// ListAnnotations returns live annotations, optionally ordered and capped.
func (s *SQLiteLibrary) ListAnnotations(ctx context.Context, opts ListOptions) ([]Annotation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgument)
	}

	var order string
	switch opts.OrderBy {
	case "":
		order = "ORDER BY Z_PK ASC"
	case OrderCreatedDesc:
		order = "ORDER BY ZANNOTATIONCREATIONDATE DESC, Z_PK DESC"
	case OrderCreatedAsc:
		order = "ORDER BY ZANNOTATIONCREATIONDATE ASC, Z_PK ASC"
	default:
		return nil, fmt.Errorf("%w: unsupported order %q", ErrInvalidArgument, opts.OrderBy)
	}

	limit := ""
	if opts.Limit > 0 {
		limit = "LIMIT " + strconv.Itoa(opts.Limit)
	}
	return s.queryAnnotations(ctx, "", nil, order, limit)
}

// GetAnnotation returns one annotation by UUID.
func (s *SQLiteLibrary) GetAnnotation(ctx context.Context, id string) (Annotation, error) {
	if err := s.ready(ctx); err != nil {
		return Annotation{}, err
	}
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return Annotation{}, fmt.Errorf("%w: annotation id %q is not a UUID", ErrInvalidArgument, id)
	}

	found, err := s.queryAnnotations(ctx, "upper(ZANNOTATIONUUID) = upper(?)", []any{strings.TrimSpace(id)}, "", "LIMIT 1")
	if err != nil {
		return Annotation{}, err
	}
	if len(found) == 0 {
		return Annotation{}, fmt.Errorf("%w: annotation %q", ErrNotFound, id)
	}
	return found[0], nil
}

// AnnotationsByColor returns annotations with the named style.
func (s *SQLiteLibrary) AnnotationsByColor(ctx context.Context, color string) ([]Annotation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	style, err := StyleForColor(color)
	if err != nil {
		return nil, err
	}
	return s.queryAnnotations(ctx, "ZANNOTATIONSTYLE = ?", []any{style}, "ORDER BY Z_PK ASC", "")
}

// SearchHighlightedText matches a case-sensitive substring of the selected text.
func (s *SQLiteLibrary) SearchHighlightedText(ctx context.Context, text string) ([]Annotation, error) {
	return s.search(ctx, text, "instr(ZANNOTATIONSELECTEDTEXT, ?) > 0", 1)
}

// SearchNotes matches a case-sensitive substring of the note.
func (s *SQLiteLibrary) SearchNotes(ctx context.Context, text string) ([]Annotation, error) {
	return s.search(ctx, text, "instr(ZANNOTATIONNOTE, ?) > 0", 1)
}

// SearchText matches a case-sensitive substring of the selected text or note.
func (s *SQLiteLibrary) SearchText(ctx context.Context, text string) ([]Annotation, error) {
	return s.search(ctx, text, "(instr(ZANNOTATIONSELECTEDTEXT, ?) > 0 OR instr(ZANNOTATIONNOTE, ?) > 0)", 2)
}

func (s *SQLiteLibrary) search(ctx context.Context, text, predicate string, binds int) ([]Annotation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: search text is required", ErrInvalidArgument)
	}
	args := make([]any, binds)
	for i := range args {
		args[i] = text
	}
	return s.queryAnnotations(ctx, predicate, args, "ORDER BY Z_PK ASC", "")
}

func (s *SQLiteLibrary) queryAnnotations(ctx context.Context, where string, args []any, order, limit string) ([]Annotation, error) {
	query := "SELECT " + annotationColumns + "\nFROM ZAEANNOTATION\nWHERE " + liveAnnotation
	if where != "" {
		query += "\n\tAND " + where
	}
	query += "\n" + order + "\n" + limit

	s.log.WithField("query", strings.Join(strings.Fields(query), " ")).Debug("query annotations")

	rows, err := s.annotations.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("query annotations", err)
	}

	var annotations []Annotation
	for rows.Next() {
		annotation, err := scanAnnotation(rows)
		if err != nil {
			rows.Close()
			return nil, queryFailed("scan annotation", err)
		}
		annotations = append(annotations, annotation)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, queryFailed("annotation rows", err)
	}
	rows.Close()

	if err := s.attachBooks(ctx, annotations); err != nil {
		return nil, err
	}
	return annotations, nil
}

// attachBooks sets each annotation's back-reference. Assets missing from
// the library leave Book nil.
func (s *SQLiteLibrary) attachBooks(ctx context.Context, annotations []Annotation) error {
	seen := make(map[string]struct{})
	var ids []any
	for _, annotation := range annotations {
		if annotation.AssetID == "" {
			continue
		}
		if _, ok := seen[annotation.AssetID]; ok {
			continue
		}
		seen[annotation.AssetID] = struct{}{}
		ids = append(ids, annotation.AssetID)
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.library.QueryContext(ctx, `
SELECT `+bookColumns+`
FROM ZBKLIBRARYASSET a
WHERE a.ZASSETID IN (`+placeholders+`)`, ids...)
	if err != nil {
		return queryFailed("resolve annotation books", err)
	}
	defer rows.Close()

	found, err := scanBooks(rows)
	if err != nil {
		return err
	}
	byAsset := make(map[string]*Book, len(found))
	for i := range found {
		byAsset[found[i].ID] = &found[i]
	}
	for i := range annotations {
		annotations[i].Book = byAsset[annotations[i].AssetID]
	}
	return nil
}

func (s *SQLiteLibrary) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.library == nil || s.annotations == nil {
		return fmt.Errorf("books: sqlite library is closed: %w", ErrUnavailable)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (int64, Collection, error) {
	var (
		key      int64
		id       sql.NullString
		title    sql.NullString
		details  sql.NullString
		hidden   sql.NullInt64
		modified sql.NullFloat64
	)
	if err := row.Scan(&key, &id, &title, &details, &hidden, &modified); err != nil {
		return 0, Collection{}, err
	}
	return key, Collection{
		ID:           id.String,
		Title:        title.String,
		Details:      details.String,
		Hidden:       hidden.Int64 != 0,
		LastModified: coreDataTime(modified),
	}, nil
}

func scanBooks(rows *sql.Rows) ([]Book, error) {
	var out []Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, queryFailed("scan book", err)
		}
		out = append(out, book)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("book rows", err)
	}
	return out, nil
}

func scanBook(row rowScanner) (Book, error) {
	var (
		id, title, sortTitle, author, genre sql.NullString
		description, path                   sql.NullString
		contentType, pageCount, rating      sql.NullInt64
		progress                            sql.NullFloat64
		finished, sample                    sql.NullInt64
		created, opened, modified           sql.NullFloat64
	)
	if err := row.Scan(
		&id, &title, &sortTitle, &author, &genre,
		&description, &path, &contentType, &pageCount, &rating,
		&progress, &finished, &sample, &created,
		&opened, &modified,
	); err != nil {
		return Book{}, err
	}
	return Book{
		ID:              id.String,
		Title:           title.String,
		SortTitle:       sortTitle.String,
		Author:          author.String,
		Genre:           genre.String,
		Description:     description.String,
		Path:            path.String,
		ContentType:     contentTypeName(contentType),
		PageCount:       int(pageCount.Int64),
		Rating:          int(rating.Int64),
		ReadingProgress: progress.Float64,
		Finished:        finished.Int64 != 0,
		Sample:          sample.Int64 != 0,
		Created:         coreDataTime(created),
		LastOpened:      coreDataTime(opened),
		Modified:        coreDataTime(modified),
	}, nil
}

func scanAnnotation(row rowScanner) (Annotation, error) {
	var (
		id, assetID, selected, representative sql.NullString
		note, chapter, location               sql.NullString
		style                                 sql.NullInt64
		created, modified                     sql.NullFloat64
	)
	if err := row.Scan(
		&id, &assetID, &selected, &representative, &note,
		&style, &chapter, &location,
		&created, &modified,
	); err != nil {
		return Annotation{}, err
	}
	var color Color
	if style.Valid {
		color = ColorForStyle(int(style.Int64))
	}
	return Annotation{
		ID:                 id.String,
		AssetID:            assetID.String,
		SelectedText:       selected.String,
		RepresentativeText: representative.String,
		Note:               note.String,
		Color:              color,
		Chapter:            chapter.String,
		Location:           location.String,
		Created:            coreDataTime(created),
		Modified:           coreDataTime(modified),
	}, nil
}

// coreDataTime converts a Core Data timestamp. NULL yields the zero time.
func coreDataTime(v sql.NullFloat64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	sec := int64(v.Float64)
	nsec := int64((v.Float64 - float64(sec)) * float64(time.Second))
	return time.Unix(coreDataEpoch+sec, nsec).UTC()
}

func contentTypeName(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	if name, ok := contentTypes[v.Int64]; ok {
		return name
	}
	return strconv.FormatInt(v.Int64, 10)
}

func queryFailed(action string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if isBusy(err) {
		return fmt.Errorf("books: sqlite %s: %w: %w: %w", action, ErrUnavailable, ErrBusy, err)
	}
	return fmt.Errorf("books: sqlite %s: %w: %w", action, ErrUnavailable, err)
}

func isBusy(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
