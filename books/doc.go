// Package books is the read-only data access layer over a local Apple Books
// library.
//
// The package is split by concern:
//   - books: Collection, Book and Annotation snapshots plus the Library facade
//   - errors: NotFound / InvalidArgument / Unavailable / Busy sentinels
//   - colors: annotation style codes and their colour names
//   - paths: store discovery from the environment or the Apple Books container
//   - store_sqlite: Library backed by the BKLibrary and AEAnnotation stores
//   - retry: Library decorator repeating reads that hit a locked store
//   - unavailable: Library stand-in used when the stores cannot be opened
//
// Entities are immutable snapshots; nothing in this package caches them
// across calls.
package books
