package books

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvLibraryDB overrides discovery of the BKLibrary store.
	EnvLibraryDB = "APPLE_BOOKS_LIBRARY_DB"
	// EnvAnnotationDB overrides discovery of the AEAnnotation store.
	EnvAnnotationDB = "APPLE_BOOKS_ANNOTATION_DB"

	containerDocuments = "Library/Containers/com.apple.iBooksX/Data/Documents"
	libraryGlob        = "BKLibrary/BKLibrary-*.sqlite"
	annotationGlob     = "AEAnnotation/AEAnnotation_*.sqlite"
)

// StorePaths locates the two SQLite files making up a library.
type StorePaths struct {
	Library    string
	Annotation string
}

// DiscoverPaths resolves store locations from the environment, falling back
// to the Apple Books container in the user's home directory.
func DiscoverPaths() (StorePaths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return StorePaths{}, fmt.Errorf("books: resolve user home: %w", err)
	}
	return DiscoverPathsFrom(os.Getenv, homeDir)
}

// DiscoverPathsFrom is a testable variant of DiscoverPaths.
func DiscoverPathsFrom(getenv func(string) string, homeDir string) (StorePaths, error) {
	libraryPath, err := resolveStore(getenv(EnvLibraryDB), filepath.Join(homeDir, containerDocuments, libraryGlob))
	if err != nil {
		return StorePaths{}, fmt.Errorf("books: locate library store: %w", err)
	}
	annotationPath, err := resolveStore(getenv(EnvAnnotationDB), filepath.Join(homeDir, containerDocuments, annotationGlob))
	if err != nil {
		return StorePaths{}, fmt.Errorf("books: locate annotation store: %w", err)
	}
	return StorePaths{Library: libraryPath, Annotation: annotationPath}, nil
}

func resolveStore(explicit, pattern string) (string, error) {
	if clean := strings.TrimSpace(explicit); clean != "" {
		info, err := os.Stat(clean)
		if err != nil {
			return "", errors.Join(ErrUnavailable, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrUnavailable, clean)
		}
		return filepath.Clean(clean), nil
	}

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob %s: %w", pattern, err)
	}

	// Apple Books occasionally leaves older generations behind; use the
	// most recently written one.
	var (
		newest     string
		newestTime int64
	)
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestTime {
			newest, newestTime = match, mod
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w: no file matches %s", ErrUnavailable, pattern)
	}
	return newest, nil
}
