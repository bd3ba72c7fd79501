package blueprint

// decode.go resolves text encoding at the file boundary so the tokenizer only
// ever sees clean UTF-8.
//
// The decoder honors a byte order mark (UTF-8 or UTF-16, as written by
// Windows spreadsheet exports), strips it, and replaces invalid UTF-8
// sequences with U+FFFD instead of failing the upload.

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrEmptyFile is returned when a file has no header row.
	ErrEmptyFile = errors.New("empty file")

	// ErrNotCSV is returned when a file name does not end in .csv.
	ErrNotCSV = errors.New("invalid file type: only .csv files are accepted")

	// ErrFileTooLarge is returned when a file exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
)

// CheckExtension verifies the file name carries a .csv extension.
func CheckExtension(fileName string) error {
	if !strings.EqualFold(filepath.Ext(fileName), ".csv") {
		return ErrNotCSV
	}
	return nil
}

// Decode reads r to the end and returns its text with any BOM removed.
// If limit is positive and the input is longer, ErrFileTooLarge is returned.
func Decode(r io.Reader, limit int64) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	tr := transform.NewReader(r, decoder)

	var src io.Reader = tr
	if limit > 0 {
		src = io.LimitReader(tr, limit+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", ErrFileTooLarge
	}
	return string(data), nil
}
