package processing

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// readRows reads a spreadsheet export as an ordered sequence of header-keyed
// records. The files are single-sheet CSV exports written by the external
// pipeline.
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	rows, err := gocsv.CSVToMaps(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode spreadsheet %s: %w", path, err)
	}
	return rows, nil
}

// countRows returns the number of data rows (excluding the header) in a
// spreadsheet file.
func countRows(path string) (int, error) {
	rows, err := readRows(path)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// checkReadable verifies a spreadsheet path exists and can be opened.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("spreadsheet path not readable: %w", err)
	}
	return f.Close()
}
