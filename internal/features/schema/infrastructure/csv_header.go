package infrastructure

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hdb-predictor/backend/internal/features/schema/domain"
)

const utf8BOM = "\uFEFF"

// ReadHeaderFile returns the header row of the CSV file at path. Data rows are
// never read.
func ReadHeaderFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference dataset %s: %w", path, err)
	}
	defer f.Close()

	header, err := ReadHeader(f)
	if err != nil {
		return nil, fmt.Errorf("reference dataset %s: %w", path, err)
	}
	return header, nil
}

// ReadHeader returns the first CSV record of r.
func ReadHeader(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	record, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrEmptyHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make([]string, len(record))
	copy(header, record)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header, nil
}
