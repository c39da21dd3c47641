package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// LoadCSV reads a comma separated file whose first record is the header.
func LoadCSV(path string, textColumns ...string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(path, f, textColumns...)
}

// ReadCSV is LoadCSV for an already open reader.
func ReadCSV(source string, r io.Reader, textColumns ...string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", source, err)
	}
	if len(records) == 0 {
		return nil, ErrNoHeader
	}
	header := headerFrom(records[0])
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	var body [][]string
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		body = append(body, rec)
	}
	return New(source, header, inferColumns(len(header), body, textIndexes(header, textColumns)))
}
