// =============================================================================
// Sales Validator - CSV Parser Module
// =============================================================================
//
// This module reads delimited transaction files into a table. It handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Source encodings (UTF-8, ISO-8859-1, Windows-1252)
//   - A UTF-8 byte order mark on the first header cell
//   - Metadata rows between the header and the data
//
// Column types are inferred by table.FromStrings.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/sales-validator/internal/config"
	"github.com/ginjaninja78/sales-validator/internal/table"
)

const utf8BOM = "\uFEFF"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a delimited file and returns it as a table.
//
// PARAMETERS:
//   - filePath: The path to the input file. It is opened read-only.
//   - settings: The CSV settings from the main configuration.
//
// RETURNS:
//   - The parsed table with inferred column types.
//   - An error if the file cannot be read or parsed.
func Parse(filePath string, settings config.CSVSettings) (*table.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ParseReader(bufio.NewReader(file), settings)
}

// ParseReader parses delimited data from r.
func ParseReader(r io.Reader, settings config.CSVSettings) (*table.Table, error) {
	decoder, err := getDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}
	if decoder != nil {
		r = transform.NewReader(r, decoder.NewDecoder())
	}

	csvReader := csv.NewReader(r)
	if err := configureReader(csvReader, settings); err != nil {
		return nil, err
	}

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers := StripHeaderBOM(allRows[0])
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	start := settings.DataStartRow - 1
	if start < 1 {
		start = 1
	}
	var dataRows [][]string
	if start < len(allRows) {
		dataRows = dropBlankRows(allRows[start:])
	}

	tbl, err := table.FromStrings(headers, dataRows)
	if err != nil {
		return nil, fmt.Errorf("failed to build table: %w", err)
	}
	return tbl, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) error {
	comma, err := config.ParseDelimiter(settings.Delimiter)
	if err != nil {
		return err
	}
	reader.Comma = comma

	// Row length is checked against the header when the table is built.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	return nil
}

// getDecoder returns the decoder for a source encoding, or nil for UTF-8.
func getDecoder(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(name, "_", "-")) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// StripHeaderBOM removes a UTF-8 BOM from the first header cell if present.
func StripHeaderBOM(headers []string) []string {
	if len(headers) == 0 {
		return headers
	}
	headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	return headers
}

// dropBlankRows removes rows in which every field is empty, such as a
// trailing line of delimiters.
func dropBlankRows(rows [][]string) [][]string {
	out := rows[:0]
	for _, row := range rows {
		blank := true
		for _, field := range row {
			if strings.TrimSpace(field) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
