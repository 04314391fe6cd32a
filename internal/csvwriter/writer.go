// =============================================================================
// Sales Validator - Cleaned Output Writer
// =============================================================================
//
// This module writes a validated table as a delimited file.
//
// OUTPUT FORMAT:
//   - Header: the data columns in table order (scratch columns are skipped)
//   - Dates:  2006-01-02, or 2006-01-02 15:04:05 when any value in the
//             column carries a time of day
//   - Ints:   base 10
//   - Floats: shortest representation, with ".0" on integral values
//   - Text:   exactly as read
//
// WRITE SEMANTICS:
//   The file is written to a temporary file in the destination directory,
//   synced, then renamed over the destination. Readers never observe a
//   partially written file, and a failed write leaves any previous output
//   untouched.
//
// =============================================================================

package csvwriter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/ginjaninja78/sales-validator/internal/table"
)

// Result describes a completed write.
type Result struct {
	// Path is the destination file.
	Path string

	// Rows is the number of data rows written.
	Rows int

	// Bytes is the size of the written file.
	Bytes int64

	// Fingerprint is the xxh3-64 hash of the file contents, hex encoded.
	Fingerprint string
}

// =============================================================================
// WRITE FUNCTIONS
// =============================================================================

// Write atomically writes tbl to path, creating the parent directory if
// needed.
//
// PARAMETERS:
//   - path: The destination file. It is replaced wholesale.
//   - tbl: The validated table.
//   - delimiter: The field separator.
//
// RETURNS:
//   - A Result with the row count and content fingerprint.
//   - An error if the file cannot be written. The destination is unchanged.
func Write(path string, tbl *table.Table, delimiter rune) (*Result, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	hasher := xxh3.New()
	counter := &countingWriter{}
	buffered := bufio.NewWriter(io.MultiWriter(tmp, hasher, counter))

	if err := Encode(buffered, tbl, delimiter); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := buffered.Flush(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to sync output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to set output permissions: %w", err)
	}

	// atomically move into place
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, fmt.Errorf("failed to move output into place: %w", err)
	}

	return &Result{
		Path:        path,
		Rows:        tbl.Len(),
		Bytes:       counter.n,
		Fingerprint: fmt.Sprintf("%016x", hasher.Sum64()),
	}, nil
}

// Encode writes tbl as delimited text to w.
func Encode(w io.Writer, tbl *table.Table, delimiter rune) error {
	var columns []*table.Column
	for _, c := range tbl.Columns() {
		if !c.Scratch() {
			columns = append(columns, c)
		}
	}

	layouts := make([]string, len(columns))
	for i, c := range columns {
		if c.Kind == table.KindDate {
			layouts[i] = dateLayout(c)
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(columns))
	for row := 0; row < tbl.Len(); row++ {
		for i, c := range columns {
			record[i] = FormatValue(c.Values[row], layouts[i])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// FormatValue renders one cell. dateLayout is used for time values.
func FormatValue(v any, dateLayout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case time.Time:
		if dateLayout == "" {
			dateLayout = time.DateOnly
		}
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// dateLayout picks the date-only layout unless a value has a time of day.
func dateLayout(c *table.Column) string {
	for i := range c.Values {
		t, ok := c.Time(i)
		if !ok {
			continue
		}
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
			return time.DateTime
		}
	}
	return time.DateOnly
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
