package teamstamp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alnah/go-teamstamp/internal/fileutil"
)

// TableFileName is the credential table written at the output root.
const TableFileName = "team_data.csv"

// tableHeader is the first line of every credential table.
var tableHeader = []string{"TeamNum", "Password", "Code"}

// minTableColumns is the number of columns a row must carry.
// Extra columns are ignored.
const minTableColumns = 3

// ReadTable parses a credential table: a header line followed by
// id,secret,code rows.
func ReadTable(r io.Reader) (CredentialTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // row width is checked below with line numbers

	// Header content is not checked; tables from older runs may label
	// columns differently.
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrFormat)
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	var table CredentialTable
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) < minTableColumns {
			return nil, fmt.Errorf("%w: line %d: expected %d columns, got %d", ErrFormat, line, minTableColumns, len(record))
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: team number %q is not an integer", ErrFormat, line, record[0])
		}
		table = append(table, Recipient{ID: id, Secret: record[1], Code: record[2]})
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadTable reads a credential table from disk.
func LoadTable(path string) (CredentialTable, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided replay table
	if err != nil {
		return nil, fmt.Errorf("opening credential table: %w", err)
	}
	defer f.Close()

	table, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// WriteTable writes the header and one row per recipient, in table order.
func WriteTable(w io.Writer, table CredentialTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tableHeader); err != nil {
		return err
	}
	for _, r := range table {
		if err := writer.Write([]string{strconv.Itoa(r.ID), r.Secret, r.Code}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveTable replaces the file at path with the table.
// The write is atomic: a crash leaves either the old or the new table.
func SaveTable(path string, table CredentialTable) error {
	var b strings.Builder
	if err := WriteTable(&b, table); err != nil {
		return fmt.Errorf("encoding credential table: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), fileutil.PrivateFilePerm); err != nil {
		return fmt.Errorf("saving credential table: %w", err)
	}
	return nil
}
