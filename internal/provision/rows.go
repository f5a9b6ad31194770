package provision

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	columnName  = "name"
	columnPhone = "phone"
	columnNote  = "note"
)

// Row is one invitee read from the guest list. Line is the 1-based line in the source.
type Row struct {
	Line  int
	Name  string
	Phone string
	Note  string
}

// ReadRows parses a guest list with a header row. Columns are matched by name,
// case-insensitively and in any order; unknown columns are ignored and blank lines skipped.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("guest list is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := map[string]int{}
	for i, column := range header {
		column = strings.TrimPrefix(column, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(column))] = i
	}
	if _, ok := index[columnName]; !ok {
		return nil, fmt.Errorf("guest list has no %q column", columnName)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		row := Row{
			Line:  line,
			Name:  field(record, index, columnName),
			Phone: field(record, index, columnPhone),
			Note:  field(record, index, columnNote),
		}
		if isBlank(record) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
