package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Column headers of a LinkedIn connections export.
const (
	ColumnFirstName   = "First Name"
	ColumnLastName    = "Last Name"
	ColumnURL         = "URL"
	ColumnEmail       = "Email Address"
	ColumnCompany     = "Company"
	ColumnPosition    = "Position"
	ColumnConnectedOn = "Connected On"
)

var requiredColumns = []string{
	ColumnFirstName, ColumnLastName, ColumnURL, ColumnEmail,
	ColumnCompany, ColumnPosition, ColumnConnectedOn,
}

var connectedOnLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"2006-01-02",
	"01/02/2006",
	"Jan 2, 2006",
}

// ReadConnectionsCSV parses a LinkedIn connections export. Lines before the
// header row (LinkedIn prepends notes) and blank rows are skipped. Columns are
// mapped by header name; unparseable dates are left zero.
func ReadConnectionsCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var header map[string]int
	var columns []string
	var records []Record

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if isBlank(row) {
			continue
		}

		if header == nil {
			if h, ok := parseHeader(row); ok {
				header = h
				columns = cleanHeader(row)
			}
			continue
		}

		records = append(records, toRecord(row, header, columns))
	}

	if header == nil {
		return nil, fmt.Errorf("%w: expected %s", ErrMissingColumns, strings.Join(requiredColumns, ", "))
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

// parseHeader accepts row as the header when it names every required column.
func parseHeader(row []string) (map[string]int, bool) {
	index := make(map[string]int, len(row))
	for i, name := range cleanHeader(row) {
		index[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, false
		}
	}
	return index, true
}

func cleanHeader(row []string) []string {
	out := make([]string, len(row))
	for i, name := range row {
		out[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return out
}

func toRecord(row []string, header map[string]int, columns []string) Record {
	get := func(col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return cleanValue(row[i])
	}

	raw := make(map[string]string, len(row))
	for i, value := range row {
		if i < len(columns) && columns[i] != "" {
			if v := cleanValue(value); v != "" {
				raw[columns[i]] = v
			}
		}
	}

	return Record{
		FirstName:   get(ColumnFirstName),
		LastName:    get(ColumnLastName),
		Email:       get(ColumnEmail),
		LinkedInURL: get(ColumnURL),
		Company:     get(ColumnCompany),
		Position:    get(ColumnPosition),
		ConnectedOn: parseConnectedOn(get(ColumnConnectedOn)),
		Raw:         raw,
	}
}

// cleanValue trims v and maps spreadsheet null markers to "".
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null":
		return ""
	}
	return v
}

func parseConnectedOn(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range connectedOnLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
