package catalog

import (
	"strings"
)

// ParseRow splits one CSV line into trimmed fields. Double-quoted fields may
// contain commas, and a doubled quote inside quotes is an escaped quote.
// Lines are split before rows are parsed, so a literal newline inside a
// quoted field is not reconstructed; sheet exports never produce one.
func ParseRow(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}

// dataLines splits csvText into non-blank lines with the header row removed.
func dataLines(csvText string) []string {
	var lines []string
	for _, line := range strings.Split(csvText, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) <= 1 {
		return nil
	}
	return lines[1:]
}

// ParseBusinesses parses the profile sheet export into visible businesses,
// preserving source row order. Rows with fewer than 14 columns and rows that
// fail the visibility filter are dropped; one bad row never aborts the parse.
func ParseBusinesses(csvText string) []Business {
	var businesses []Business
	for _, line := range dataLines(csvText) {
		row := ParseRow(line)
		if len(row) < businessMinColumns {
			continue
		}
		b := businessFromRow(row)
		if b.Visible() {
			businesses = append(businesses, b)
		}
	}
	return businesses
}

// ParseProducts parses a product sheet export, grouping products by category
// in first-seen order. Rows with fewer than 6 columns are dropped.
func ParseProducts(csvText string) *ProductGroups {
	groups := NewProductGroups()
	for _, line := range dataLines(csvText) {
		row := ParseRow(line)
		if len(row) < productMinColumns {
			continue
		}
		groups.Add(productFromRow(row))
	}
	return groups
}
