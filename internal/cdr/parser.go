package cdr

import "strings"

// MinFields is the minimum token count for a line to yield a record.
// Shorter lines are dropped without error.
const MinFields = 15

// Parse splits a CSV feed body into records.
//
// The first line is always discarded as a header. It is not checked against
// Columns; callers that care can use HeaderMatches. Blank lines and lines with
// fewer than MinFields tokens are skipped.
func Parse(raw string) []RawRecord {
	lines := strings.Split(raw, "\n")
	if len(lines) <= 1 {
		return nil
	}

	out := make([]RawRecord, 0, len(lines)-1)
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := SplitLine(line)
		if len(fields) < MinFields {
			continue
		}
		out = append(out, FromFields(fields))
	}
	return out
}

// SplitLine tokenizes one CSV line.
//
// A double quote toggles quoting; a doubled quote inside a quoted section is a
// literal quote; commas inside quotes are not separators. Tokens are trimmed.
func SplitLine(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuote && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

// HeaderMatches reports whether the header line names the columns in the order
// FromFields expects. Extra trailing columns are allowed.
func HeaderMatches(header string) bool {
	got := SplitLine(strings.TrimRight(header, "\r"))
	if len(got) < MinFields {
		return false
	}
	for i, name := range got {
		if i >= len(Columns) {
			break
		}
		if !strings.EqualFold(strings.TrimSpace(name), Columns[i]) {
			return false
		}
	}
	return true
}

// Header returns the first line of raw, or "" when there is none.
func Header(raw string) string {
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		return raw[:i]
	}
	return raw
}
