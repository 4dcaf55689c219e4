package wpactrl

import (
	"strings"

	"github.com/columbia-irt/spinet-go/internal/errors"
)

// parseDict parses a STATUS/MIB-style response: one "key=value" pair per
// line, value taken to end of line with surrounding whitespace trimmed.
func parseDict(data string) (map[string]string, error) {
	rv := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		if line == "" {
			continue
		}
		sep := strings.IndexByte(line, '=')
		if sep == -1 {
			return nil, &errors.ProtocolError{Operation: "parse status", Details: "missing '=' in line: " + line}
		}
		rv[line[:sep]] = strings.TrimSpace(line[sep+1:])
	}
	return rv, nil
}

// parseTable parses a heading/tab-separated table response such as
// LIST_NETWORKS or SCAN_RESULTS: the first line is a '/'-separated list
// of column headings, every following line a tab-separated row. Short
// rows are padded with empty cells so every row has len(headings) cells.
func parseTable(data string) (rows [][]string, headings []string, err error) {
	lines := strings.Split(data, "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, nil, &errors.ProtocolError{Operation: "parse table", Details: "empty response"}
	}
	for _, h := range strings.Split(lines[0], "/") {
		headings = append(headings, strings.TrimSpace(h))
	}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		for len(cells) < len(headings) {
			cells = append(cells, "")
		}
		rows = append(rows, cells)
	}
	return rows, headings, nil
}

// parseKVLine parses a space-delimited key=value event payload, the
// format wpa_supplicant uses for asynchronous notifications. Values may
// be single-quoted to contain spaces.
//
// This is a deliberate redesign of the original parser, which on an
// unterminated quote included the trailing quote character as the close
// and kept going rather than raising — silently accepting malformed
// input. Here an unterminated quoted value is always reported as a
// MalformedQuotedValue CodecError.
func parseKVLine(data string) (map[string]string, error) {
	rv := make(map[string]string)
	for len(data) > 0 {
		sep := strings.IndexByte(data, '=')
		if sep == -1 {
			rv[data] = ""
			break
		}
		name := strings.TrimSpace(data[:sep])
		rest := data[sep+1:]

		if len(rest) > 0 && rest[0] == '\'' {
			end := strings.IndexByte(rest[1:], '\'')
			if end == -1 {
				return nil, &errors.CodecError{
					Operation: "parse event",
					Details:   "unterminated quoted value for key " + name,
					Kind:      errors.KindMalformedQuotedValue,
				}
			}
			value := rest[1 : end+1]
			rv[name] = value
			rest = rest[end+2:]
			data = strings.TrimPrefix(rest, " ")
			continue
		}

		if sp := strings.IndexByte(rest, ' '); sp == -1 {
			rv[name] = rest
			data = ""
		} else {
			rv[name] = rest[:sp]
			data = rest[sp+1:]
		}
	}
	return rv, nil
}
