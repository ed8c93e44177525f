package slots

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const fieldSeparator = ";"

// splitFields applies the shared line framing: tabs count as separators,
// every field is reduced to its first word with CR/LF removed.
func splitFields(line string) []string {
	raw := strings.Split(strings.ReplaceAll(line, "\t", fieldSeparator), fieldSeparator)
	fields := make([]string, len(raw))
	for i, f := range raw {
		words := strings.Fields(f)
		if len(words) > 0 {
			fields[i] = words[0]
		}
	}
	return fields
}

// LoadModules reads one line per ladder and replaces every row that has
// exactly 2*ZPositions fields. Other rows are reported and left untouched.
// Rows are applied only once the whole input was read; a read error leaves
// the matrix as it was.
func (m *Matrix) LoadModules(r io.Reader) (LoadReport, error) {
	var report LoadReport
	want := m.layer.SlotsPerLadder()
	pending := map[int][]string{}
	err := eachLine(r, func(ladder int, line string) {
		fields := splitFields(line)
		if ladder >= m.layer.Ladders {
			report.Rejected = append(report.Rejected, &FormatError{
				Source: "modules", Line: ladder + 1, Want: want, Got: len(fields),
				Reason: fmt.Sprintf("layer has only %d ladders", m.layer.Ladders), Text: line,
			})
			return
		}
		if len(fields) != want {
			report.Rejected = append(report.Rejected, &FormatError{
				Source: "modules", Line: ladder + 1, Want: want, Got: len(fields), Text: line,
			})
			return
		}
		pending[ladder] = fields
	})
	if err != nil {
		return report, fmt.Errorf("slots: read modules: %w", err)
	}
	for ladder, fields := range pending {
		m.modules[ladder] = fields
	}
	report.Applied = len(pending)
	return report, nil
}

// LoadHubIDs reads the hub ID file. Each field holds TBMs integers joined
// by "/"; a blank field leaves the slot unknown. Like LoadModules, nothing
// is applied when reading fails.
func (m *Matrix) LoadHubIDs(r io.Reader) (LoadReport, error) {
	var report LoadReport
	want := m.layer.SlotsPerLadder()
	pending := map[int][]HubIDs{}
	err := eachLine(r, func(ladder int, line string) {
		fields := splitFields(line)
		reject := func(reason string) {
			report.Rejected = append(report.Rejected, &FormatError{
				Source: "hub ids", Line: ladder + 1, Want: want, Got: len(fields), Reason: reason, Text: line,
			})
		}
		if ladder >= m.layer.Ladders {
			reject(fmt.Sprintf("layer has only %d ladders", m.layer.Ladders))
			return
		}
		if len(fields) != want {
			reject("")
			return
		}
		row := make([]HubIDs, want)
		for z, field := range fields {
			ids, err := parseHubIDs(field, m.layer.TBMs)
			if err != nil {
				reject(err.Error())
				return
			}
			row[z] = ids
		}
		pending[ladder] = row
	})
	if err != nil {
		return report, fmt.Errorf("slots: read hub ids: %w", err)
	}
	for ladder, row := range pending {
		m.hubIDs[ladder] = row
	}
	report.Applied = len(pending)
	return report, nil
}

func parseHubIDs(field string, tbms int) (HubIDs, error) {
	if field == "" {
		return unknownHubIDs(tbms), nil
	}
	parts := strings.Split(field, "/")
	if len(parts) != tbms {
		return nil, fmt.Errorf("slot %q has %d hub ids, want %d", field, len(parts), tbms)
	}
	ids := make(HubIDs, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("slot %q: hub id %q is not an integer", field, p)
		}
		if v < 0 && v != UnknownHubID {
			return nil, fmt.Errorf("slot %q: hub id %d is negative", field, v)
		}
		ids[i] = v
	}
	return ids, nil
}

// SaveModules writes one ";"-joined line per ladder, ascending.
func (m *Matrix) SaveModules(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, row := range m.modules {
		if _, err := bw.WriteString(strings.Join(row, fieldSeparator) + "\n"); err != nil {
			return fmt.Errorf("slots: write modules: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("slots: write modules: %w", err)
	}
	return nil
}

// SaveHubIDs writes the hub ID grid in the format LoadHubIDs reads.
func (m *Matrix) SaveHubIDs(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, row := range m.hubIDs {
		fields := make([]string, len(row))
		for z, ids := range row {
			fields[z] = FormatHubIDs(ids)
		}
		if _, err := bw.WriteString(strings.Join(fields, fieldSeparator) + "\n"); err != nil {
			return fmt.Errorf("slots: write hub ids: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("slots: write hub ids: %w", err)
	}
	return nil
}

// eachLine calls fn for every line of r with the line ending stripped.
// Lines have no length limit, so an overlong row reaches fn and is rejected
// there like any other malformed row.
func eachLine(r io.Reader, fn func(index int, line string)) error {
	br := bufio.NewReader(r)
	for index := 0; ; index++ {
		line, err := br.ReadString('\n')
		if line != "" {
			fn(index, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
