package messagelog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/daemonp/webasto-monitor/internal/types"
)

var csvHeader = []string{"Timestamp", "Direction", "Message", "Description"}

// ExportFilename is the download name for an export taken at t.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("webasto-messages-%s.csv", t.UTC().Format("2006-01-02"))
}

// WriteCSV writes entries in the controller's export format. Message and
// description are always quoted.
func WriteCSV(w io.Writer, entries []types.MessageEntry) error {
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, e := range entries {
		lines = append(lines, strings.Join([]string{
			plainField(e.Timestamp),
			plainField(string(e.Direction)),
			quote(e.Data),
			quote(e.Description),
		}, ","))
	}

	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func plainField(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

// ReadCSV parses an export produced by WriteCSV. A \r\n inside a quoted field
// comes back as \n.
func ReadCSV(r io.Reader) ([]types.MessageEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv column %d: %q", i, header[i])
		}
	}

	var entries []types.MessageEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		dir, err := types.ParseDirection(record[1])
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.MessageEntry{
			Timestamp:   record[0],
			Direction:   dir,
			Data:        record[2],
			Description: record[3],
		})
	}
}
