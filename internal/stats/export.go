package stats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tourism_occupancy/internal/domain"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

var csvHeader = []string{"date", "kind", "establishment", "guests", "domestic", "foreign", "overnight", "provenance"}

const csvProvenanceLen = 200

// WriteCSV writes one row per record. The header is bare, every value is
// double quoted with embedded quotes doubled.
func WriteCSV(w io.Writer, records []domain.Questionnaire) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(csvHeader, ",")); err != nil {
		return err
	}
	for _, q := range records {
		t := totals(q)
		row := []string{
			q.StartDate.Format("2006-01-02"),
			string(q.Kind),
			establishmentName(q),
			strconv.Itoa(t.Guests),
			strconv.Itoa(t.Domestic),
			strconv.Itoa(t.Foreign),
			strconv.Itoa(t.Overnight),
			truncateRunes(provenance(q), csvProvenanceLen),
		}
		for i, v := range row {
			row[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
		}
		if _, err := bw.WriteString("\n" + strings.Join(row, ",")); err != nil {
			return err
		}
	}
	return bw.Flush()
}
