// Package hardware handles the RFID-scanner integration surfaces: batch CSV
// ingestion and the flat-file scan log.
package hardware

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"campustrack/internal/apperr"
)

// Row is one parsed batch line. StudentRef may be a hardware tag UID, an
// email, or an id number; resolution happens at ingest time.
type Row struct {
	StudentRef string
	Status     string
	Date       string // optional, "YYYY-MM-DD"
	PeriodID   int
}

// ParseBatch reads a scanner-produced CSV. Expected headers: student_id (or
// id), status, marked_at (or timestamp, optional), period_id (optional).
// Rows with no student reference are returned with an empty StudentRef and
// skipped by the caller, keeping the batch going.
func ParseBatch(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.Invalid("empty or unreadable CSV")
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pick := func(record []string, names ...string) string {
		for _, n := range names {
			if i, ok := col[n]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
		}
		return ""
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed line: skip it rather than abort the batch.
			continue
		}
		row := Row{
			StudentRef: pick(record, "student_id", "id", "uid"),
			Status:     pick(record, "status"),
			Date:       pick(record, "marked_at", "timestamp", "date"),
			PeriodID:   1,
		}
		if row.Status == "" {
			row.Status = "P"
		}
		if v := pick(record, "period_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				row.PeriodID = n
			}
		}
		// Scanner exports sometimes carry a full timestamp; keep the date part.
		if len(row.Date) > 10 {
			row.Date = row.Date[:10]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
