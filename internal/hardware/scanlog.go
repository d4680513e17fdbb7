package hardware

import (
	"encoding/csv"
	"os"
	"sync"
)

// scanLogHeader matches the format the Raspberry Pi monitor expects.
var scanLogHeader = []string{"RegNo", "Name", "Status", "Timestamp"}

// Entry is one raw scan line. Time is kept as the scanner-supplied string;
// the log is a redundant sink with no uniqueness guarantee of its own.
type Entry struct {
	RegNo  string `json:"regNo"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ScanLog is the flat CSV file hardware scans are appended to.
type ScanLog struct {
	mu   sync.Mutex
	path string
}

func NewScanLog(path string) *ScanLog {
	return &ScanLog{path: path}
}

// Append writes one entry, creating the file with a header row when absent.
func (l *ScanLog) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	writeHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		writeHeader = true
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(scanLogHeader); err != nil {
			return err
		}
	}
	if err := w.Write([]string{e.RegNo, e.Name, e.Status, e.Time}); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReadAll returns every logged entry, latest first.
func (l *ScanLog) ReadAll() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue // header or short line
		}
		entries = append(entries, Entry{RegNo: rec[0], Name: rec[1], Status: rec[2], Time: rec[3]})
	}
	// Latest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// LiveRow aggregates a student's first and latest scans of the day.
type LiveRow struct {
	RegNo      string `json:"regNo"`
	Name       string `json:"name"`
	EntryTime  string `json:"entryTime"`
	ExitTime   string `json:"exitTime,omitempty"`
	LastStatus string `json:"lastStatus"`
}

// Live folds the log into per-student entry/exit times for the monitor view.
func (l *ScanLog) Live() ([]LiveRow, error) {
	entries, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	// ReadAll is latest-first; walk oldest-first to build entry/exit order.
	stats := map[string]*LiveRow{}
	var order []string
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.RegNo == "" || e.RegNo == "N/A" || e.Time == "" {
			continue
		}
		row, ok := stats[e.RegNo]
		if !ok {
			stats[e.RegNo] = &LiveRow{RegNo: e.RegNo, Name: e.Name, EntryTime: e.Time, LastStatus: e.Status}
			order = append(order, e.RegNo)
			continue
		}
		row.ExitTime = e.Time
		row.LastStatus = e.Status
	}
	rows := make([]LiveRow, 0, len(order))
	for _, reg := range order {
		rows = append(rows, *stats[reg])
	}
	return rows, nil
}
