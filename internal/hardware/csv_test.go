package hardware

import (
	"strings"
	"testing"
)

func TestParseBatch(t *testing.T) {
	csv := strings.Join([]string{
		"student_id,status,marked_at,period_id",
		"s1,P,2026-03-02,2",
		"s2,A,2026-03-02T09:15:00Z,3",
		"s3,,2026-03-02,",
		",P,2026-03-02,1",
	}, "\n")

	rows, err := ParseBatch(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("want 4 rows, got %d", len(rows))
	}
	if rows[0].StudentRef != "s1" || rows[0].Status != "P" || rows[0].PeriodID != 2 {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	// Full timestamps keep only the date part.
	if rows[1].Date != "2026-03-02" {
		t.Fatalf("row 1 date = %q", rows[1].Date)
	}
	// Missing status defaults to present, missing period to 1.
	if rows[2].Status != "P" || rows[2].PeriodID != 1 {
		t.Fatalf("row 2 = %+v", rows[2])
	}
	// The empty reference is kept; ingest skips it.
	if rows[3].StudentRef != "" {
		t.Fatalf("row 3 = %+v", rows[3])
	}
}

func TestParseBatchHeaderAliases(t *testing.T) {
	csv := "UID,Status\nTAG001,P\n"
	rows, err := ParseBatch(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].StudentRef != "TAG001" {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestParseBatchEmpty(t *testing.T) {
	if _, err := ParseBatch(strings.NewReader("")); err == nil {
		t.Fatal("empty input should fail")
	}
	// Header only is a valid zero-row batch.
	rows, err := ParseBatch(strings.NewReader("student_id,status\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("want 0 rows, got %d", len(rows))
	}
}
