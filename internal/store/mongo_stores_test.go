package store

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestLedgerQuery(t *testing.T) {
	period := 3

	cases := []struct {
		name   string
		filter LedgerFilter
		want   bson.M
	}{
		{
			name:   "empty",
			filter: LedgerFilter{},
			want:   bson.M{},
		},
		{
			name:   "exact date only",
			filter: LedgerFilter{Date: "2026-03-02"},
			want:   bson.M{"date": "2026-03-02"},
		},
		{
			name:   "range only",
			filter: LedgerFilter{From: "2026-03-01", To: "2026-03-31"},
			want:   bson.M{"date": bson.M{"$gte": "2026-03-01", "$lte": "2026-03-31"}},
		},
		{
			name:   "exact date with range keeps both",
			filter: LedgerFilter{Date: "2026-03-02", From: "2026-03-01", To: "2026-03-31"},
			want:   bson.M{"date": bson.M{"$eq": "2026-03-02", "$gte": "2026-03-01", "$lte": "2026-03-31"}},
		},
		{
			name:   "student and period",
			filter: LedgerFilter{StudentID: "s1", PeriodID: &period},
			want:   bson.M{"student_id": "s1", "period_id": 3},
		},
	}
	for _, tc := range cases {
		if got := ledgerQuery(tc.filter); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: ledgerQuery = %v, want %v", tc.name, got, tc.want)
		}
	}
}
