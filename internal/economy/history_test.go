package economy

import (
	"testing"
	"time"
)

func TestMedianInt64(t *testing.T) {
	tests := []struct {
		name string
		in   []int64
		want int64
	}{
		{name: "empty", in: nil, want: 0},
		{name: "single", in: []int64{42}, want: 42},
		{name: "odd", in: []int64{5, 1, 3}, want: 3},
		{name: "even", in: []int64{4, 1, 3, 2}, want: 2},
		{name: "duplicates", in: []int64{10, 10, 10, 50}, want: 10},
	}
	for _, tc := range tests {
		if got := MedianInt64(tc.in); got != tc.want {
			t.Fatalf("%s: MedianInt64 = %d, want %d", tc.name, got, tc.want)
		}
	}

	in := []int64{9, 1, 5}
	_ = MedianInt64(in)
	if in[0] != 9 || in[1] != 1 || in[2] != 5 {
		t.Fatalf("input slice was reordered: %v", in)
	}
}

func TestHistoryPeriodWindow(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		period    HistoryPeriod
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			period:    PeriodDaily,
			wantStart: time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			period:    PeriodWeekly,
			wantStart: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			period:    PeriodMonthly,
			wantStart: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		start, end, err := tc.period.window(now)
		if err != nil {
			t.Fatalf("window(%s): %v", tc.period, err)
		}
		if !start.Equal(tc.wantStart) || !end.Equal(tc.wantEnd) {
			t.Fatalf("window(%s) = [%v, %v), want [%v, %v)",
				tc.period, start, end, tc.wantStart, tc.wantEnd)
		}
	}

	// January rolls the monthly window back into the previous year.
	jan := time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)
	start, end, err := PeriodMonthly.window(jan)
	if err != nil {
		t.Fatalf("window(MONTHLY): %v", err)
	}
	if start.Year() != 2025 || start.Month() != time.December || end.Month() != time.January {
		t.Fatalf("window(MONTHLY) across new year = [%v, %v)", start, end)
	}

	for _, bad := range []HistoryPeriod{"HOURLY", "YEARLY", ""} {
		if _, _, err := bad.window(now); err == nil {
			t.Fatalf("expected window(%q) to fail", bad)
		}
	}
}
