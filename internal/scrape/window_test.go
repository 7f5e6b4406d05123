package scrape

import (
	"errors"
	"testing"
	"time"

	"easel/internal/services"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestWindowShiftsStrictlyBackward(t *testing.T) {
	w := NewWindow(date(2023, 1, 1), date(2023, 12, 31))

	from1, to1, err := w.Next(50)
	if err != nil {
		t.Fatal(err)
	}
	if !to1.Equal(date(2023, 12, 31)) {
		t.Fatalf("first window should end at the range upper bound, got %v", to1)
	}
	if !from1.Before(to1) {
		t.Fatalf("window inverted: [%v, %v]", from1, to1)
	}

	from2, to2, err := w.Next(50)
	if err != nil {
		t.Fatal(err)
	}
	if !to2.Equal(from1) {
		t.Fatalf("windows must not overlap or skip: second ends %v, first starts %v", to2, from1)
	}
	if !from2.Before(from1) {
		t.Fatal("window must move monotonically backward")
	}
}

func TestWindowExhaustionOnlyAtFloor(t *testing.T) {
	w := NewWindow(date(2023, 1, 1), date(2023, 1, 10))

	// Zero results must not exhaust the window; only crossing the floor may.
	sawExhaustion := false
	for i := 0; i < 100; i++ {
		from, to, err := w.Next(10)
		if err != nil {
			if !errors.Is(err, services.ErrExhausted) {
				t.Fatalf("unexpected error: %v", err)
			}
			sawExhaustion = true
			break
		}
		w.Observe(from, to, 0)
	}
	if !sawExhaustion {
		t.Fatal("window should eventually cross the floor")
	}
}

func TestWindowShrinksAsRateGrows(t *testing.T) {
	w := NewWindow(date(2000, 1, 1), date(2023, 12, 31))

	from1, to1, err := w.Next(10)
	if err != nil {
		t.Fatal(err)
	}
	width1 := to1.Sub(from1)

	// A dense source: many results per day observed repeatedly.
	w.Observe(from1, to1, 100000)
	from2, to2, err := w.Next(10)
	if err != nil {
		t.Fatal(err)
	}
	width2 := to2.Sub(from2)

	if width2 > width1 {
		t.Fatalf("window should shrink as estimated rate grows: %v then %v", width1, width2)
	}
	if width2 < 24*time.Hour {
		t.Fatalf("window width must not drop below one day, got %v", width2)
	}
}

func TestWindowWidensForSparseSources(t *testing.T) {
	w := NewWindow(date(2000, 1, 1), date(2023, 12, 31))

	from, to, err := w.Next(10)
	if err != nil {
		t.Fatal(err)
	}
	w.Observe(from, to, 0)
	rate1 := w.RatePerDay()
	w.Observe(from, to, 0)
	if w.RatePerDay() > rate1 {
		t.Fatal("rate should not grow on empty observations")
	}

	from2, to2, err := w.Next(10)
	if err != nil {
		t.Fatal(err)
	}
	if to2.Sub(from2) < to.Sub(from) {
		t.Fatal("window should not shrink after empty observations")
	}
}

func TestSafeInstanceName(t *testing.T) {
	cases := map[string]string{
		"2301.00001":        "2301.00001",
		"user/repo":         "user_repo",
		"a b\tc":            "a_b_c",
		"..":                "_",
		"  spaced  ":        "spaced",
		"IMSLP123 - Op.27;": "IMSLP123_-_Op.27;",
	}
	for in, want := range cases {
		if got := SafeInstanceName(in); got != want {
			t.Fatalf("SafeInstanceName(%q) = %q, want %q", in, got, want)
		}
	}
}
