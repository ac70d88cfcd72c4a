package series

import (
	"errors"
	"testing"
)

func TestAppendAndAt(t *testing.T) {
	s := New[float64](3)
	for _, v := range []float64{1, 2, 3, 4} {
		s.Append(v)
	}
	if s.Len() != 3 || s.Seen() != 4 {
		t.Fatalf("expected len 3 seen 4, got %d %d", s.Len(), s.Seen())
	}
	want := map[int]float64{0: 4, -1: 3, -2: 2}
	for off, exp := range want {
		got, err := s.At(off)
		if err != nil {
			t.Fatalf("At(%d) error: %v", off, err)
		}
		if got != exp {
			t.Fatalf("At(%d) expected %.0f got %.0f", off, exp, got)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	s := New[int](4)
	s.Append(7)

	_, err := s.At(-1)
	var oor *OutOfRangeError
	if !errors.As(err, &oor) {
		t.Fatalf("expected OutOfRangeError, got %v", err)
	}
	if oor.Offset != -1 || oor.Len != 1 {
		t.Fatalf("unexpected error payload %+v", oor)
	}
	if _, err := s.At(1); err == nil {
		t.Fatalf("expected positive offset to fail")
	}
}

func TestReady(t *testing.T) {
	s := New[int](10)
	if s.Ready(0) {
		t.Fatalf("empty series should not be ready")
	}
	s.Append(1)
	s.Append(2)
	if !s.Ready(-1) || s.Ready(-2) {
		t.Fatalf("expected offsets 0..-1 only")
	}
}

func TestAtOrOldest(t *testing.T) {
	s := New[float64](5)
	if s.AtOrOldest(0) != 0 {
		t.Fatalf("empty series should yield zero")
	}
	s.Append(10)
	s.Append(20)
	if s.AtOrOldest(-5) != 10 {
		t.Fatalf("expected oldest value substituted")
	}
	if s.AtOrOldest(0) != 20 {
		t.Fatalf("expected latest value")
	}
}

func TestLast(t *testing.T) {
	s := New[int](4)
	for i := 1; i <= 6; i++ {
		s.Append(i)
	}
	got := s.Last(10)
	want := []int{6, 5, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("expected %d values got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Last mismatch at %d: %v", i, got)
		}
	}
}
