package entropy

import "testing"

func TestStreamReplaysFromSeed(t *testing.T) {
	a := NewStream(42)
	b := NewStream(42)

	for i := 0; i < 100; i++ {
		if a.Float() != b.Float() {
			t.Fatalf("streams diverged at draw %d", i)
		}
	}
	if a.Seed() != 42 {
		t.Fatalf("Seed = %d, want 42", a.Seed())
	}
}

func TestRangeWithinBounds(t *testing.T) {
	s := NewStream(7)
	for i := 0; i < 1000; i++ {
		v := s.Range(-0.25, 0.25)
		if v < -0.25 || v >= 0.25 {
			t.Fatalf("Range draw %v outside [-0.25, 0.25)", v)
		}
	}
}

func TestChanceExtremes(t *testing.T) {
	s := NewStream(7)
	for i := 0; i < 100; i++ {
		if s.Chance(0) {
			t.Fatalf("Chance(0) fired")
		}
		if !s.Chance(1) {
			t.Fatalf("Chance(1) did not fire")
		}
	}
}

func TestForkIsIndependentButDeterministic(t *testing.T) {
	f1 := NewStream(42).Fork()
	f2 := NewStream(42).Fork()
	for i := 0; i < 50; i++ {
		if f1.Float() != f2.Float() {
			t.Fatalf("forks of identical streams diverged at draw %d", i)
		}
	}
}
