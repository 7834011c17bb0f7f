package ring

import "testing"

func TestPushPopFIFO(t *testing.T) {
	b := New[int](8)
	for i := 0; i < 5; i++ {
		if !b.Push(i) {
			t.Fatalf("push %d rejected", i)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := b.Pop()
		if !ok || v != i {
			t.Fatalf("pop = %d,%v want %d,true", v, ok, i)
		}
	}
	if _, ok := b.Pop(); ok {
		t.Fatal("pop from empty ring succeeded")
	}
}

func TestCapacityIsSizeMinusOne(t *testing.T) {
	b := New[int](4)
	if b.Cap() != 3 {
		t.Fatalf("Cap = %d, want 3", b.Cap())
	}
	for i := 0; i < 3; i++ {
		if !b.Push(i) {
			t.Fatalf("push %d rejected before capacity", i)
		}
	}
	if b.Push(99) {
		t.Fatal("push beyond capacity accepted")
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d after rejected push, want 3", b.Len())
	}
	// Contents unchanged by the rejected push.
	for i := 0; i < 3; i++ {
		v, ok := b.Pop()
		if !ok || v != i {
			t.Fatalf("pop = %d,%v want %d,true", v, ok, i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	b := New[int](4)
	next := 0
	for round := 0; round < 10; round++ {
		for i := 0; i < 3; i++ {
			if !b.Push(next + i) {
				t.Fatalf("round %d: push rejected", round)
			}
		}
		for i := 0; i < 3; i++ {
			v, ok := b.Pop()
			if !ok || v != next+i {
				t.Fatalf("round %d: pop = %d,%v want %d", round, v, ok, next+i)
			}
		}
		next += 3
	}
}

func TestLenTracksInterleaved(t *testing.T) {
	b := New[int](8)
	b.Push(1)
	b.Push(2)
	if b.Len() != 2 {
		t.Fatalf("Len = %d, want 2", b.Len())
	}
	b.Pop()
	if b.Len() != 1 {
		t.Fatalf("Len = %d, want 1", b.Len())
	}
	// Wrap the indices and re-check.
	for i := 0; i < 20; i++ {
		b.Push(i)
		b.Pop()
	}
	if b.Len() != 1 {
		t.Fatalf("Len after wrap = %d, want 1", b.Len())
	}
}

func TestNewPanicsOnTinySize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for size < 2")
		}
	}()
	New[int](1)
}

func TestConcurrentSPSC(t *testing.T) {
	const n = 100000
	b := New[int](64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		expect := 0
		for expect < n {
			v, ok := b.Pop()
			if !ok {
				continue
			}
			if v != expect {
				t.Errorf("out of order: got %d want %d", v, expect)
			}
			expect++
		}
	}()
	for i := 0; i < n; {
		if b.Push(i) {
			i++
		}
	}
	<-done
}

func BenchmarkPushPop(b *testing.B) {
	r := New[[16]byte](64)
	var v [16]byte
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		r.Push(v)
		r.Pop()
	}
}
