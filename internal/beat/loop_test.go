package beat

import (
	"sync"
	"testing"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop()
	go l.Run()
	defer l.Close()

	var got []int
	var wg sync.WaitGroup
	wg.Add(1)
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	l.Post(wg.Done)
	wg.Wait()

	for i, v := range got {
		if v != i {
			t.Fatalf("out of order: %v", got)
		}
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 closures, got %d", len(got))
	}
}

func TestLoopDoWaits(t *testing.T) {
	l := NewLoop()
	go l.Run()
	defer l.Close()

	n := 0
	if !l.Do(func() { n = 42 }) {
		t.Fatalf("expected Do to run")
	}
	if n != 42 {
		t.Fatalf("expected closure result, got %d", n)
	}
}

func TestLoopClosed(t *testing.T) {
	l := NewLoop()
	go l.Run()
	l.Close()
	if l.Post(func() {}) {
		t.Fatalf("expected post after close to fail")
	}
	if l.Do(func() {}) {
		t.Fatalf("expected Do after close to fail")
	}
	l.Close()
}
