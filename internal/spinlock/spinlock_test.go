package spinlock

import (
	"sync"
	"testing"
)

func TestMutexMutualExclusion(t *testing.T) {
	m := New(0)

	var wg sync.WaitGroup
	const n = 200
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g := m.Lock()
			*g.Get()++
			g.Unlock()
		}()
	}
	wg.Wait()

	g := m.Lock()
	defer g.Unlock()
	if got := *g.Get(); got != n {
		t.Fatalf("got %d increments, want %d", got, n)
	}
}
