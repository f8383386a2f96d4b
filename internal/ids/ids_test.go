package ids

import (
	"reflect"
	"sync"
	"testing"
)

func TestWindowAllocator_NeverReuses(t *testing.T) {
	var a WindowAllocator
	seen := make(map[WindowID]bool)
	for i := 0; i < 100; i++ {
		id := a.Next()
		if !id.Valid() {
			t.Fatalf("allocation %d returned invalid id %d", i, id)
		}
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}
}

func TestWindowID_Valid(t *testing.T) {
	tests := []struct {
		id   WindowID
		want bool
	}{
		{0, false},
		{1, true},
		{DragIconWindowID, false},
	}
	for _, tt := range tests {
		if got := tt.id.Valid(); got != tt.want {
			t.Errorf("WindowID(%d).Valid() = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestRequestAllocator_ConcurrentUnique(t *testing.T) {
	var a RequestAllocator
	var mu sync.Mutex
	seen := make(map[RequestID]bool)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := a.Next()
				mu.Lock()
				if id == 0 || seen[id] {
					t.Errorf("bad or duplicate request id %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 400 {
		t.Fatalf("expected 400 ids, got %d", len(seen))
	}
}

func TestCorrelation_TakeExactlyOnce(t *testing.T) {
	c := NewCorrelation()
	if c.Add(0, 1) {
		t.Fatalf("request id 0 must not be registered")
	}
	if !c.Add(7, 3) {
		t.Fatalf("expected add to succeed")
	}
	if c.Add(7, 4) {
		t.Fatalf("duplicate add must fail")
	}

	owner, ok := c.Take(7)
	if !ok || owner != 3 {
		t.Fatalf("Take(7) = %d, %v; want 3, true", owner, ok)
	}
	if _, ok := c.Take(7); ok {
		t.Fatalf("second Take must fail")
	}
}

func TestCorrelation_DropWindow(t *testing.T) {
	c := NewCorrelation()
	c.Add(1, 10)
	c.Add(2, 11)
	c.Add(3, 10)
	c.Add(4, 0)

	got := c.DropWindow(10)
	if !reflect.DeepEqual(got, []RequestID{1, 3}) {
		t.Fatalf("DropWindow(10) = %v, want [1 3]", got)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 pending, got %d", c.Len())
	}
	if dropped := c.DropWindow(0); len(dropped) != 0 {
		t.Fatalf("window-less requests must survive DropWindow(0), dropped %v", dropped)
	}
	if _, ok := c.Owner(4); !ok {
		t.Fatalf("expected request 4 to remain pending")
	}
}
