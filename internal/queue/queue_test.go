package queue

import (
	"sync"
	"testing"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	q := New[int](10)

	for i := 0; i < 5; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("Enqueue(%d) returned false", i)
		}
	}

	if q.Len() != 5 {
		t.Errorf("Len() = %d, want 5", q.Len())
	}

	got := q.DequeueUpTo(5)
	if len(got) != 5 {
		t.Fatalf("DequeueUpTo(5) returned %d items, want 5", len(got))
	}
	for i, val := range got {
		if val != i {
			t.Errorf("item %d = %d, want %d", i, val, i)
		}
	}

	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}

func TestQueue_DequeueUpTo_PartialBatch(t *testing.T) {
	q := New[int](10)

	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}

	// Drain in batches of 2: expect 2, 2, 1, nil.
	batch := q.DequeueUpTo(2)
	if len(batch) != 2 || batch[0] != 0 || batch[1] != 1 {
		t.Errorf("first batch = %v, want [0 1]", batch)
	}

	batch = q.DequeueUpTo(2)
	if len(batch) != 2 || batch[0] != 2 || batch[1] != 3 {
		t.Errorf("second batch = %v, want [2 3]", batch)
	}

	batch = q.DequeueUpTo(2)
	if len(batch) != 1 || batch[0] != 4 {
		t.Errorf("third batch = %v, want [4]", batch)
	}

	if batch = q.DequeueUpTo(2); batch != nil {
		t.Errorf("empty dequeue = %v, want nil", batch)
	}
}

func TestQueue_GrowAt70Percent(t *testing.T) {
	q := New[int](10)

	// Enqueue 7 items (70% of 10)
	for i := 0; i < 7; i++ {
		q.Enqueue(i)
	}

	stats := q.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	// All items still come out in order
	got := q.DequeueUpTo(0)
	if len(got) != 7 {
		t.Fatalf("DequeueUpTo(0) returned %d items, want 7", len(got))
	}
	for i, val := range got {
		if val != i {
			t.Errorf("item %d = %d, want %d", i, val, i)
		}
	}
}

func TestQueue_MultipleGrows(t *testing.T) {
	q := New[int](4)

	for i := 0; i < 100; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("Enqueue(%d) returned false", i)
		}
	}

	stats := q.Stats()
	if stats.Count != 100 {
		t.Errorf("Count = %d, want 100", stats.Count)
	}
	if stats.ResizeCount < 3 {
		t.Errorf("ResizeCount = %d, expected at least 3 resizes", stats.ResizeCount)
	}

	got := q.DequeueUpTo(0)
	for i, val := range got {
		if val != i {
			t.Errorf("item %d = %d, want %d", i, val, i)
		}
	}
}

func TestQueue_FIFOUnderConcurrentEnqueue(t *testing.T) {
	q := New[int](8)

	const total = 1000
	var wg sync.WaitGroup
	wg.Add(1)

	// Single producer appending while the consumer drains in batches.
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			q.Enqueue(i)
		}
	}()

	var drained []int
	for len(drained) < total {
		drained = append(drained, q.DequeueUpTo(7)...)
	}
	wg.Wait()

	for i, val := range drained {
		if val != i {
			t.Fatalf("item %d = %d, want %d (FIFO order violated)", i, val, i)
		}
	}
}

func TestQueue_Close(t *testing.T) {
	q := New[int](4)
	q.Enqueue(1)
	q.Close()

	if q.Enqueue(2) {
		t.Error("Enqueue after Close returned true")
	}

	// Buffered items remain drainable.
	got := q.DequeueUpTo(0)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("DequeueUpTo after Close = %v, want [1]", got)
	}
}

func TestQueue_Stats(t *testing.T) {
	q := New[int](16)

	for i := 0; i < 10; i++ {
		q.Enqueue(i)
	}
	q.DequeueUpTo(4)

	stats := q.Stats()
	if stats.TotalEnqueued != 10 {
		t.Errorf("TotalEnqueued = %d, want 10", stats.TotalEnqueued)
	}
	if stats.TotalDequeued != 4 {
		t.Errorf("TotalDequeued = %d, want 4", stats.TotalDequeued)
	}
	if stats.Count != 6 {
		t.Errorf("Count = %d, want 6", stats.Count)
	}
}
