package relay

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/oracle-relay/internal/model"
	"github.com/rickgao/oracle-relay/internal/queue"
)

// fakeFetcher returns a canned outcome per request.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	outcome func(req model.Request) model.FetchOutcome
}

func (f *fakeFetcher) FetchWithRetry(ctx context.Context, req model.Request) model.FetchOutcome {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.outcome(req)
}

type submittedCall struct {
	RequestID uint64
	Value     *big.Int
	Requester string
}

// fakeSubmitter records submissions in order.
type fakeSubmitter struct {
	mu       sync.Mutex
	calls    []submittedCall
	failFor  map[uint64]error
	onSubmit func(call submittedCall)
}

func (s *fakeSubmitter) SubmitResult(ctx context.Context, requestID uint64, value *big.Int, requester string) (string, error) {
	call := submittedCall{RequestID: requestID, Value: value, Requester: requester}

	s.mu.Lock()
	if err, ok := s.failFor[requestID]; ok {
		s.mu.Unlock()
		return "", err
	}
	s.calls = append(s.calls, call)
	hook := s.onSubmit
	s.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return "0xtx", nil
}

func (s *fakeSubmitter) submissions() []submittedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]submittedCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func successOutcome(value int64) func(model.Request) model.FetchOutcome {
	return func(model.Request) model.FetchOutcome {
		return model.FetchOutcome{Value: big.NewInt(value), Attempts: 1}
	}
}

func enqueueRequests(q *queue.Queue[model.Request], ids ...uint64) {
	for i, id := range ids {
		q.Enqueue(model.Request{
			Requester:  "0xaaa",
			RequestID:  id,
			Seq:        uint64(i + 1),
			ObservedAt: time.Now(),
		})
	}
}

// Three requests, source always succeeds: three submissions with the
// normalized value, in arrival order.
func TestProcessor_SubmitsInOrder(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 1, 2, 3)

	// 100 quoted at a 10-digit shift.
	normalized := int64(100) * 1e10
	fetcher := &fakeFetcher{outcome: successOutcome(normalized)}
	submitter := &fakeSubmitter{}

	p := NewProcessor(ProcessorConfig{BatchSize: 10, TickInterval: time.Hour}, q, fetcher, submitter, nil, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.processBatch()

	subs := submitter.submissions()
	if len(subs) != 3 {
		t.Fatalf("submissions = %d, want 3", len(subs))
	}
	for i, want := range []uint64{1, 2, 3} {
		if subs[i].RequestID != want {
			t.Errorf("submission %d = request %d, want %d", i, subs[i].RequestID, want)
		}
		if subs[i].Value.Int64() != normalized {
			t.Errorf("submission %d value = %s, want %d", i, subs[i].Value, normalized)
		}
	}

	stats := p.Stats()
	if stats.Succeeded != 3 || stats.Sentinels != 0 {
		t.Errorf("stats = %+v, want 3 succeeded, 0 sentinels", stats)
	}
}

// A failed fetch submits the zero sentinel, never nothing.
func TestProcessor_SentinelOnFailure(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 7)

	fetcher := &fakeFetcher{outcome: func(model.Request) model.FetchOutcome {
		return model.FetchOutcome{Err: errors.New("source down"), Attempts: 3}
	}}
	submitter := &fakeSubmitter{}

	p := NewProcessor(ProcessorConfig{BatchSize: 10, TickInterval: time.Hour}, q, fetcher, submitter, nil, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.processBatch()

	subs := submitter.submissions()
	if len(subs) != 1 {
		t.Fatalf("submissions = %d, want 1", len(subs))
	}
	if subs[0].RequestID != 7 {
		t.Errorf("RequestID = %d, want 7", subs[0].RequestID)
	}
	if subs[0].Value.Sign() != 0 {
		t.Errorf("Value = %s, want sentinel 0", subs[0].Value)
	}
	if subs[0].Requester != "0xaaa" {
		t.Errorf("Requester = %q, want 0xaaa", subs[0].Requester)
	}

	stats := p.Stats()
	if stats.Sentinels != 1 {
		t.Errorf("Sentinels = %d, want 1", stats.Sentinels)
	}
}

// Five requests with batch size 2 drain as 2, 2, 1, never all at once.
func TestProcessor_BatchSizeBound(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 1, 2, 3, 4, 5)

	fetcher := &fakeFetcher{outcome: successOutcome(1)}
	submitter := &fakeSubmitter{}

	p := NewProcessor(ProcessorConfig{BatchSize: 2, TickInterval: time.Hour}, q, fetcher, submitter, nil, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	wantPerTick := []int{2, 4, 5, 5}
	for tick, want := range wantPerTick {
		p.processBatch()
		if got := len(submitter.submissions()); got != want {
			t.Errorf("after tick %d: submissions = %d, want %d", tick+1, got, want)
		}
	}

	subs := submitter.submissions()
	for i, want := range []uint64{1, 2, 3, 4, 5} {
		if subs[i].RequestID != want {
			t.Errorf("submission %d = request %d, want %d", i, subs[i].RequestID, want)
		}
	}
}

// Shutdown mid-batch: the in-flight batch finishes (item 2 is still
// submitted) but no further batch is dequeued.
func TestProcessor_ShutdownFinishesBatch(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 1, 2, 3)

	fetcher := &fakeFetcher{outcome: successOutcome(1)}
	submitter := &fakeSubmitter{}

	p := NewProcessor(ProcessorConfig{BatchSize: 2, TickInterval: 20 * time.Millisecond}, q, fetcher, submitter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Cancel as soon as the first item of the batch has been submitted.
	submitter.mu.Lock()
	submitter.onSubmit = func(call submittedCall) {
		if call.RequestID == 1 {
			cancel()
		}
	}
	submitter.mu.Unlock()

	// Wait for the batch to finish and the processor to observe shutdown.
	deadline := time.After(5 * time.Second)
	for len(submitter.submissions()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out with %d submissions, want 2", len(submitter.submissions()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	subs := submitter.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want exactly 2 (batch finished, no new dequeue)", len(subs))
	}
	if subs[0].RequestID != 1 || subs[1].RequestID != 2 {
		t.Errorf("submissions = %v, want requests [1 2]", subs)
	}
	if q.Len() != 1 {
		t.Errorf("queue length = %d, want 1 (request 3 left queued)", q.Len())
	}
}

// Every enqueued request gets exactly one submission across ticks.
func TestProcessor_ExactlyOncePerRequest(t *testing.T) {
	q := queue.New[model.Request](16)

	fetcher := &fakeFetcher{outcome: successOutcome(1)}
	submitter := &fakeSubmitter{}

	p := NewProcessor(ProcessorConfig{BatchSize: 3, TickInterval: 5 * time.Millisecond}, q, fetcher, submitter, nil, nil)

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const total = 20
	for i := uint64(1); i <= total; i++ {
		q.Enqueue(model.Request{Requester: "0xaaa", RequestID: i, Seq: i})
	}

	deadline := time.After(5 * time.Second)
	for len(submitter.submissions()) < total {
		select {
		case <-deadline:
			t.Fatalf("timed out with %d submissions, want %d", len(submitter.submissions()), total)
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	p.Stop(stopCtx)

	subs := submitter.submissions()
	if len(subs) != total {
		t.Fatalf("submissions = %d, want %d", len(subs), total)
	}
	seen := make(map[uint64]int)
	for _, sub := range subs {
		seen[sub.RequestID]++
	}
	for i := uint64(1); i <= total; i++ {
		if seen[i] != 1 {
			t.Errorf("request %d submitted %d times, want exactly once", i, seen[i])
		}
	}
}

// A submission failure drops the request with a trace but does not stop
// the rest of the batch.
func TestProcessor_SubmitErrorContinuesBatch(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 1, 2, 3)

	fetcher := &fakeFetcher{outcome: successOutcome(1)}
	submitter := &fakeSubmitter{
		failFor: map[uint64]error{2: errors.New("nonce conflict")},
	}

	p := NewProcessor(ProcessorConfig{BatchSize: 10, TickInterval: time.Hour}, q, fetcher, submitter, nil, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.processBatch()

	subs := submitter.submissions()
	if len(subs) != 2 {
		t.Fatalf("submissions = %d, want 2 (request 2 dropped)", len(subs))
	}
	if subs[0].RequestID != 1 || subs[1].RequestID != 3 {
		t.Errorf("submissions = %v, want requests [1 3]", subs)
	}

	stats := p.Stats()
	if stats.SubmitErrors != 1 {
		t.Errorf("SubmitErrors = %d, want 1", stats.SubmitErrors)
	}
	if stats.Processed != 2 {
		t.Errorf("Processed = %d, want 2", stats.Processed)
	}
}

// The archive hook receives one record per submission with the sentinel
// flag set correctly.
func TestProcessor_SubmissionHandler(t *testing.T) {
	q := queue.New[model.Request](16)
	enqueueRequests(q, 1, 2)

	fetcher := &fakeFetcher{outcome: func(req model.Request) model.FetchOutcome {
		if req.RequestID == 2 {
			return model.FetchOutcome{Err: errors.New("source down"), Attempts: 3}
		}
		return model.FetchOutcome{Value: big.NewInt(500), Attempts: 1}
	}}
	submitter := &fakeSubmitter{}

	var mu sync.Mutex
	var records []model.Submission
	handler := SubmissionHandlerFunc(func(s model.Submission) error {
		mu.Lock()
		records = append(records, s)
		mu.Unlock()
		return nil
	})

	p := NewProcessor(ProcessorConfig{BatchSize: 10, TickInterval: time.Hour}, q, fetcher, submitter, handler, nil)
	p.ctx, p.cancel = context.WithCancel(context.Background())
	defer p.cancel()

	p.processBatch()

	mu.Lock()
	defer mu.Unlock()
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Sentinel || records[0].Value.Int64() != 500 {
		t.Errorf("record 0 = %+v, want value 500, not sentinel", records[0])
	}
	if !records[1].Sentinel || records[1].Value.Sign() != 0 {
		t.Errorf("record 1 = %+v, want zero sentinel", records[1])
	}
	if records[1].Attempts != 3 {
		t.Errorf("record 1 attempts = %d, want 3", records[1].Attempts)
	}
	if records[0].TraceID == records[1].TraceID {
		t.Error("trace IDs not unique across submissions")
	}
}
