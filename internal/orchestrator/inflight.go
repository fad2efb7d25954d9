package orchestrator

import "context"

// flight is one in-progress computation that concurrent identical
// requests can join. It settles exactly once, then every joiner
// observes the same response.
type flight struct {
	done chan struct{}
	resp Response
	err  error
}

// joinOrStart returns the existing flight for key, or registers a new
// one. started is true when the caller owns the computation and must
// call settle.
func (o *Orchestrator) joinOrStart(key string) (f *flight, started bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.inflight[key]; ok {
		return f, false
	}
	f = &flight{done: make(chan struct{})}
	o.inflight[key] = f
	return f, true
}

// settle publishes the outcome and removes the flight from the
// registry. The registry entry is removed regardless of success or
// failure so a failed fingerprint can be retried by a later request.
func (o *Orchestrator) settle(key string, f *flight, resp Response, err error) {
	f.resp = resp
	f.err = err
	o.mu.Lock()
	delete(o.inflight, key)
	o.mu.Unlock()
	close(f.done)
}

// wait blocks until the flight settles or ctx is cancelled.
func (f *flight) wait(ctx context.Context) (Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
