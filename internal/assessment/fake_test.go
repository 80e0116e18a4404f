package assessment

import (
	"context"
	"fmt"
	"net/url"
	"sync"
)

type statusErr struct {
	code   int
	detail string
}

func (e *statusErr) Error() string { return fmt.Sprintf("status %d: %s", e.code, e.detail) }
func (e *statusErr) StatusCode() int { return e.code }
func (e *statusErr) Detail() string { return e.detail }

type reply struct {
	payload Payload
	err     error
}

type recordedCall struct {
	method string
	path   string
	query  url.Values
	body   any
}

// fakeTransport answers by "METHOD path". Queued replies are consumed in order and the
// last one repeats. Unknown routes fail with a 500.
type fakeTransport struct {
	mu     sync.Mutex
	routes map[string][]reply
	calls  []recordedCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: map[string][]reply{}}
}

func (f *fakeTransport) on(method, path string, p Payload) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.routes[key] = append(f.routes[key], reply{payload: p})
	return f
}

func (f *fakeTransport) fail(method, path string, code int, detail string) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.routes[key] = append(f.routes[key], reply{err: &statusErr{code: code, detail: detail}})
	return f
}

func (f *fakeTransport) Do(ctx context.Context, method, path string, query url.Values, body any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{method: method, path: path, query: query, body: body})

	key := method + " " + path
	queue := f.routes[key]
	if len(queue) == 0 {
		return nil, &statusErr{code: 500, detail: "no route for " + key}
	}
	r := queue[0]
	if len(queue) > 1 {
		f.routes[key] = queue[1:]
	}
	return r.payload, r.err
}

func (f *fakeTransport) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			n++
		}
	}
	return n
}

func (f *fakeTransport) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
