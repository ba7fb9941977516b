package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWrap_CountsRequestsAndBytesOut(t *testing.T) {
	reg := NewRegistry()
	svc := reg.Service("admin")

	h := Wrap(svc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PANOPTES"))
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := svc.Snapshot()
	if got.Requests != 3 {
		t.Fatalf("requests = %d, want 3", got.Requests)
	}
	if got.BytesOut != int64(3*len("PANOPTES")) {
		t.Fatalf("bytesOut = %d, want %d", got.BytesOut, 3*len("PANOPTES"))
	}
}

type blockingReader struct {
	first             []byte
	second            []byte
	secondReadStarted chan struct{}
	continueCh        chan struct{}
	calls             int
}

func (r *blockingReader) Read(p []byte) (int, error) {
	r.calls++
	switch r.calls {
	case 1:
		return copy(p, r.first), nil
	case 2:
		close(r.secondReadStarted)
		<-r.continueCh
		return copy(p, r.second), io.EOF
	default:
		return 0, io.EOF
	}
}

func TestWrap_BytesOutUpdatesDuringStreaming(t *testing.T) {
	svc := NewRegistry().Service("admin")

	r := &blockingReader{
		first:             []byte("abc"),
		second:            []byte("defg"),
		secondReadStarted: make(chan struct{}),
		continueCh:        make(chan struct{}),
	}

	h := Wrap(svc, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.Copy(w, r)
	}))

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		close(done)
	}()

	select {
	case <-r.secondReadStarted:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for streaming to reach second read")
	}

	if got := svc.Snapshot().BytesOut; got != int64(len(r.first)) {
		t.Fatalf("bytesOut mid-stream = %d, want %d", got, len(r.first))
	}

	close(r.continueCh)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for handler to finish")
	}

	if got, want := svc.Snapshot().BytesOut, int64(len(r.first)+len(r.second)); got != want {
		t.Fatalf("bytesOut final = %d, want %d", got, want)
	}
}

func TestWrap_BytesIn(t *testing.T) {
	svc := NewRegistry().Service("admin")

	h := Wrap(svc, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 2)
		_, _ = io.ReadFull(r.Body, buf)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader("hello")))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got := svc.Snapshot().BytesIn; got != 2 {
		t.Fatalf("bytesIn = %d, want 2", got)
	}
}

func TestRegistry_ServiceIsShared(t *testing.T) {
	reg := NewRegistry()
	if reg.Service("admin") != reg.Service(" admin ") {
		t.Fatalf("Service must return the same instance for the same key")
	}
	if reg.Service("") != nil {
		t.Fatalf("empty key must return nil")
	}
}

func TestCollector(t *testing.T) {
	reg := NewRegistry()
	reg.Service("admin")
	reg.Service("static")

	if n := testutil.CollectAndCount(reg.Collector()); n != 6 {
		t.Fatalf("collected %d metrics, want 6", n)
	}

	svc := reg.Service("admin")
	Wrap(svc, http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := `
# HELP panoptes_web_requests_total HTTP requests served, by service.
# TYPE panoptes_web_requests_total counter
panoptes_web_requests_total{service="admin"} 1
panoptes_web_requests_total{service="static"} 0
`
	if err := testutil.CollectAndCompare(reg.Collector(), strings.NewReader(want), "panoptes_web_requests_total"); err != nil {
		t.Fatal(err)
	}
}
