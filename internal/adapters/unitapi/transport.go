package unitapi

import (
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// loggingTransport logs every backend request once its body is closed:
// method, path, status, bytes read and end-to-end duration.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func newLoggingTransport(next http.RoundTripper, log *zap.Logger) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{next: next, log: log}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		t.log.Warn("backend request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.RequestURI()),
			zap.String("req_id", req.Header.Get("X-Request-ID")),
			zap.Int64("dur_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		return nil, err
	}

	resp.Body = &countingBody{
		ReadCloser: resp.Body,
		onClose: func(n int) {
			t.log.Info("backend request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.RequestURI()),
				zap.String("req_id", req.Header.Get("X-Request-ID")),
				zap.Int("status", resp.StatusCode),
				zap.Int("bytes", n),
				zap.Int64("dur_ms", time.Since(start).Milliseconds()),
			)
		},
	}
	return resp, nil
}

// countingBody records how many bytes the caller consumed.
type countingBody struct {
	io.ReadCloser
	bytes   int
	once    sync.Once
	onClose func(n int)
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.bytes += n
	return n, err
}

func (b *countingBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() { b.onClose(b.bytes) })
	return err
}
