package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/car-rental/internal/metrics"
)

// echoCar отвечает телом запроса с тем же типом содержимого.
func echoCar(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(append([]byte("car: "), body...))
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(res.Body)
		if err != nil {
			t.Fatalf("new gzip reader: %v", err)
		}
		defer zr.Close()
		r = zr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestGzipMiddleware(t *testing.T) {
	const car = `{"name":"Chevrolet Malibu","price":450000}`

	tests := []struct {
		name           string
		acceptGzip     bool
		compressedBody bool
		contentType    string
		wantEncoding   string
	}{
		{name: "json compressed", acceptGzip: true, contentType: "application/json", wantEncoding: "gzip"},
		{name: "html compressed", acceptGzip: true, contentType: "text/html", wantEncoding: "gzip"},
		{name: "client without gzip", acceptGzip: false, contentType: "application/json"},
		{name: "image stays raw", acceptGzip: true, contentType: "image/png"},
		{name: "gzip request body", acceptGzip: true, compressedBody: true, contentType: "application/json", wantEncoding: "gzip"},
		{name: "gzip request body, plain response", compressedBody: true, contentType: "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(car)
			if tt.compressedBody {
				body = gzipBytes(t, car)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/cars", body)
			req.Header.Set("Content-Type", tt.contentType)
			if tt.acceptGzip {
				req.Header.Set("Accept-Encoding", "gzip, deflate")
			}
			if tt.compressedBody {
				req.Header.Set("Content-Encoding", "gzip")
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoCar)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != http.StatusOK {
				t.Fatalf("status: got %d want %d", res.StatusCode, http.StatusOK)
			}
			if ct := res.Header.Get("Content-Type"); ct != tt.contentType {
				t.Fatalf("content-type: got %q want %q", ct, tt.contentType)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.wantEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.wantEncoding)
			}
			if got := readBody(t, res); got != "car: "+car {
				t.Fatalf("body: got %q", got)
			}
		})
	}
}

func TestGzipMiddleware_BadRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()

	GzipMiddleware(http.HandlerFunc(echoCar)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}

func TestLogger_RecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/cars", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries: got %d want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("status field: got %v", fields["status"])
	}
	if fields["size"] != int64(3) {
		t.Fatalf("size field: got %v", fields["size"])
	}
}

func TestInstrument_CountsRequests(t *testing.T) {
	m := metrics.Registry("carrental_middleware_test")
	h := Instrument(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	before := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	after := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "404"))

	if after-before != 1 {
		t.Fatalf("counter delta: got %v want 1", after-before)
	}
}
