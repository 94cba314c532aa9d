package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hanpama/resgraph/internal/encoder"
	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	reqid "github.com/hanpama/resgraph/internal/reqid"
	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/store"
	"github.com/hanpama/resgraph/internal/wire/protowire"
)

const testYAML = `
id: people
properties:
  title: People
members:
  - id: bob
    properties:
      name: Bob McWhirter
      dog: {$ref: /people/moses}
  - id: moses
    properties:
      name: Moses
      bad: {a: 1}
`

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	root, err := store.LoadYAML(strings.NewReader(testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	h, err := New(root, encoder.New(), opts...)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h
}

func get(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetJSON(t *testing.T) {
	h := newTestHandler(t)
	w := get(h, "/people/bob")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	want := `{"id":"bob","properties":{"name":"Bob McWhirter","dog":{"href":"/people/moses"}},"members":[]}`
	if got := w.Body.String(); got != want {
		t.Fatalf("body mismatch\nwant %s\ngot  %s", want, got)
	}
}

func TestFieldsSelection(t *testing.T) {
	h := newTestHandler(t)
	w := get(h, "/people?fields="+url.QueryEscape(`title, members(limit: 1) { name }`))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	want := `{"id":"people","properties":{"title":"People"},"members":[{"id":"bob","properties":{"name":"Bob McWhirter"},"members":[]}]}`
	if got := w.Body.String(); got != want {
		t.Fatalf("body mismatch\nwant %s\ngot  %s", want, got)
	}
}

func TestInvalidFields(t *testing.T) {
	h := newTestHandler(t)
	w := get(h, "/people?fields="+url.QueryEscape(`members(first: 1)`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body: %v", err)
	}
	if body.Error.Status != http.StatusBadRequest || body.Error.Detail == "" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(t)
	for _, target := range []string{"/", "/other", "/people/carol", "/people/bob/x"} {
		if w := get(h, target); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404 got %d", target, w.Code)
		}
	}
}

func TestUnsupportedValueIs500(t *testing.T) {
	h := newTestHandler(t)
	w := get(h, "/people/moses")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `\"bad\"`) {
		t.Fatalf("error should name the property: %s", w.Body.String())
	}
}

func TestNegotiation(t *testing.T) {
	h := newTestHandler(t)

	w := get(h, "/people/bob", "Accept", "application/x-protobuf")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != protowire.ContentType {
		t.Fatalf("status %d type %q", w.Code, w.Header().Get("Content-Type"))
	}
	doc, err := protowire.Decode(w.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.ID != "bob" {
		t.Fatalf("decoded id %q", doc.ID)
	}

	w = get(h, "/people/bob?format=cbor", "Accept", "application/json")
	if w.Header().Get("Content-Type") != "application/cbor" {
		t.Fatalf("format parameter should win, got %q", w.Header().Get("Content-Type"))
	}

	if w := get(h, "/people/bob", "Accept", "text/html"); w.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406 got %d", w.Code)
	}
	if w := get(h, "/people/bob?format=xml"); w.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406 got %d", w.Code)
	}
}

func TestHeadAndMethods(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodHead, "/people/bob", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.Len() != 0 || w.Header().Get("Content-Length") == "0" {
		t.Fatalf("HEAD: status %d body %d length %q", w.Code, w.Body.Len(), w.Header().Get("Content-Length"))
	}

	req = httptest.NewRequest(http.MethodPost, "/people/bob", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", w.Code)
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	w := get(h, "/people", "Origin", "http://example.com")
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/people", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestBackendFailure(t *testing.T) {
	boom := errors.New("backend down")
	root := store.NewCollection("people", nil, store.WithError(boom))
	h, err := New(root, nil)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if w := get(h, "/people"); w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 got %d", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	root := store.NewCollection("people", nil, store.WithLatency(time.Hour))
	h, err := New(root, nil, WithTimeout(10*time.Millisecond))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if w := get(h, "/people"); w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var finished []events.HTTPFinish
	var ids []reqid.ID
	defer eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		id, _ := reqid.FromContext(ctx)
		ids = append(ids, id)
		finished = append(finished, e)
	})()

	h := newTestHandler(t)
	w := get(h, "/people/bob")
	got, ok := reqid.Parse(w.Header().Get(reqid.Header))
	if !ok || len(ids) != 1 || ids[0] != got {
		t.Fatalf("request id header %q, context ids %v", w.Header().Get(reqid.Header), ids)
	}
	if finished[0].Status != http.StatusOK || finished[0].Bytes != w.Body.Len() || finished[0].ContentType != "application/json" {
		t.Fatalf("unexpected finish event %+v", finished[0])
	}

	w = get(h, "/people/bob", reqid.Header, "00000000000000ff")
	if w.Header().Get(reqid.Header) != "00000000000000ff" || ids[1] != reqid.ID(0xff) {
		t.Fatalf("incoming request id not kept: %q %v", w.Header().Get(reqid.Header), ids)
	}
}

func TestNewRejectsNilRoot(t *testing.T) {
	var root resource.Resource
	if _, err := New(root, nil); err == nil {
		t.Fatalf("expected error")
	}
}
