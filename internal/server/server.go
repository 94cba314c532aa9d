package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hanpama/resgraph/internal/encoder"
	eventbus "github.com/hanpama/resgraph/internal/eventbus"
	events "github.com/hanpama/resgraph/internal/events"
	"github.com/hanpama/resgraph/internal/fieldsel"
	reqid "github.com/hanpama/resgraph/internal/reqid"
	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/store"
	"github.com/hanpama/resgraph/internal/wire"
)

// Handler is an http.Handler that serves encoded resources.
//
// GET /<root>/<member>/...?fields=<selection>&format=<name> encodes the
// addressed resource. The path is the resource's address, so every href in
// a response can be fetched from the same handler. The format comes from
// the format parameter or, failing that, the Accept header.
type Handler struct {
	root resource.Resource
	enc  *encoder.Encoder
	opt  Options
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty indents JSON responses (useful for dev).
	Pretty bool

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

// New creates a handler serving the tree below root with enc.
func New(root resource.Resource, enc *encoder.Encoder, opts ...Option) (*Handler, error) {
	if resource.IsNil(root) {
		return nil, errors.New("server: nil root resource")
	}
	if enc == nil {
		enc = encoder.New()
	}
	op := Options{Timeout: 10 * time.Second}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{root: root, enc: enc, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	rid, ok := reqid.Parse(r.Header.Get(reqid.Header))
	if ok {
		ctx = reqid.WithID(ctx, rid)
	} else {
		ctx, rid = reqid.NewContext(ctx)
	}
	w.Header().Set(reqid.Header, rid.String())

	status := http.StatusOK
	var contentType string
	var size int
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:     r,
			Status:      status,
			ContentType: contentType,
			Bytes:       size,
			Duration:    time.Since(start),
		})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
	}
	if r.Method == http.MethodOptions {
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		status = h.fail(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	q := r.URL.Query()
	format, ok := h.format(q.Get("format"), r.Header.Get("Accept"))
	if !ok {
		status = h.fail(w, http.StatusNotAcceptable, "no acceptable format; available: "+strings.Join(wire.Names(), ", "), nil)
		return
	}
	sel, err := fieldsel.Parse(q.Get("fields"))
	if err != nil {
		status = h.fail(w, http.StatusBadRequest, "invalid fields", err)
		return
	}
	target, err := store.Resolve(ctx, h.root, r.URL.EscapedPath())
	if err != nil {
		code := encodeStatus(err)
		if errors.Is(err, store.ErrNotFound) {
			code = http.StatusNotFound
		} else if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		status = h.fail(w, code, "resolve "+r.URL.Path, err)
		return
	}

	body, err := encoder.Run(ctx, h.enc, target, sel, format.New(wire.Options{Pretty: h.opt.Pretty}))
	if err != nil {
		status = h.fail(w, encodeStatus(err), "encode "+r.URL.Path, err)
		return
	}

	contentType, size = format.ContentType, len(body)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(size))
	w.Header().Add("Vary", "Accept")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

func (h *Handler) format(name, accept string) (wire.Format, bool) {
	if name != "" {
		return wire.Lookup(name)
	}
	return wire.Negotiate(accept)
}

// encodeStatus maps an encode failure onto a response status.
func encodeStatus(err error) int {
	var merr *encoder.MemberResolutionError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &merr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string, err error) int {
	d := errorDetail{Status: status, Message: msg}
	if err != nil {
		d.Detail = err.Error()
	}
	writeJSON(w, status, errorBody{Error: d}, h.opt.Pretty)
	return status
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func setCORSHeaders(w http.ResponseWriter, r *http.Request, opts CORSOptions) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}
	allowed := false
	for _, o := range opts.AllowedOrigins {
		if o == "*" || o == origin {
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	if contains(opts.AllowedOrigins, "*") {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Expose-Headers", reqid.Header)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
