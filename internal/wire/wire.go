// Package wire maps format names and media types to wire sinks.
package wire

import (
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/resgraph/internal/encoder"
	"github.com/hanpama/resgraph/internal/wire/cborwire"
	"github.com/hanpama/resgraph/internal/wire/jsonwire"
	"github.com/hanpama/resgraph/internal/wire/protowire"
)

// Options tune sink construction. Formats ignore options they do not use.
type Options struct {
	// Pretty indents text formats.
	Pretty bool
}

// Format is one registered wire format.
type Format struct {
	Name        string
	ContentType string
	New         func(Options) encoder.Finalizer[[]byte]
}

// formats is in preference order; the first is the default.
var formats = []Format{
	{
		Name:        "json",
		ContentType: jsonwire.ContentType,
		New: func(o Options) encoder.Finalizer[[]byte] {
			if o.Pretty {
				return jsonwire.NewSink(jsonwire.WithIndent())
			}
			return jsonwire.NewSink()
		},
	},
	{
		Name:        "cbor",
		ContentType: cborwire.ContentType,
		New:         func(Options) encoder.Finalizer[[]byte] { return cborwire.NewSink() },
	},
	{
		Name:        "proto",
		ContentType: protowire.ContentType,
		New:         func(Options) encoder.Finalizer[[]byte] { return protowire.NewSink() },
	},
}

// Default returns the default format.
func Default() Format { return formats[0] }

// Names lists the registered format names.
func Names() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = f.Name
	}
	return out
}

// Lookup finds a format by name or media type.
func Lookup(name string) (Format, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range formats {
		if f.Name == name || f.ContentType == name {
			return f, true
		}
	}
	return Format{}, false
}

type accepted struct {
	mediaType string
	q         float64
}

// Negotiate picks a format for an Accept header value. An empty header
// selects the default. It reports false when nothing acceptable is
// registered.
func Negotiate(accept string) (Format, bool) {
	if strings.TrimSpace(accept) == "" {
		return Default(), true
	}
	var ranges []accepted
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if s, ok := params["q"]; ok {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				q = v
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, accepted{mediaType: mt, q: q})
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })
	for _, r := range ranges {
		switch r.mediaType {
		case "*/*", "application/*":
			return Default(), true
		}
		if f, ok := Lookup(r.mediaType); ok {
			return f, true
		}
	}
	return Format{}, false
}
