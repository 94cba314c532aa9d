package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"

	"github.com/hanpama/resgraph/internal/encoder"
	"github.com/hanpama/resgraph/internal/eventbus"
	"github.com/hanpama/resgraph/internal/eventlog"
	"github.com/hanpama/resgraph/internal/fieldsel"
	"github.com/hanpama/resgraph/internal/otel"
	"github.com/hanpama/resgraph/internal/remote"
	"github.com/hanpama/resgraph/internal/resource"
	"github.com/hanpama/resgraph/internal/server"
	"github.com/hanpama/resgraph/internal/store"
	"github.com/hanpama/resgraph/internal/wire"
)

const rootUsage = `resgraph: resource graph encoder

USAGE:
  resgraph <command> [flags]

COMMANDS:
  encode           Encode a resource from a YAML data file or a remote store
  serve            Serve a resource tree over HTTP and, optionally, gRPC
  help             Show help for any command
`

const encodeUsage = `encode FLAGS:
  -data <file>                 YAML resource tree (- for stdin)
  -remote <host:port>          Remote store endpoint, instead of -data
  -remote.rpc-timeout <dur>    Remote call timeout (default: 3s)
  -path <addr>                 Address of the resource to encode (default: the root;
                               required with -remote)
  -fields <selection>          Field selection, e.g. "name, members(limit: 10) { name }"
  -format <name>               Output format: json, cbor or proto (default: json)
  -pretty                      Indent JSON output
  -max-depth N                 Maximum inlining depth, 0 for unbounded (default: 0)
  -fetch-timeout <duration>    Per member fetch timeout, e.g. 2s (default: none)
  -out <file>                  Write output to file (default: stdout)
`

const serveUsage = `serve FLAGS:
  -data <file>                 YAML resource tree
  -remote <host:port>          Remote store endpoint, instead of -data. Repeatable
  -remote.root <addr>          Top-level address of the remote root (required with -remote)
  -remote.rpc-timeout <dur>    Remote call timeout (default: 3s)
  -server.addr <addr>          HTTP listen address (default: :8080)
  -grpc.addr <addr>            Also serve the tree as a Store service on this address
  -server.pretty               Pretty-print JSON responses
  -server.timeout <duration>   Per-request timeout, e.g. 10s (default: 10s)
  -server.cors <origin>        Allowed CORS origin. Repeatable; * allows any
  -encode.max-depth N          Maximum inlining depth, 0 for unbounded (default: 0)
  -encode.fetch-timeout <dur>  Per member fetch timeout (default: none)
  -log.level <level>           Event log level: debug, info, warn, error (default: info)
  -otel.endpoint <addr>        OTLP collector endpoint
  -otel.service <name>         OpenTelemetry service name (default: resgraph)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("resgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "encode":
		return cmdEncode(cmdArgs)
	case "serve":
		return cmdServe(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "encode":
		fmt.Print(encodeUsage)
	case "serve":
		fmt.Print(serveUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func loadData(path string) (store.Node, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	root, err := store.LoadYAML(r)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return root, nil
}

// source names where the resource tree comes from.
type source struct {
	dataFile   string
	remotes    stringListFlag
	rpcTimeout time.Duration
}

func (src *source) register(fs *flag.FlagSet) {
	fs.StringVar(&src.dataFile, "data", "", "YAML resource tree")
	fs.Var(&src.remotes, "remote", "Remote store endpoint")
	fs.DurationVar(&src.rpcTimeout, "remote.rpc-timeout", 3*time.Second, "Remote call timeout")
}

func (src *source) validate() error {
	switch {
	case src.dataFile == "" && len(src.remotes) == 0:
		return fmt.Errorf("-data or -remote is required")
	case src.dataFile != "" && len(src.remotes) > 0:
		return fmt.Errorf("-data and -remote are exclusive")
	}
	return nil
}

// open returns the resource at addr, or the tree's root when addr is empty.
// Remote sources need an address. The returned func releases the source.
func (src *source) open(ctx context.Context, addr string) (resource.Resource, func(), error) {
	if len(src.remotes) > 0 {
		if addr == "" {
			return nil, nil, fmt.Errorf("an address is required with -remote")
		}
		opts := []remote.Option{remote.WithEndpoints(src.remotes...)}
		if src.rpcTimeout > 0 {
			opts = append(opts, remote.WithRPCTimeout(src.rpcTimeout))
		}
		client := remote.New(opts...)
		res, err := client.Open(ctx, addr)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return res, func() { _ = client.Close() }, nil
	}
	root, err := loadData(src.dataFile)
	if err != nil {
		return nil, nil, err
	}
	if addr == "" {
		return root, func() {}, nil
	}
	res, err := store.Resolve(ctx, root, addr)
	if err != nil {
		return nil, nil, err
	}
	return res, func() {}, nil
}

func newEncoder(maxDepth int, fetchTimeout time.Duration) *encoder.Encoder {
	return encoder.New(
		encoder.WithRuntime(encoder.NewStoreRuntime(fetchTimeout)),
		encoder.WithMaxDepth(maxDepth),
	)
}

func cmdEncode(args []string) error {
	var src source
	path := ""
	fields := ""
	formatName := wire.Default().Name
	pretty := false
	maxDepth := 0
	fetchTimeout := time.Duration(0)
	outFile := ""

	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	src.register(fs)
	fs.StringVar(&path, "path", path, "Address of the resource to encode")
	fs.StringVar(&fields, "fields", fields, "Field selection")
	fs.StringVar(&formatName, "format", formatName, "Output format")
	fs.BoolVar(&pretty, "pretty", pretty, "Indent JSON output")
	fs.IntVar(&maxDepth, "max-depth", maxDepth, "Maximum inlining depth")
	fs.DurationVar(&fetchTimeout, "fetch-timeout", fetchTimeout, "Per member fetch timeout")
	fs.StringVar(&outFile, "out", outFile, "Write output to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, encodeUsage)
		return err
	}
	if err := src.validate(); err != nil {
		fmt.Fprint(os.Stderr, encodeUsage)
		return err
	}
	format, ok := wire.Lookup(formatName)
	if !ok {
		return fmt.Errorf("unknown format %q", formatName)
	}
	sel, err := fieldsel.Parse(fields)
	if err != nil {
		return fmt.Errorf("parse fields: %w", err)
	}

	ctx := context.Background()
	target, release, err := src.open(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	enc := newEncoder(maxDepth, fetchTimeout)
	body, err := encoder.Run(ctx, enc, target, sel, format.New(wire.Options{Pretty: pretty}))
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if outFile == "" {
		_, err = os.Stdout.Write(body)
		return err
	}
	return os.WriteFile(outFile, body, 0644)
}

func cmdServe(args []string) error {
	var src source
	remoteRoot := ""
	addr := ":8080"
	grpcAddr := ""
	pretty := false
	timeout := 10 * time.Second
	maxDepth := 0
	fetchTimeout := time.Duration(0)
	logLevel := "info"
	otelEndpoint := ""
	otelService := "resgraph"
	var origins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	src.register(fs)
	fs.StringVar(&remoteRoot, "remote.root", remoteRoot, "Top-level address of the remote root")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.StringVar(&grpcAddr, "grpc.addr", grpcAddr, "Store service listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&origins, "server.cors", "Allowed CORS origin")
	fs.IntVar(&maxDepth, "encode.max-depth", maxDepth, "Maximum inlining depth")
	fs.DurationVar(&fetchTimeout, "encode.fetch-timeout", fetchTimeout, "Per member fetch timeout")
	fs.StringVar(&logLevel, "log.level", logLevel, "Event log level")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if err := src.validate(); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("-log.level: %w", err)
	}

	root, release, err := src.open(context.Background(), remoteRoot)
	if err != nil {
		return err
	}
	defer release()

	eventbus.Use(eventbus.New())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	defer eventlog.Attach(logger)()
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var sopts []server.Option
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if len(origins) > 0 {
		sopts = append(sopts, server.WithCORS(origins...))
	}
	h, err := server.New(root, newEncoder(maxDepth, fetchTimeout), sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	errc := make(chan error, 2)
	if grpcAddr != "" {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		g := grpc.NewServer()
		remote.NewService(root).Register(g)
		defer g.GracefulStop()
		logger.Info("resgraph store service listening", slog.String("addr", grpcAddr))
		go func() { errc <- g.Serve(lis) }()
	}

	logger.Info("resgraph server listening", slog.String("addr", addr), slog.String("root", "/"+root.ID()))
	go func() { errc <- http.ListenAndServe(addr, h) }()
	return <-errc
}
