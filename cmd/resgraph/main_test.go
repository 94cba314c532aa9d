package main

import (
	"bytes"
	"io"
	"os"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/hanpama/resgraph/internal/remote"
	"github.com/hanpama/resgraph/internal/store"
	"github.com/hanpama/resgraph/internal/wire/cborwire"
)

const testData = `
id: people
properties:
  title: People
members:
  - id: bob
    properties:
      name: Bob
      dog: {$ref: /people/moses}
  - id: moses
    properties:
      name: Moses
`

func captureOutput(t *testing.T, fn func() error) (stdout, stderr string, err error) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()

	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	os.Stdout, os.Stderr = outW, errW

	doneOut := make(chan struct{})
	var bufOut bytes.Buffer
	go func() { io.Copy(&bufOut, outR); close(doneOut) }()

	doneErr := make(chan struct{})
	var bufErr bytes.Buffer
	go func() { io.Copy(&bufErr, errR); close(doneErr) }()

	err = fn()
	outW.Close()
	errW.Close()
	<-doneOut
	<-doneErr
	stdout, stderr = bufOut.String(), bufErr.String()
	return
}

func writeData(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testData), 0644))
	return path
}

func TestHelp(t *testing.T) {
	out, _, err := captureOutput(t, func() error {
		return run([]string{"help", "encode"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "encode FLAGS")

	out, _, err = captureOutput(t, func() error {
		return run([]string{"help"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "COMMANDS")

	_, _, err = captureOutput(t, func() error {
		return run([]string{"help", "compile"})
	})
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := captureOutput(t, func() error {
		return run([]string{"frobnicate"})
	})
	require.EqualError(t, err, `unknown command "frobnicate"`)
	require.Contains(t, stderr, "USAGE")

	_, _, err = captureOutput(t, func() error { return run(nil) })
	require.EqualError(t, err, "missing command")
}

func TestEncodeJSON(t *testing.T) {
	data := writeData(t)
	out, _, err := captureOutput(t, func() error {
		return run([]string{"encode", "-data", data, "-path", "/people/bob"})
	})
	require.NoError(t, err)
	require.Equal(t, `{"id":"bob","properties":{"name":"Bob","dog":{"href":"/people/moses"}},"members":[]}`, out)
}

func TestEncodeFieldsAndDepth(t *testing.T) {
	data := writeData(t)
	out, _, err := captureOutput(t, func() error {
		return run([]string{"encode", "-data", data, "-fields", "members(offset: 1) { name }"})
	})
	require.NoError(t, err)
	require.Equal(t, `{"id":"people","properties":{},"members":[{"id":"moses","properties":{"name":"Moses"},"members":[]}]}`, out)

	_, _, err = captureOutput(t, func() error {
		return run([]string{"encode", "-data", data, "-max-depth", "1"})
	})
	require.ErrorContains(t, err, "depth")
}

func TestEncodeCBORToFile(t *testing.T) {
	data := writeData(t)
	outFile := filepath.Join(t.TempDir(), "bob.cbor")
	err := run([]string{"encode", "-data", data, "-path", "/people/bob", "-format", "cbor", "-out", outFile})
	require.NoError(t, err)

	raw, err := os.ReadFile(outFile)
	require.NoError(t, err)
	doc, err := cborwire.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "bob", doc["id"])
}

func TestEncodeErrors(t *testing.T) {
	data := writeData(t)
	cases := map[string][]string{
		"missing data":   {"encode"},
		"two sources":    {"encode", "-data", data, "-remote", "localhost:1"},
		"remote no path": {"encode", "-remote", "localhost:1"},
		"unknown format": {"encode", "-data", data, "-format", "xml"},
		"bad fields":     {"encode", "-data", data, "-fields", "members("},
		"missing file":   {"encode", "-data", filepath.Join(t.TempDir(), "nope.yaml")},
		"unknown path":   {"encode", "-data", data, "-path", "/people/carol"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := captureOutput(t, func() error { return run(args) })
			require.Error(t, err)
		})
	}
}

func TestServeRequiresData(t *testing.T) {
	_, stderr, err := captureOutput(t, func() error {
		return run([]string{"serve"})
	})
	require.EqualError(t, err, "-data or -remote is required")
	require.Contains(t, stderr, "serve FLAGS")

	data := writeData(t)
	_, _, err = captureOutput(t, func() error {
		return run([]string{"serve", "-data", data, "-log.level", "loud"})
	})
	require.ErrorContains(t, err, "-log.level")
}

func TestEncodeRemote(t *testing.T) {
	root, err := store.LoadYAML(strings.NewReader(testData))
	require.NoError(t, err)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	g := grpc.NewServer()
	remote.NewService(root).Register(g)
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	out, _, err := captureOutput(t, func() error {
		return run([]string{"encode", "-remote", lis.Addr().String(), "-path", "/people", "-fields", "members { dog }"})
	})
	require.NoError(t, err)
	require.Equal(t, `{"id":"people","properties":{},"members":[{"id":"bob","properties":{"dog":{"href":"/people/moses"}},"members":[]},{"id":"moses","properties":{},"members":[]}]}`, out)
}
