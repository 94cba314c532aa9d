package events

import (
	"time"

	"google.golang.org/grpc/codes"
)

// GRPCClientStart is emitted before a remote store call. URI is the
// address of the requested resource.
type GRPCClientStart struct {
	Method string
	Target string
	URI    string
}

// GRPCClientFinish is emitted after a remote store call completes.
type GRPCClientFinish struct {
	Method   string
	Target   string
	URI      string
	Code     codes.Code
	Err      error
	Duration time.Duration
}
