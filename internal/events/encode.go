package events

import "time"

// EncodeStart is emitted before a resource graph is encoded.
type EncodeStart struct {
	ID  string
	URI string
}

// EncodeFinish is emitted once per encode, on success or failure.
type EncodeFinish struct {
	ID        string
	URI       string
	Resources int
	Err       error
	Duration  time.Duration
}

// MembersFetchStart is emitted when the encoder suspends on a member fetch.
type MembersFetchStart struct {
	ID  string
	URI string
}

// MembersFetchFinish is emitted when a member fetch resolves.
type MembersFetchFinish struct {
	ID       string
	URI      string
	Count    int
	Err      error
	Duration time.Duration
}
