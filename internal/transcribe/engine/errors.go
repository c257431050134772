package engine

import "fmt"

// TransportError reports a network or HTTP failure reaching a provider.
// It is never retried here; it propagates to the caller.
type TransportError struct {
	Backend string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejection reports that the provider explicitly refused or failed the
// job. Validation distinguishes an input rejected by the remote validator
// from a transcription that failed server-side.
type RemoteRejection struct {
	Backend    string
	Reason     string
	Validation bool
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("%s: %s", e.Backend, e.Reason)
}

// PollTimeoutError reports a client-side give-up after the poll try budget
// was exhausted without the remote job reaching a terminal state. It is
// distinct from RemoteRejection: the remote never reported failure.
type PollTimeoutError struct {
	Backend string
	Tries   int
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out waiting for remote completion after %d polls", e.Backend, e.Tries)
}

// StreamingError reports a streaming session cancelled with an error by the
// provider. Session resources are released before this is returned.
type StreamingError struct {
	Backend string
	Err     error
}

func (e *StreamingError) Error() string {
	return fmt.Sprintf("%s: session cancelled: %v", e.Backend, e.Err)
}

func (e *StreamingError) Unwrap() error { return e.Err }
