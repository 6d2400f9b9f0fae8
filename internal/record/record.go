// Package record encodes key-value payloads as tagged, versioned JSON
// envelopes so a stale or foreign blob is rejected instead of half-decoded.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for any blob that is not a valid envelope of the
// expected kind and version.
var ErrMalformed = errors.New("malformed record")

// Kind tags the record type stored under a key.
type Kind string

const (
	KindRefresh      Kind = "refresh_token"
	KindLoginAttempt Kind = "login_attempts"
	KindIPActivity   Kind = "ip_rate_limit"
	KindIPBlock      Kind = "ip_block"
	KindSuspicious   Kind = "suspicious_activity"
	KindIPFailures   Kind = "login_failures_ip"
	KindResetToken   Kind = "reset_token"
	KindResetAttempt Kind = "reset_rate_limit"
)

// Version is the only schema version written today.
const Version = 1

type envelope struct {
	Kind    Kind            `json:"kind"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps v in an envelope tagged with kind.
func Encode(kind Kind, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", kind, err)
	}
	return json.Marshal(envelope{Kind: kind, Version: Version, Data: data})
}

// Decode unwraps blob into v, checking kind and version. Unknown fields in
// the payload are rejected.
func Decode(blob []byte, kind Kind, v any) error {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrMalformed, env.Kind, kind)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrMalformed, env.Version)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
