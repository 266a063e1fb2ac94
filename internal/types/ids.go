// internal/types/ids.go
package types

import (
	"fmt"
	"time"
)

// SessionID is the opaque, client-chosen identifier for a conversation.
type SessionID string

// RequestID identifies a single inbound streaming request for log correlation.
type RequestID string

// FallbackRequestID builds a timestamp-based identifier for clients that did
// not send an X-Request-ID header.
func FallbackRequestID() RequestID {
	return RequestID(fmt.Sprintf("req_%d", time.Now().UnixMilli()))
}
