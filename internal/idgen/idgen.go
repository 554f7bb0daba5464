// Package idgen generates opaque, lexicographically sortable identifiers
// with a type-tag prefix and an embedded millisecond timestamp plus a
// monotonic counter, per spec §6's identifier format.
package idgen

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Prefixes for each identifier kind named in spec §6.
const (
	PrefixSession    = "ses_"
	PrefixMessage    = "msg_"
	PrefixPart       = "prt_"
	PrefixPermission = "per_"
	PrefixQueue      = "que_"
)

var counter uint32

var clock = time.Now

var mu sync.Mutex

// New formats `<prefix><13-digit ms timestamp><6-digit counter>`. The
// counter disambiguates ids minted within the same millisecond; it wraps
// at 1e6 and falls back to appending a uuid fragment on wrap to preserve
// uniqueness under extreme throughput.
func New(prefix string) string {
	mu.Lock()
	ts := clock().UnixMilli()
	n := atomic.AddUint32(&counter, 1) % 1_000_000
	mu.Unlock()

	id := fmt.Sprintf("%s%013d%06d", prefix, ts, n)
	if n == 0 {
		// Counter wrapped: extremely unlikely collision risk, append a
		// short uuid suffix for collision avoidance.
		id += "_" + uuid.NewString()[:8]
	}
	return id
}

// Session, Message, Part, Permission, and Queue mint ids of their
// respective kind.
func Session() string    { return New(PrefixSession) }
func Message() string    { return New(PrefixMessage) }
func Part() string       { return New(PrefixPart) }
func Permission() string { return New(PrefixPermission) }
func Queue() string      { return New(PrefixQueue) }
