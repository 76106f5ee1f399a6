// FilePath: internal/ingest/guard.go
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	nuts "github.com/vaudience/go-nuts"
)

// RejectReason says why the guard refused a payload.
type RejectReason string

const (
	RejectDuplicate RejectReason = "duplicate"
	RejectThrottled RejectReason = "throttled"
)

// Guard sits in front of the ingestion pipeline and drops duplicate and
// over-frequent telemetry before it touches storage. Retained publishes and
// device-side retry loops make duplicates routine on MQTT, so this is load
// shedding, not error handling.
type Guard struct {
	dedupeTTL      time.Duration
	throttleWindow time.Duration

	seen      cmap.ConcurrentMap[string, time.Time]
	deviceDue cmap.ConcurrentMap[string, time.Time]
}

func NewGuard(dedupeTTL, throttleWindow time.Duration) *Guard {
	return &Guard{
		dedupeTTL:      dedupeTTL,
		throttleWindow: throttleWindow,
		seen:           cmap.New[time.Time](),
		deviceDue:      cmap.New[time.Time](),
	}
}

// Signature fingerprints a payload within its topic so the same bytes on
// different topics do not collide.
func Signature(topic string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(topic))
	h.Write([]byte("::"))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// ShouldAccept runs the dedupe and throttle checks in order and, on accept,
// records the signature and arms the device's throttle window. The returned
// signature is stamped onto the stored reading either way.
func (g *Guard) ShouldAccept(topic, deviceID string, payload []byte, now time.Time) (bool, RejectReason, string) {
	sig := Signature(topic, payload)

	if expiry, ok := g.seen.Get(sig); ok && now.Before(expiry) {
		return false, RejectDuplicate, sig
	}
	if due, ok := g.deviceDue.Get(deviceID); ok && now.Before(due) {
		return false, RejectThrottled, sig
	}

	g.seen.Set(sig, now.Add(g.dedupeTTL))
	g.deviceDue.Set(deviceID, now.Add(g.throttleWindow))
	return true, "", sig
}

// Sweep drops expired entries. Both maps are otherwise append-heavy, so the
// ingest loop runs this periodically via Run.
func (g *Guard) Sweep(now time.Time) int {
	removed := 0
	for entry := range g.seen.IterBuffered() {
		if now.After(entry.Val) {
			g.seen.Remove(entry.Key)
			removed++
		}
	}
	for entry := range g.deviceDue.IterBuffered() {
		if now.After(entry.Val) {
			g.deviceDue.Remove(entry.Key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired guard entries until the context ends.
func (g *Guard) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := g.Sweep(now); removed > 0 {
				nuts.L.Debugf("[IngestGuard] Swept %d expired entries", removed)
			}
		}
	}
}
