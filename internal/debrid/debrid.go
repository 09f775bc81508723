// Package debrid defines the uniform contract spec.md §4.5 asks for over
// roughly ten heterogeneous cloud-torrent backends, plus the resolution
// state machine that governs when a provider may emit a direct URL.
// Concrete providers live in subpackages (internal/debrid/realdebrid,
// .../alldebrid, ...); this package only holds the interface, the shared
// types, and the state machine every provider's Resolve path is checked
// against.
package debrid

import (
	"context"
	"time"
)

// AuthStrategy names how a provider authenticates, kept as a separate type
// from Provider per design note #4: Check/Submit/Resolve never branch on
// auth flow, only the provider's construction does.
type AuthStrategy string

const (
	AuthDeviceCode    AuthStrategy = "device_code" // RealDebrid, DebridLink, Premiumize
	AuthToken         AuthStrategy = "token"        // AllDebrid, TorBox, Offcloud, EasyDebrid
	AuthUserPassword  AuthStrategy = "user_password" // PikPak, Seedr
	AuthWebDAV        AuthStrategy = "webdav"         // local/self-hosted qBittorrent-style
	AuthNone          AuthStrategy = "none"           // P2P pass-through
)

// ActiveTorrent is one entry of Provider.ListActive, for UI listing.
type ActiveTorrent struct {
	InfoHash string
	Status   string
	Progress float64 // 0..100
}

// Provider is the uniform contract every debrid backend implements.
// Batch-check is explicitly separate from single-item resolve because
// provider APIs price/rate-limit them very differently.
type Provider interface {
	Name() string
	AuthStrategy() AuthStrategy

	// Check reports, per info-hash, whether the provider already has it
	// cached in its cloud. Callers normally go through
	// internal/debrid/availability.Cache rather than calling this
	// directly, since it is the expensive path on a cache miss.
	Check(ctx context.Context, infoHashes []string) (map[string]bool, error)

	// Submit adds a torrent to the provider's cloud, idempotent on hash,
	// and returns a provider job id.
	Submit(ctx context.Context, infoHash, magnet string) (jobID string, err error)

	// Resolve returns a direct playable URL for infoHash, optionally
	// narrowed to a specific file by fileHint (a filename substring or
	// provider file id, depending on the provider). Callers should go
	// through internal/debrid/singleflight rather than call this directly
	// for user-facing requests.
	Resolve(ctx context.Context, infoHash, fileHint string) (directURL string, err error)

	ListActive(ctx context.Context) ([]ActiveTorrent, error)
}

// State is one node of the per-(provider,hash) resolution state machine
// from spec.md §4.5. Only Ready and Resolved may emit a direct URL.
type State string

const (
	StateInit        State = "init"
	StateSubmitting  State = "submitting"
	StateQueued      State = "queued"
	StateDownloading State = "downloading"
	StateReady       State = "ready"
	StateResolved    State = "resolved"
	StateError       State = "error"
)

// CanEmitURL reports whether s is one of the two states allowed to return
// a direct URL to a caller.
func (s State) CanEmitURL() bool {
	return s == StateReady || s == StateResolved
}

// Transition is one edge of the state machine table. RetryAfter is only
// meaningful when To == StateError.
type Transition struct {
	From       State
	To         State
	RetryAfter time.Duration
}

// transitions enumerates every edge spec.md §4.5 allows. A transition not
// in this table is rejected by Advance.
var transitions = []Transition{
	{From: StateInit, To: StateSubmitting},
	{From: StateSubmitting, To: StateQueued},
	{From: StateSubmitting, To: StateError, RetryAfter: time.Minute},
	{From: StateQueued, To: StateDownloading},
	{From: StateQueued, To: StateError, RetryAfter: time.Minute},
	{From: StateDownloading, To: StateReady},
	{From: StateDownloading, To: StateError, RetryAfter: time.Minute},
	{From: StateReady, To: StateResolved},
	{From: StateError, To: StateInit}, // retryable after RetryAfter elapses
}

// Advance reports whether the edge from -> to is legal, and if so the
// backoff duration to attach when to == StateError.
func Advance(from, to State) (ok bool, retryAfter time.Duration) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true, t.RetryAfter
		}
	}
	return false, 0
}

// ResolutionRecord tracks the state machine for one (provider, hash) pair.
type ResolutionRecord struct {
	Provider   string
	InfoHash   string
	State      State
	ErrorKind  string
	RetryAfter time.Time
	UpdatedAt  time.Time
}

// ErrorAssetPath maps a provider error kind to the static fallback asset
// path spec.md §7/S4 describes (`{host}/static/exceptions/{kind}.mp4`).
func ErrorAssetPath(kind string) string {
	if kind == "" {
		kind = "unknown"
	}
	return "/static/exceptions/" + kind + ".mp4"
}
