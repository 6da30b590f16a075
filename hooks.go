package tagcache

// Eviction reasons passed to Hooks.Evicted.
const (
	ReasonExpired    = "expired"
	ReasonCallback   = "callback"
	ReasonDependency = "dependency"
	ReasonCycle      = "cycle"
	ReasonDepth      = "depth"
	ReasonCorrupt    = "corrupt"
	ReasonDecode     = "decode"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The store calls them on hot paths.
type Hooks interface {
	// An entry failed verification (or could not be decoded) and was evicted.
	// reason is one of the Reason* constants.
	Evicted(storageKey, reason string)

	// Renewing the TTL of a sliding entry failed; the read still succeeds.
	SlidingRefreshFailed(storageKey string, err error)

	// A write reached the backing store and failed; the entry was removed.
	WriteFailed(storageKey string, err error)

	// Dropping the journal records of an entry failed.
	JournalCleanFailed(storageKey string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Evicted(string, string)              {}
func (NopHooks) SlidingRefreshFailed(string, error) {}
func (NopHooks) WriteFailed(string, error)          {}
func (NopHooks) JournalCleanFailed(string, error)   {}
