package fallback

// Source names the tier that produced a Result.
type Source string

const (
	SourcePrimaryStore   Source = "primary_store"
	SourceRefreshedStore Source = "refreshed_store"
	SourceSecondaryAPI   Source = "secondary_api"
	SourceStaticFallback Source = "static_fallback"
	SourceLegacyAPI      Source = "legacy_api"
)

// Result is the outcome of one Fetch. Data is empty and Error explains why
// when no tier had anything.
type Result[T any] struct {
	Data   []T    `json:"data"`
	Source Source `json:"source"`
	Error  string `json:"error,omitempty"`
}

// Len returns the number of records, so the cache can size its TTL on it.
func (r Result[T]) Len() int {
	return len(r.Data)
}

// ErrorMessage returns the error payload, if any.
func (r Result[T]) ErrorMessage() string {
	return r.Error
}

// State is a step of the fallback waterfall.
type State int

const (
	StateNotStarted State = iota
	StateStoreChecked
	StateRefreshInProgress
	StateRefreshSkipped
	StateStoreRechecked
	StateSecondaryChecked
	StateStaticChecked
	StateLegacyCalled
	StateDone
)

var stateNames = [...]string{
	StateNotStarted:        "not_started",
	StateStoreChecked:      "store_checked",
	StateRefreshInProgress: "refresh_in_progress",
	StateRefreshSkipped:    "refresh_skipped",
	StateStoreRechecked:    "store_rechecked",
	StateSecondaryChecked:  "secondary_checked",
	StateStaticChecked:     "static_checked",
	StateLegacyCalled:      "legacy_called",
	StateDone:              "done",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
