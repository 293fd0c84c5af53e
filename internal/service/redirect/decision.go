package redirect

// Kind identifies the variant of a Decision.
type Kind string

const (
	KindNoAction       Kind = "no_action"
	KindRewriteInPlace Kind = "rewrite_in_place"
	KindNavigate       Kind = "navigate"
	KindRestoreStaged  Kind = "restore_staged"
)

// Decision is what the caller must do with the current page.
// Only the field matching Kind is meaningful.
type Decision struct {
	Kind Kind `json:"kind"`
	// NewFragment is set for RewriteInPlace.
	NewFragment string `json:"new_fragment,omitempty"`
	// TargetURL is set for Navigate.
	TargetURL string `json:"target_url,omitempty"`
	// Fragment is set for RestoreStaged.
	Fragment string `json:"fragment,omitempty"`
}

// NoAction leaves the page alone.
func NoAction() Decision { return Decision{Kind: KindNoAction} }

// RewriteInPlace replaces the fragment without navigating.
func RewriteInPlace(fragment string) Decision {
	return Decision{Kind: KindRewriteInPlace, NewFragment: fragment}
}

// Navigate replaces the current history entry with targetURL.
func Navigate(targetURL string) Decision {
	return Decision{Kind: KindNavigate, TargetURL: targetURL}
}

// RestoreStaged applies a previously staged fragment without navigating.
func RestoreStaged(fragment string) Decision {
	return Decision{Kind: KindRestoreStaged, Fragment: fragment}
}

// MountsUI reports whether the application may mount after applying d.
// A navigation abandons the current page.
func (d Decision) MountsUI() bool {
	return d.Kind != KindNavigate
}

// State is the corrector state a page load ends in.
type State string

const (
	StateIdle              State = "idle"
	StateCorrectionPending State = "correction_pending"
	StateRecovered         State = "recovered"
	StatePassThrough       State = "pass_through"
)

// RecoveryState is the cross-navigation handoff record for one tab.
type RecoveryState struct {
	StagedFragment string
	HasStaged      bool
	InFlight       bool
}

// Staged returns a record holding fragment and the in-flight flag.
func Staged(fragment string) RecoveryState {
	return RecoveryState{StagedFragment: fragment, HasStaged: true, InFlight: true}
}

// IsZero reports whether the record holds nothing.
func (s RecoveryState) IsZero() bool {
	return !s.HasStaged && !s.InFlight
}
