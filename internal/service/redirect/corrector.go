package redirect

import "strings"

// Options configures a Corrector.
type Options struct {
	// DevHost is the development host searched for in callback fragments.
	// Defaults to DefaultDevHost.
	DevHost string
}

// Result is the outcome of one evaluation.
type Result struct {
	Decision Decision
	// Next is the recovery record the caller must persist.
	Next  RecoveryState
	State State
	// Err is the provider error stripped from the fragment, if any.
	Err *ErrorInfo
	// Payload is the parsed live fragment.
	Payload FragmentPayload
	// Reason is a short machine-readable tag for logs and metrics.
	Reason string
}

// Corrector decides how a page load recovers from a misrouted callback.
// It is safe for concurrent use.
type Corrector struct {
	devHost string
}

// NewCorrector creates a Corrector.
func NewCorrector(opts Options) *Corrector {
	devHost := opts.DevHost
	if devHost == "" {
		devHost = DefaultDevHost
	}
	return &Corrector{devHost: devHost}
}

// DevHost returns the development host the corrector searches for.
func (c *Corrector) DevHost() string {
	return c.devHost
}

// Evaluate runs the recovery state machine once for a page load.
func (c *Corrector) Evaluate(page PageContext, state RecoveryState) Result {
	fragment := strings.TrimPrefix(page.Fragment, "#")
	payload := ParseFragment(fragment, c.devHost)

	if !page.NavigationAvailable {
		return Result{
			Decision: NoAction(),
			Next:     state,
			State:    StatePassThrough,
			Payload:  payload,
			Reason:   "navigation_unavailable",
		}
	}

	// The load is the result of our own navigation. Never navigate again.
	if state.InFlight {
		next := state
		next.InFlight = false
		return Result{
			Decision: NoAction(),
			Next:     next,
			State:    StateRecovered,
			Payload:  payload,
			Reason:   "in_flight_observed",
		}
	}

	if payload.HasErrorCode {
		return Result{
			Decision: RewriteInPlace(""),
			Next:     state,
			State:    StatePassThrough,
			Err:      payload.Error,
			Payload:  payload,
			Reason:   "provider_error",
		}
	}

	if payload.HasAuthPayload && payload.EmbeddedDevHost && page.Environment() == Deployed {
		corrected := ReplaceDevHost(fragment, c.devHost, page.Host)
		return Result{
			Decision: Navigate(page.URLWithFragment(corrected)),
			Next:     Staged(corrected),
			State:    StateCorrectionPending,
			Payload:  payload,
			Reason:   "dev_host_callback",
		}
	}

	if state.HasStaged && !payload.HasAuthPayload {
		return Result{
			Decision: RestoreStaged(state.StagedFragment),
			Next:     RecoveryState{},
			State:    StateRecovered,
			Payload:  payload,
			Reason:   "staged_restored",
		}
	}

	return Result{
		Decision: NoAction(),
		Next:     state,
		State:    StatePassThrough,
		Payload:  payload,
		Reason:   "no_correction",
	}
}
