// Package redirect detects misrouted OAuth callbacks and decides how a page
// load recovers from them.
//
// The package is pure: it reads a PageContext and a RecoveryState and returns
// a Result. Navigation, storage writes and logging belong to the caller.
package redirect

import "strings"

// Environment classifies the execution context a page is loaded in.
type Environment int

const (
	// Deployed is any host that is not a local development host.
	Deployed Environment = iota
	// Development is a page served from localhost or 127.0.0.1.
	Development
)

// String returns the environment name used in logs and metrics.
func (e Environment) String() string {
	if e == Development {
		return "development"
	}
	return "deployed"
}

// Classify returns Development iff hostname is exactly "localhost" or
// "127.0.0.1" (case-insensitive). Ports are not stripped.
func Classify(hostname string) Environment {
	switch strings.ToLower(hostname) {
	case "localhost", "127.0.0.1":
		return Development
	default:
		return Deployed
	}
}
