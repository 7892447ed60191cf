// Package progress provides the user-visible progress scopes that wrap
// slow external calls (inventory listings, cloud queries). Scopes are
// purely observational: they start before the blocking call and end after
// it, and are not a concurrency primitive.
package progress

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// Reporter reports a progress scope around a blocking call.
type Reporter interface {
	// Start begins a scope with the given label and returns the function
	// that ends it. The returned function is safe to call exactly once.
	Start(label string) (stop func())
}

// Spinner reports progress with a terminal spinner on stderr.
type Spinner struct{}

// NewSpinner creates a spinner-backed reporter.
func NewSpinner() *Spinner {
	return &Spinner{}
}

// Start implements Reporter.
func (s *Spinner) Start(label string) func() {
	sp := spinner.New(
		spinner.CharSets[14],
		100*time.Millisecond,
		spinner.WithWriter(os.Stderr),
		spinner.WithSuffix(" "+label),
	)
	sp.Start()
	return sp.Stop
}

// Silent discards progress scopes. It is the default for library use and
// for tests.
type Silent struct{}

// Start implements Reporter.
func (Silent) Start(string) func() {
	return func() {}
}
