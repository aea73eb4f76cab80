package metrics

import (
	"io"
	"strings"
	"time"

	"github.com/uber-go/tally/v4"
)

// NewRootScope creates the process root scope. Reporting goes nowhere unless a
// reporter is given; tests use tally.NewTestScope instead.
func NewRootScope(prefix string, reporter tally.StatsReporter, flushInterval time.Duration) (tally.Scope, io.Closer) {
	if reporter == nil {
		reporter = tally.NullStatsReporter
	}
	// tally rejects "-" in scope names
	prefix = strings.ReplaceAll(prefix, "-", "_")

	return tally.NewRootScope(tally.ScopeOptions{
		Prefix:   prefix,
		Reporter: reporter,
	}, flushInterval)
}
