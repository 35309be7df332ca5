package server

import (
	"net/http"
	"time"
)

// nowUTC is swapped out by tests that pin the clock.
var nowUTC = func() time.Time { return time.Now().UTC() }

// checkDateGate enforces the namespace month gate: resources dated before
// the current UTC month are sealed and cannot be created or mutated. The
// agent sentinel date 9999/12 always passes.
func checkDateGate(w http.ResponseWriter, year, month int) bool {
	now := nowUTC()
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		writeError(w, http.StatusForbidden,
			"Cannot update namespaces dated earlier than the current month")
		return false
	}
	return true
}

// importableDate reports whether a source namespace dated (year, month) may
// be imported from: only sealed months qualify, strictly earlier than the
// current UTC month.
func importableDate(year, month int) bool {
	now := nowUTC()
	return year < now.Year() || (year == now.Year() && month < int(now.Month()))
}
