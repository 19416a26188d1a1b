package tui

import (
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// ResultsChanged carries a fresh render of the session's store.
type ResultsChanged struct {
	View ui.ResultView
}

// BusyChanged reports the form's busy state. Err is the outcome of the most
// recent completed search.
type BusyChanged struct {
	Busy bool
	Err  error
}
