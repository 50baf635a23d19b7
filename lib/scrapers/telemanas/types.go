package telemanas

import (
	"strings"
	"time"
)

// Snapshot is a point-in-time reading of the four public dashboard
// counters. The upstream reports everything as numeric strings and
// never distinguishes a genuine zero from a missing value, so "0"
// doubles as the sentinel for "unavailable".
type Snapshot struct {
	TotalCalls                  string `json:"totalCalls"`
	TeleManasCells              string `json:"teleManasCells"`
	MentoringInstitutes         string `json:"mentoringInstitutes"`
	RegionalCoordinatingCenters string `json:"regionalCoordinatingCenters"`
}

func ZeroSnapshot() Snapshot {
	return Snapshot{
		TotalCalls:                  "0",
		TeleManasCells:              "0",
		MentoringInstitutes:         "0",
		RegionalCoordinatingCenters: "0",
	}
}

func isZero(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "0"
}

// reports whether at least one counter resolved to something other
// than the zero sentinel
func (s Snapshot) HasData() bool {
	return !isZero(s.TotalCalls) ||
		!isZero(s.TeleManasCells) ||
		!isZero(s.MentoringInstitutes) ||
		!isZero(s.RegionalCoordinatingCenters)
}

// TMCData holds the three organizational counters served by the
// getTMCcount endpoint.
type TMCData struct {
	TeleManasCells              string
	MentoringInstitutes         string
	RegionalCoordinatingCenters string
}

type ScrapeResult struct {
	Success bool     `json:"success"`
	Data    Snapshot `json:"data"`
	// name of the strategy that produced Data, present only on success
	Method    string    `json:"method,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
