package model

import "time"

// NotificationKind names a state change the engine reports to its UI.
type NotificationKind string

// Notification kinds.
const (
	PairPresented      NotificationKind = "pair_presented"
	ComparisonResolved NotificationKind = "comparison_resolved"
	RankingUpdated     NotificationKind = "ranking_updated"
	SessionReset       NotificationKind = "session_reset"
)

// Notification is published by the session after every transition a
// renderer cares about. Only the fields relevant to Kind are set.
type Notification struct {
	Kind         NotificationKind `json:"kind"`
	At           time.Time        `json:"at"`
	Presentation *Presentation    `json:"presentation,omitempty"`
	Judgment     *Judgment        `json:"judgment,omitempty"`
	Ranking      []Standing       `json:"ranking,omitempty"`
	Progress     *Progress        `json:"progress,omitempty"`
}
