// Package handover decides when a conversation should move from automated
// nurturing to a human and performs that move.
//
// Evaluation checks every configured criterion and never short-circuits, so
// the full set of triggered criteria reaches the dossier. Evaluation fails
// open: an internal error yields a non-handover result instead of an error.
package handover
