// Package observation infers the cycle phase from self-reported observations.
//
// The engine keeps a short rolling analysis window and a long-lived pattern
// store per phase. Inference scores keyword matches against static per-phase
// vocabularies and fuses the winner with the calendar prediction: the
// observed phase wins only when its share of the total score clears the
// confidence threshold. The engine also detects autonomy signals (prediction
// corrections, detailed observations, recurring patterns) and reports them to
// the caller; it never mutates engagement state itself.
package observation
