// Package engagement tracks how a user engages with the product and
// classifies their maturity.
//
// The tracker owns the engagement counters and the derived MaturityState:
//
//   - Daily bookkeeping: daysUsed and sessionsCount advance at most once per
//     calendar day, before any other mutation of a tracked action.
//   - Maturity is a strict waterfall (autonomous -> learning -> discovery) with
//     all-or-nothing tiers, recomputed synchronously after every action.
//   - Recomputation is a pure read of settled counters and never tracks
//     further actions.
//
// The tracker is not safe for concurrent use; the session serializes access.
package engagement
