// Package composer merges engagement, gating and observation state into the
// single configuration the interface renders.
//
// Composition is a pure function of its inputs:
//
//   - Maturity selects a base layout (vignette limit, guidance intensity,
//     emphasized and hidden actions)
//   - The persona adds preferred actions and flavors next-step wording
//   - Feature availability hides actions whose feature is still locked
//   - The configured guidance level can override intensity; none silences it
//
// Nothing here mutates state or logs above debug level.
package composer
