// Package analytics turns statement summaries into the views the UI
// renders: per-statement category breakdowns, chronological trends,
// top-category rankings and pairwise comparisons.
//
// Every function is pure. Inputs are never mutated; callers pass a
// snapshot and get freshly allocated results back.
package analytics
