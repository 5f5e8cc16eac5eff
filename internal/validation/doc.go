// Package validation interprets row upload results.
//
// The server reports, per row, a tree of record outcomes shaped like the
// upload plan. The Interpreter turns that tree into issues and "will
// create" marks per physical column, and collects the records that matched
// more than once. Those go to the Registry, which keeps the user's choices
// per row and path until the row is edited. CellState is the per-cell
// state machine driven by edits and results; Diff turns a state change
// into grid updates.
package validation
