// Package schema provides the immutable, per-session view of the relational
// schema consumed by the mapping engine: tables, fields, relationships and
// the ranks of hierarchical (tree) tables.
//
// Graphs are built with NewGraph, which normalizes what servers hand out:
//   - relationship kind aliases ("zero-to-one") are folded into the four known kinds
//   - relationships pointing at tables absent from the graph are dropped
//   - required fields are never hidden
//   - missing labels are derived from camelCase names
//   - fields are ordered non-relationships first, each group by label
//
// A YAML form of the same data (Parse, LoadFile) is used for fixtures and by
// the command line tool. Provider caches a fetched graph for a session and
// invalidates it by an opaque schema version token.
package schema
