// Package diagnostic provides structured errors, warnings and infos
// produced while checking upload plans against a schema and while
// auto-mapping headers.
//
// Key capabilities:
//   - Unknown table / field / rank reports with fuzzy suggestions
//   - Missing required field warnings
//   - Explanations of auto-mapper decisions
package diagnostic
