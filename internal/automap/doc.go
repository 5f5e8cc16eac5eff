// Package automap proposes mapping paths for spreadsheet headers.
//
// For a base table the schema is walked once into a list of mappable
// fields, each with the labels of the relationships and tree ranks that
// lead to it. Every header is then matched in three stages, the first
// stage that yields a path wins:
//
//  1. label: the header equals a field label, optionally qualified by
//     labels of the relationships on the way ("Cataloger Last Name");
//  2. synonym: the header equals a known alternative name of the field;
//  3. fuzzy: the normalized Levenshtein similarity of header and label is
//     at least Config.FuzzyThreshold.
//
// A number in a header selects the instance of a to-many relationship, so
// "Collector 2 Last Name" maps to collectingEvent.collectors.#2.agent.lastName.
//
// Results are deterministic for a given schema, base table and header list.
package automap
