// Package mapping provides the mapping path algebra and the mappings tree
// that bind spreadsheet columns to a nested relational schema.
//
// # Paths
//
// A path is a sequence of steps starting at a base table:
//
//	accession.accessionAgents.#2.agent.firstName
//	determinations.#1.taxon.$Species.name
//
// Named steps are relationships, except the last one which is a field.
// "#N" selects the N-th record of a to-many relationship and "$Rank"
// selects a rank of a tree table. The join symbol "." and the escape
// symbol "\" are escaped with "\" inside names.
//
// A path contains at most one to-many reference: to-many relationships
// cannot nest.
//
// # Trees
//
// A Tree stores mapped paths as nested ordered maps whose leaves tell
// where each value comes from:
//
//	catalogNumber      -> existingHeader("Cat #")
//	cataloger
//	  lastName         -> existingHeader("Cataloger Last Name")
//	collectingEvent
//	  collectors
//	    #1
//	      agent
//	        lastName   -> existingHeader("Collector 1")
//
// ArrayToTree and TreeToArray convert between trees and flat entry lists;
// Merge combines trees without overwriting leaves.
package mapping
