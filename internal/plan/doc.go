// Package plan encodes mappings trees into upload plans and decodes them
// back.
//
// An upload plan is the only durable artifact of a mapping session: it is
// stored with the dataset and every in-memory structure is rebuilt from it.
//
//	{
//	  "baseTableName": "collectionobject",
//	  "relationships": [
//	    {"mappingPath": ["catalogNumber"], "mappingType": "existing", "columnInfo": "Cat #"},
//	    {"mappingPath": ["accession"], "mappingType": "mustMatch"},
//	    {"mappingPath": ["collectingEvent", "collectors"], "toMany": [
//	      [{"mappingPath": ["agent", "lastName"], "mappingType": "existing", "columnInfo": "Collector 1"}]
//	    ]}
//	  ]
//	}
//
// Group i of a to-many entry holds the mappings of reference #i+1, with
// paths relative to the group. Plans in the older server format
// ("uploadable" with uploadTable, treeRecord and must-match variants) are
// decoded as well but never produced.
package plan
