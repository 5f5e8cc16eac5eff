// Package schematest provides a small collection-management schema shared by
// the tests of the mapping engine.
package schematest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"workbench-mapper/internal/schema"
)

// Version is the schema version token of the fixture.
const Version = "fixture-1"

// YAML is a reduced collection-management schema with to-many groups,
// self-referencing agents and two tree tables.
const YAML = `
version: fixture-1
tables:
  - name: collectionobject
    label: Collection Object
    common: true
    fields:
      - name: catalogNumber
        required: true
      - name: remarks
      - name: text1
        label: Text 1
      - name: guid
        label: GUID
        hidden: true
      - name: cataloger
        table: agent
        type: many-to-one
      - name: accession
        table: accession
        type: many-to-one
        foreign: collectionObjects
      - name: collectingEvent
        table: collectingevent
        type: many-to-one
        foreign: collectionObjects
      - name: determinations
        table: determination
        type: one-to-many
        foreign: collectionObject
      - name: preparations
        table: preparation
        type: one-to-many
        foreign: collectionObject
  - name: agent
    common: true
    fields:
      - name: firstName
      - name: lastName
        required: true
      - name: title
      - name: agentType
        required: true
        picklist:
          readOnly: true
          items: [Organization, Person, Other, Group]
      - name: organization
        table: agent
        type: many-to-one
        foreign: members
      - name: members
        table: agent
        type: one-to-many
        foreign: organization
  - name: accession
    common: true
    fields:
      - name: accessionNumber
        required: true
      - name: remarks
      - name: accessionAgents
        table: accessionagent
        type: one-to-many
        foreign: accession
      - name: collectionObjects
        table: collectionobject
        type: one-to-many
        foreign: accession
  - name: accessionagent
    label: Accession Agent
    base: false
    fields:
      - name: role
        required: true
      - name: remarks
      - name: agent
        table: agent
        type: many-to-one
        required: true
      - name: accession
        table: accession
        type: many-to-one
        foreign: accessionAgents
  - name: determination
    fields:
      - name: isCurrent
        label: Current
      - name: determinedDate
      - name: taxon
        table: taxon
        type: many-to-one
      - name: determiner
        table: agent
        type: many-to-one
      - name: collectionObject
        table: collectionobject
        type: many-to-one
        foreign: determinations
  - name: taxon
    common: true
    fields:
      - name: name
        required: true
      - name: author
      - name: parent
        table: taxon
        type: many-to-one
  - name: collectingevent
    label: Collecting Event
    fields:
      - name: stationFieldNumber
        label: Field Number
      - name: startDate
      - name: locality
        table: locality
        type: many-to-one
      - name: collectors
        table: collector
        type: one-to-many
        foreign: collectingEvent
      - name: collectionObjects
        table: collectionobject
        type: one-to-many
        foreign: collectingEvent
  - name: collector
    base: false
    fields:
      - name: isPrimary
        label: Primary
      - name: agent
        table: agent
        type: many-to-one
        required: true
      - name: collectingEvent
        table: collectingevent
        type: many-to-one
        foreign: collectors
  - name: locality
    fields:
      - name: localityName
        required: true
      - name: latitude1
        label: Latitude
      - name: longitude1
        label: Longitude
      - name: geography
        table: geography
        type: many-to-one
  - name: geography
    fields:
      - name: name
        required: true
  - name: preparation
    fields:
      - name: countAmt
        label: Count
      - name: prepType
        table: preptype
        type: many-to-one
        required: true
      - name: collectionObject
        table: collectionobject
        type: many-to-one
        foreign: preparations
  - name: preptype
    label: Prep Type
    base: false
    fields:
      - name: name
        required: true
  - name: spauditlog
    base: false
    fields:
      - name: action
      - name: user
        table: specifyuser
        type: zero-to-one
ranks:
  taxon:
    - name: Kingdom
      required: true
    - name: Family
    - name: Genus
    - name: Species
  geography:
    - name: Continent
    - name: Country
    - name: State
`

// Graph builds the fixture graph.
func Graph(t testing.TB) *schema.Graph {
	t.Helper()

	g, err := schema.Parse([]byte(YAML))
	require.NoError(t, err)

	return g
}
