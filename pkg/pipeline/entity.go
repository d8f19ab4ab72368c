// pkg/pipeline/entity.go
package pipeline

import (
	"fmt"
	"sort"

	"github.com/skydata/staging-ingress/pkg/cleaner"
)

// LoadStrategy selects how an entity's clean rows reach the staging table.
type LoadStrategy int

const (
	// LoadUpsert writes row by row, idempotent by the conflict columns.
	LoadUpsert LoadStrategy = iota
	// LoadChunkedInsert dedups by key and appends in batches, then verifies
	// the resulting row count.
	LoadChunkedInsert
	// LoadFullRefresh clears the table before upserting every row.
	LoadFullRefresh
)

// EntitySpec binds one entity name to its rule set, staging table and load
// behavior.
type EntitySpec struct {
	Name            string
	StagingTable    string
	ConflictColumns []string
	Load            LoadStrategy

	// DedupeColumn is the keep-first key applied before a chunked insert.
	DedupeColumn string

	// Reference key sets the cleaner needs fetched before it runs.
	NeedsAirportKeys bool
	NeedsAirlineKeys bool

	// CleanExportBOM marks entities whose cleaned CSV export carries a
	// byte-order mark (quarantine exports always do).
	CleanExportBOM bool

	Rules func() *cleaner.RuleSet
}

var entities = map[string]*EntitySpec{
	"airports": {
		Name:         "airports",
		StagingTable: "staging_airports",
		Load:         LoadChunkedInsert,
		DedupeColumn: "airportkey",
		Rules:        cleaner.Airports,
	},
	"airlines": {
		Name:            "airlines",
		StagingTable:    "staging_airlines",
		ConflictColumns: []string{"airlinekey"},
		Load:            LoadFullRefresh,
		Rules:           cleaner.Airlines,
	},
	"flights": {
		Name:             "flights",
		StagingTable:     "staging_flights",
		ConflictColumns:  []string{"flightkey"},
		Load:             LoadUpsert,
		NeedsAirportKeys: true,
		NeedsAirlineKeys: true,
		Rules:            cleaner.Flights,
	},
	"passengers": {
		Name:            "passengers",
		StagingTable:    "staging_passengers",
		ConflictColumns: []string{"passengerkey"},
		Load:            LoadUpsert,
		CleanExportBOM:  true,
		Rules:           cleaner.Passengers,
	},
	"facttravel": {
		Name:            "facttravel",
		StagingTable:    "staging_facttravelagencysales",
		ConflictColumns: []string{"transactionid"},
		Load:            LoadUpsert,
		Rules:           cleaner.Transactions,
	},
}

// Lookup resolves an entity name from the CLI.
func Lookup(name string) (*EntitySpec, error) {
	spec, ok := entities[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (valid: %v)", name, EntityNames())
	}
	return spec, nil
}

// EntityNames lists the supported entity names, sorted.
func EntityNames() []string {
	names := make([]string, 0, len(entities))
	for n := range entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
