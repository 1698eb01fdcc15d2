// Package metadata implements the schema reflector and constructor
// (spec.md §4.B, component B): reflecting a source schema, filtering it
// down to the candidate relations, topologically sorting by foreign-key
// dependency, and — when migrate_metadata is set — drop-and-recreating
// the target schema with types resolved through internal/typeequiv.
package metadata

import (
	"github.com/thewisecoder/dbrief/internal/rdbms"
	"github.com/thewisecoder/dbrief/internal/typeequiv"
)

// Spec carries the inputs to the reflector/constructor (spec §4.B
// "Inputs: source+target connection configurations, from_schema,
// to_schema, include/exclude relations, override map, flags").
type Spec struct {
	FromSchema string
	ToSchema   string
	Include    []string
	Exclude    []string
	Overrides  typeequiv.OverrideMap

	MigrateMetadata bool
	ProcessIndexes  bool
	ProcessViews    bool
	RelaxReflection bool
}

func (s Spec) reflectFlags() rdbms.ReflectFlags {
	return rdbms.ReflectFlags{
		ProcessIndexes:  s.ProcessIndexes,
		ProcessViews:    s.ProcessViews,
		RelaxReflection: s.RelaxReflection,
	}
}

// ResolvedColumn is a source column paired with its resolved target type
// (spec §4.B step 5: "descriptors with resolved column types and
// features").
type ResolvedColumn struct {
	Name     string
	Source   rdbms.Column
	Resolved typeequiv.Resolved
	Features []rdbms.Feature
}

// TableDescriptor is one migrated-table output of the constructor (spec
// §4.B "Output: a list of migrated-table descriptors").
type TableDescriptor struct {
	Name    string
	Columns []ResolvedColumn
	Indexes []rdbms.Index
	Warning string // set when the table has no primary key
}

// HasPrimaryKey reports whether any column of d is a primary key.
func (d TableDescriptor) HasPrimaryKey() bool {
	for _, c := range d.Columns {
		if c.Source.PrimaryKey {
			return true
		}
	}
	return false
}
