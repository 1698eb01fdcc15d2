package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// ReflectSource reflects the source schema and fails the migration if
// reflection came back incomplete (spec §4.B step 1: "If reflection
// warns ... fail the migration: downstream steps would operate on a
// partial tree").
func ReflectSource(ctx context.Context, source rdbms.Client, spec Spec) (*rdbms.Schema, error) {
	schema, err := source.ReflectSchema(ctx, spec.FromSchema, spec.reflectFlags())
	if err != nil {
		return nil, fmt.Errorf("reflect source schema %s: %w", spec.FromSchema, err)
	}
	if schema.Warning != "" {
		return nil, fmt.Errorf("reflect source schema %s: incomplete reflection: %s", spec.FromSchema, schema.Warning)
	}
	return schema, nil
}

// FilterRelations normalizes include/exclude to lowercase, intersects and
// excludes against the reflected schema's table set, and fails if either
// list names a table absent from the source (spec §4.B step 2).
func FilterRelations(schema *rdbms.Schema, include, exclude []string) ([]string, error) {
	present := make(map[string]bool, len(schema.Tables))
	for _, t := range schema.Tables {
		present[strings.ToLower(t.Name)] = true
	}

	lowerInclude := toLowerSet(include)
	lowerExclude := toLowerSet(exclude)

	if missing := missingFrom(lowerInclude, present); len(missing) > 0 {
		return nil, fmt.Errorf("include list names tables absent from source schema: %s", strings.Join(missing, ", "))
	}
	if missing := missingFrom(lowerExclude, present); len(missing) > 0 {
		return nil, fmt.Errorf("exclude list names tables absent from source schema: %s", strings.Join(missing, ", "))
	}

	var candidates []string
	for _, t := range schema.Tables {
		name := strings.ToLower(t.Name)
		if len(lowerInclude) > 0 && !lowerInclude[name] {
			continue
		}
		if lowerExclude[name] {
			continue
		}
		candidates = append(candidates, t.Name)
	}
	sort.Strings(candidates)
	return candidates, nil
}

func toLowerSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[strings.ToLower(n)] = true
	}
	return out
}

func missingFrom(names map[string]bool, present map[string]bool) []string {
	var missing []string
	for n := range names {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	sort.Strings(missing)
	return missing
}

// TopoSortByForeignKey orders candidates so that every table appears
// after every other candidate table its foreign keys reference (spec
// §4.B step 3). It fails on a cycle (mutually dependent FKs).
func TopoSortByForeignKey(schema *rdbms.Schema, candidates []string) ([]string, error) {
	candidateSet := toLowerSet(candidates)
	deps := make(map[string]map[string]bool, len(candidates))
	for _, name := range candidates {
		deps[strings.ToLower(name)] = make(map[string]bool)
	}

	for _, name := range candidates {
		table, ok := schema.TableByName(name)
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		for _, col := range table.Columns {
			if col.ForeignKey == nil {
				continue
			}
			refTable := strings.ToLower(col.ForeignKey.Table)
			if refTable == key {
				continue // self-reference does not create an ordering cycle
			}
			if candidateSet[refTable] {
				deps[key][refTable] = true
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(candidates))
	var order []string
	byLower := make(map[string]string, len(candidates))
	for _, name := range candidates {
		byLower[strings.ToLower(name)] = name
	}

	var visit func(key string) error
	visit = func(key string) error {
		switch state[key] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("cyclic foreign-key dependency detected at table %q", byLower[key])
		}
		state[key] = visiting
		dependencies := make([]string, 0, len(deps[key]))
		for dep := range deps[key] {
			dependencies = append(dependencies, dep)
		}
		sort.Strings(dependencies)
		for _, dep := range dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[key] = visited
		order = append(order, byLower[key])
		return nil
	}

	sortedCandidates := append([]string{}, candidates...)
	sort.Strings(sortedCandidates)
	for _, name := range sortedCandidates {
		if err := visit(strings.ToLower(name)); err != nil {
			return nil, err
		}
	}
	return order, nil
}
