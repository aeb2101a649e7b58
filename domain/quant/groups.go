package quant

import (
	"fmt"

	"cimpute/domain/core"
)

// Group is a named set of replicate sample columns
type Group struct {
	Name    core.GroupName
	Columns []string
}

// GroupColumns maps groups to their columns, keeping the order groups were resolved in.
type GroupColumns []Group

// Names returns group names in order
func (g GroupColumns) Names() []core.GroupName {
	names := make([]core.GroupName, len(g))
	for i, grp := range g {
		names[i] = grp.Name
	}
	return names
}

// Lookup finds a group by name
func (g GroupColumns) Lookup(name core.GroupName) (Group, bool) {
	for _, grp := range g {
		if grp.Name == name {
			return grp, true
		}
	}
	return Group{}, false
}

// AllColumns flattens the mapping, group by group
func (g GroupColumns) AllColumns() []string {
	var cols []string
	for _, grp := range g {
		cols = append(cols, grp.Columns...)
	}
	return cols
}

// Subset keeps the named groups in the order given
func (g GroupColumns) Subset(names []core.GroupName) (GroupColumns, error) {
	out := make(GroupColumns, 0, len(names))
	for _, name := range names {
		grp, ok := g.Lookup(name)
		if !ok {
			return nil, core.NewInvalidConfigError("groups", fmt.Sprintf("unknown group %q", name))
		}
		out = append(out, grp)
	}
	return out, nil
}

// Validate checks the mapping against a matrix: names unique and non-empty, each group
// non-empty, every column present in m and owned by exactly one group.
func (g GroupColumns) Validate(m *Matrix) error {
	if len(g) == 0 {
		return core.NewInvalidConfigError("groups", "mapping is empty")
	}

	seenGroups := make(map[core.GroupName]bool, len(g))
	owner := make(map[string]core.GroupName)
	for _, grp := range g {
		if grp.Name == "" {
			return core.NewInvalidConfigError("groups", "group name is empty")
		}
		if seenGroups[grp.Name] {
			return core.NewInvalidConfigError("groups", fmt.Sprintf("duplicate group %q", grp.Name))
		}
		seenGroups[grp.Name] = true

		if len(grp.Columns) == 0 {
			return core.NewInvalidConfigError("groups", fmt.Sprintf("group %q has no columns", grp.Name))
		}
		for _, col := range grp.Columns {
			if prev, taken := owner[col]; taken {
				return core.NewInvalidConfigError("groups",
					fmt.Sprintf("column %q belongs to both %q and %q", col, prev, grp.Name))
			}
			owner[col] = grp.Name
			if _, ok := m.ColumnIndex(col); !ok {
				return core.NewMissingColumnError(grp.Name, col)
			}
		}
	}
	return nil
}
