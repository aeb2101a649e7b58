// Package groups maps experimental group labels onto quantification columns.
package groups

import (
	"fmt"
	"strings"

	"cimpute/domain/core"
	"cimpute/domain/quant"
)

// Resolve assigns columns to groups by name. A column belongs to a group when it contains
// quantMarker and, with the marker removed, still contains the group label. Groups keep
// the order of labels; columns keep table order. Every label must claim at least one
// column and no column may be claimed by two labels.
func Resolve(columns []string, labels []string, quantMarker string) (quant.GroupColumns, error) {
	if quantMarker == "" {
		return nil, core.NewInvalidConfigError("quant_marker", "must not be empty")
	}
	if len(labels) == 0 {
		return nil, core.NewInvalidConfigError("groups", "no group labels given")
	}

	seen := make(map[core.GroupName]bool, len(labels))
	out := make(quant.GroupColumns, len(labels))
	for i, label := range labels {
		name, err := core.ParseGroupName(label)
		if err != nil {
			return nil, core.NewInvalidConfigError("groups", err.Error())
		}
		if seen[name] {
			return nil, core.NewInvalidConfigError("groups", fmt.Sprintf("duplicate label %q", label))
		}
		seen[name] = true
		out[i].Name = name
	}

	owner := make(map[string]string)

	for _, col := range columns {
		if !strings.Contains(col, quantMarker) {
			continue
		}
		stripped := strings.ReplaceAll(col, quantMarker, "")
		for i, label := range labels {
			if !strings.Contains(stripped, label) {
				continue
			}
			if prev, taken := owner[col]; taken {
				return nil, core.NewInvalidConfigError("groups",
					fmt.Sprintf("column %q matches both %q and %q", col, prev, label))
			}
			owner[col] = label
			out[i].Columns = append(out[i].Columns, col)
		}
	}

	for _, g := range out {
		if len(g.Columns) == 0 {
			return nil, core.NewInvalidConfigError("groups",
				fmt.Sprintf("label %q matches no %q column", g.Name, quantMarker))
		}
	}
	return out, nil
}

// ColumnGroups inverts the mapping: column name to group
func ColumnGroups(g quant.GroupColumns) map[string]core.GroupName {
	out := make(map[string]core.GroupName)
	for _, grp := range g {
		for _, c := range grp.Columns {
			out[c] = grp.Name
		}
	}
	return out
}
