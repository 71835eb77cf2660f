package queryir

import "sort"

// Run-log tables addressable by a Select.
const (
	TableRuns       = "runs"
	TablePresses    = "presses"
	TablePulses     = "pulses"
	TableFeederHits = "feeder_hits"
)

// ColumnType is the literal type a column accepts in an Equals predicate.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnInt
	ColumnBool
	// ColumnLevel is a text column holding "low" or "high".
	ColumnLevel
)

func (t ColumnType) String() string {
	switch t {
	case ColumnText:
		return "text"
	case ColumnInt:
		return "int"
	case ColumnBool:
		return "bool"
	case ColumnLevel:
		return "level"
	default:
		return "unknown"
	}
}

// Tables maps each queryable table to its columns.
var Tables = map[string]map[string]ColumnType{
	TableRuns: {
		"id":                ColumnText,
		"mode":              ColumnText,
		"network_hash":      ColumnText,
		"presses_requested": ColumnInt,
		"target":            ColumnText,
		"max_presses":       ColumnInt,
		"extrapolate":       ColumnBool,
		"result":            ColumnInt,
		"stopped_early":     ColumnBool,
		"status":            ColumnText,
		"engine_version":    ColumnText,
	},
	TablePresses: {
		"run_id":      ColumnText,
		"press":       ColumnInt,
		"low":         ColumnInt,
		"high":        ColumnInt,
		"fingerprint": ColumnText,
	},
	TablePulses: {
		"id":          ColumnInt,
		"run_id":      ColumnText,
		"press":       ColumnInt,
		"seq":         ColumnInt,
		"source":      ColumnText,
		"level":       ColumnLevel,
		"destination": ColumnText,
	},
	TableFeederHits: {
		"run_id": ColumnText,
		"feeder": ColumnText,
		"press":  ColumnInt,
	},
}

// Column returns the type of table.field.
func Column(table, field string) (ColumnType, bool) {
	cols, ok := Tables[table]
	if !ok {
		return 0, false
	}
	t, ok := cols[field]
	return t, ok
}

// Columns returns the sorted column names of a table, or nil if the
// table is unknown.
func Columns(table string) []string {
	cols, ok := Tables[table]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
