package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	table "github.com/charmbracelet/bubbles/table"

	"zipheat/internal/metric"
)

// refreshAttrs rebuilds the table from the selected ZIP, or the hovered one.
func (m *Model) refreshAttrs() {
	i, ok := m.mp.Selected()
	if !ok {
		i, ok = m.mp.Hovered()
	}
	if !ok || i >= len(m.features) {
		m.showAttrs = false
		m.status = "hover or click a ZIP first"
		return
	}
	rows := attrRows(m.features[i].ID, m.records[i], m.features[i].Properties)
	keyW, valW := 8, 12
	for _, r := range rows {
		keyW = max(keyW, min(24, len(r[0])+2))
		valW = max(valW, min(32, len(r[1])+2))
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns([]table.Column{{Title: "field", Width: keyW}, {Title: "value", Width: valW}})
	m.tbl.SetRows(rows)
	m.tbl.GotoTop()
}

// attrRows lists the formatted metrics first, then the feature properties
// in key order.
func attrRows(id string, rec metric.Record, props map[string]any) []table.Row {
	var rows []table.Row
	for _, line := range strings.Split(metric.Format(id, rec), "\n") {
		if k, v, ok := strings.Cut(line, ": "); ok {
			rows = append(rows, table.Row{k, v})
			continue
		}
		if z, ok := strings.CutPrefix(line, "ZIP "); ok {
			rows = append(rows, table.Row{"ZIP", z})
		}
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, table.Row{k, propString(props[k])})
	}
	return rows
}

func propString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		bs, _ := json.Marshal(t)
		return string(bs)
	}
}
