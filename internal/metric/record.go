// Package metric loads per-ZIP campaign metrics and turns them into fill
// colours and tooltip text for the map.
package metric

import (
	"context"
	"fmt"
	"strings"

	"zipheat/internal/geom"
)

type Record struct {
	Impressions float64 `json:"impressions"`
	Conversions float64 `json:"conversions"`
	Spend       float64 `json:"spend"`
}

// Rate is conversions per impression, zero when there were no impressions.
func (r Record) Rate() float64 {
	if r.Impressions <= 0 {
		return 0
	}
	return r.Conversions / r.Impressions
}

// Field selects which value of a Record drives the colour ramp.
type Field int

const (
	Impressions Field = iota
	Conversions
	Spend
)

func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "impressions":
		return Impressions, nil
	case "conversions":
		return Conversions, nil
	case "spend":
		return Spend, nil
	}
	return 0, fmt.Errorf("unknown metric field %q", s)
}

func (f Field) String() string {
	switch f {
	case Conversions:
		return "conversions"
	case Spend:
		return "spend"
	}
	return "impressions"
}

func (f Field) Value(r Record) float64 {
	switch f {
	case Conversions:
		return r.Conversions
	case Spend:
		return r.Spend
	}
	return r.Impressions
}

// Table maps a canonical 5-character ZIP to its record.
type Table map[string]Record

// Add accumulates r under the normalized form of zip. Rows whose key does
// not normalize are ignored.
func (t Table) Add(zip any, r Record) bool {
	id, ok := geom.NormalizeZIP(zip)
	if !ok {
		return false
	}
	cur := t[id]
	cur.Impressions += r.Impressions
	cur.Conversions += r.Conversions
	cur.Spend += r.Spend
	t[id] = cur
	return true
}

// Source produces a metric table.
type Source interface {
	Load(ctx context.Context) (Table, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Table, error)

func (f SourceFunc) Load(ctx context.Context) (Table, error) { return f(ctx) }

// Join returns one record per feature, matched by identifier. Features
// without an identifier or without a table entry get the zero Record.
func Join(features []geom.Feature, t Table, key geom.KeyFunc) []Record {
	out := make([]Record, len(features))
	for i, f := range features {
		id := f.ID
		if key != nil {
			if k, ok := key(f.Properties); ok {
				id = k
			}
		}
		if id == "" {
			continue
		}
		if nid, ok := geom.NormalizeZIP(id); ok {
			id = nid
		}
		out[i] = t[id]
	}
	return out
}

// Max is the largest value of f across records, never negative.
func Max(records []Record, f Field) float64 {
	m := 0.0
	for _, r := range records {
		if v := f.Value(r); v > m {
			m = v
		}
	}
	return m
}
