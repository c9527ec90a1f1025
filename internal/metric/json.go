package metric

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var zipKeys = []string{"zip", "zcta", "zcta5", "zipcode", "zip_code", "postal_code"}

// ReadJSON accepts either an object keyed by ZIP,
//
//	{"02134": {"impressions": 10, "conversions": 1, "spend": 2.5}}
//
// or an array of rows carrying the ZIP in one of the usual column names.
func ReadJSON(data []byte) (Table, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty json")
	}
	t := Table{}
	switch data[0] {
	case '{':
		var obj map[string]map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("metric json object: %w", err)
		}
		for zip, row := range obj {
			t.Add(zip, rowRecord(row))
		}
	case '[':
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("metric json rows: %w", err)
		}
		for _, row := range rows {
			for _, k := range zipKeys {
				if v, ok := lookup(row, k); ok {
					t.Add(v, rowRecord(row))
					break
				}
			}
		}
	default:
		return nil, errors.New("metric json: expected object or array")
	}
	return t, nil
}

func rowRecord(row map[string]any) Record {
	return Record{
		Impressions: number(row, "impressions"),
		Conversions: number(row, "conversions"),
		Spend:       number(row, "spend"),
	}
}

// lookup matches keys case-insensitively.
func lookup(row map[string]any, key string) (any, bool) {
	if v, ok := row[key]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func number(row map[string]any, key string) float64 {
	v, ok := lookup(row, key)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// Decode picks the reader by file extension; anything that is not CSV is
// treated as JSON.
func Decode(name string, data []byte) (Table, error) {
	name = strings.TrimSuffix(strings.ToLower(name), ".gz")
	if filepath.Ext(name) == ".csv" {
		return ReadCSV(bytes.NewReader(data))
	}
	return ReadJSON(data)
}
