package metric

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ReadCSV reads metric rows. Column detection (case-insensitive):
// zip|zcta|zcta5|zipcode|postal_code, impressions, conversions, spend.
// Only the zip column is required; missing value columns read as zero.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.New("empty csv")
	}
	idxZip, idxImp, idxConv, idxSpend := -1, -1, -1, -1
	for i, h := range recs[0] {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "zip", "zcta", "zcta5", "zipcode", "zip_code", "postal_code":
			if idxZip == -1 {
				idxZip = i
			}
		case "impressions", "imps":
			if idxImp == -1 {
				idxImp = i
			}
		case "conversions", "convs":
			if idxConv == -1 {
				idxConv = i
			}
		case "spend", "cost":
			if idxSpend == -1 {
				idxSpend = i
			}
		}
	}
	if idxZip == -1 {
		return nil, errors.New("csv: zip column not found")
	}
	t := Table{}
	for _, row := range recs[1:] {
		if idxZip >= len(row) {
			continue
		}
		rec := Record{
			Impressions: cell(row, idxImp),
			Conversions: cell(row, idxConv),
			Spend:       cell(row, idxSpend),
		}
		t.Add(row[idxZip], rec)
	}
	if len(t) == 0 {
		return nil, errors.New("csv: no valid rows parsed")
	}
	return t, nil
}

func cell(row []string, i int) float64 {
	if i < 0 || i >= len(row) {
		return 0
	}
	s := strings.TrimSpace(row[i])
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
