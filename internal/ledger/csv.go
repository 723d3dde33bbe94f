package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"verisend/internal/dispatch"
)

// columnAliases maps header spellings seen in exported batch sheets to
// canonical column names.
var columnAliases = map[string]string{
	"name":           "name",
	"contact":        "name",
	"phone":          "phone",
	"number":         "phone",
	"message":        "message",
	"text":           "message",
	"tier":           "tier",
	"bucket":         "tier",
	"overdue":        "tier",
	"director":       "director",
	"director_phone": "director_phone",
	"leader":         "leader",
	"leader_phone":   "leader_phone",
	"customer":       "customer",
	"invoice":        "invoice",
	"amount":         "amount",
}

// LoadCSV reads a headered CSV batch export. Column order is free;
// unknown columns are ignored. Rows missing a parsable tier are an error
// because tier drives fan-out and failure partitioning.
func LoadCSV(path string) ([]dispatch.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	cols := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if canon, ok := columnAliases[key]; ok {
			cols[canon] = i
		}
	}
	if _, ok := cols["phone"]; !ok {
		return nil, fmt.Errorf("%s: no phone column", path)
	}
	if _, ok := cols["message"]; !ok {
		return nil, fmt.Errorf("%s: no message column", path)
	}

	get := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []dispatch.Row
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line++

		tier, err := dispatch.ParseTier(get(rec, "tier"))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		row := dispatch.Row{
			Name:          get(rec, "name"),
			Phone:         get(rec, "phone"),
			Message:       get(rec, "message"),
			Tier:          tier,
			DirectorName:  get(rec, "director"),
			DirectorPhone: get(rec, "director_phone"),
			LeaderName:    get(rec, "leader"),
			LeaderPhone:   get(rec, "leader_phone"),
			Customer:      get(rec, "customer"),
			Invoice:       get(rec, "invoice"),
		}
		if s := get(rec, "amount"); s != "" {
			amt, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: bad amount %q", path, line, s)
			}
			row.Amount = amt
		}
		out = append(out, row)
	}
	return out, nil
}
