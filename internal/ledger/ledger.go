// Package ledger persists the failure partition of a batch run as a
// resendable artifact, and loads batch files (fresh or resend) back into
// rows. The artifact is plain YAML so an operator can prune rows by hand
// before resubmitting.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"verisend/internal/dispatch"
)

// file is the on-disk shape. Section order is fixed so diffs between
// consecutive runs stay readable.
type file struct {
	Tier1 []dispatch.Row `yaml:"tier1,omitempty"`
	Tier2 []dispatch.Row `yaml:"tier2,omitempty"`
	Tier3 []dispatch.Row `yaml:"tier3,omitempty"`
}

// Persist writes the failure partition of res to path, atomically.
//
// A fully successful run removes a stale artifact from an earlier run so
// the operator cannot resend rows that already went through. An aborted
// run never removes the artifact: rows the run did not reach may still be
// listed there.
func Persist(path string, res dispatch.Result) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("ledger path is empty")
	}
	if res.FailureCount() == 0 {
		if res.Aborted {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	out := file{
		Tier1: res.Failures[dispatch.Tier1],
		Tier2: res.Failures[dispatch.Tier2],
		Tier3: res.Failures[dispatch.Tier3],
	}
	b, err := yaml.Marshal(out)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Load reads a resend artifact written by Persist. Rows come back in
// section order with the section's tier stamped on each row.
func Load(path string) ([]dispatch.Row, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}

	sections := []struct {
		tier dispatch.Tier
		rows []dispatch.Row
	}{
		{dispatch.Tier1, f.Tier1},
		{dispatch.Tier2, f.Tier2},
		{dispatch.Tier3, f.Tier3},
	}
	var out []dispatch.Row
	for _, s := range sections {
		for _, r := range s.rows {
			r.Tier = s.tier
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadBatch loads any supported batch file by extension.
func LoadBatch(path string) ([]dispatch.Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Load(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported batch file %s (want .yaml, .yml or .csv)", path)
	}
}
