package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/internal/reconcile"
)

// loadRecord reads a record from JSON, YAML or an XLSX sheet. Values come
// back as plain decoded JSON so the engine sees float64 numbers.
func loadRecord(path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		entries, err := export.ReadCollection(path, "")
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		return entries, nil
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		return normalize(raw)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		var v any
		if err := json.Unmarshal([]byte(reconcile.CleanJSON(string(data))), &v); err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
		return v, nil
	}
}

// loadDocument reads a record and tags it with the --shape flag, or the
// shape detected from its root when the flag is empty.
func loadDocument(path string) (model.Document, error) {
	rec, err := loadRecord(path)
	if err != nil {
		return model.Document{}, err
	}
	shape, ok := model.ParseShape(shapeFlag)
	if !ok {
		if shapeFlag != "" {
			return model.Document{}, eris.Errorf("unknown --shape %q (want composite or collection)", shapeFlag)
		}
		shape = model.DetectShape(rec)
	}
	return model.Document{Shape: shape, Record: rec}, nil
}

// loadReport reads raw verifier output. Fenced or prose-wrapped JSON is
// accepted.
func loadReport(path string) (*model.VerificationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	report, err := reconcile.ParseVerificationReport(string(data))
	if err != nil {
		return nil, eris.Wrapf(err, "parse report %s", path)
	}
	return report, nil
}

// normalize round-trips v through JSON so YAML integers become float64.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "normalize record")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, eris.Wrap(err, "normalize record")
	}
	return out, nil
}
