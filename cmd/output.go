package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/recon-cli/internal/export"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// render writes v in the selected --format. text is the markdown summary.
func render(out io.Writer, v any, text string) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		// Go through JSON so field names follow the json tags.
		data, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		var plain any
		if err := json.Unmarshal(data, &plain); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(plain); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		_, err := fmt.Fprint(out, text)
		return err
	}
}

// saveWorkbook writes the --xlsx workbook when the flag is set.
func saveWorkbook(fill func(*export.Workbook) error) error {
	if xlsxPath == "" {
		return nil
	}
	wb := export.NewWorkbook()
	if err := fill(wb); err != nil {
		return err
	}
	if err := wb.Save(xlsxPath); err != nil {
		return err
	}
	zap.L().Info("wrote workbook", zap.String("path", xlsxPath))
	return nil
}
