package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// printResult renders value as json or yaml, or calls table for the default format.
func printResult(w io.Writer, value any, table func(tw *tabwriter.Writer)) error {
	switch strings.ToLower(strings.TrimSpace(outputFormat)) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case "yaml", "yml":
		// yaml.v3 不认识 json tag，先经 JSON 转成通用结构，字段名保持一致。
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
