package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/yubzen/switchboard/internal/config"
	"github.com/yubzen/switchboard/internal/providers"
)

type outputFormat string

const (
	formatTable outputFormat = "table"
	formatJSON  outputFormat = "json"
	formatYAML  outputFormat = "yaml"
)

func parseFormat(raw string) (outputFormat, error) {
	switch f := outputFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case formatTable, formatJSON, formatYAML:
		return f, nil
	case "":
		return formatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", raw)
	}
}

func writeProviders(w io.Writer, format outputFormat, list []providers.Provider) error {
	switch format {
	case formatJSON:
		return writeJSON(w, list)
	case formatYAML:
		return writeYAML(w, list)
	}
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tNAME\tAUTH\tCONFIGURED\tMODEL\tENDPOINT")
	for _, p := range list {
		configured := "no"
		if p.Configured {
			configured = "yes"
		}
		model, _ := p.ModelInfo()
		endpoint, ok := p.EndpointInfo()
		if !ok {
			endpoint = "default"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Label(), p.Name, p.BadgeLabel(), configured, dash(model), endpoint)
	}
	return tw.Flush()
}

func writeModels(w io.Writer, format outputFormat, models []providers.ModelInfo) error {
	switch format {
	case formatJSON:
		return writeJSON(w, models)
	case formatYAML:
		return writeYAML(w, models)
	}
	tw := tabwriter.NewWriter(w, 2, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\n", m.DisplayName, m.ID)
	}
	return tw.Flush()
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
