package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelworks/curator/internal/document"
	"github.com/kestrelworks/curator/internal/report"
)

var listLocation string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered documents",
	Long: `List the documents the registry knows about.

Core documents are shown with their names, library documents with their
paths and gateway reachability.

Examples:
  curator list
  curator list --location=core
  curator list --location=library -o json`,
	Args: cobra.NoArgs,
	RunE: runListCmd,
}

func init() {
	listCmd.Flags().StringVar(&listLocation, "location", "all", "Which tier to list (core, library, all)")
	rootCmd.AddCommand(listCmd)
}

type listedDoc struct {
	Tier       string `json:"tier"`
	Name       string `json:"name,omitempty"`
	Path       string `json:"path"`
	Status     string `json:"status"`
	ReplacedBy string `json:"replaced_by,omitempty"`
	Gateways   int    `json:"gateways,omitempty"`
}

func runListCmd(cmd *cobra.Command, args []string) error {
	switch listLocation {
	case "core", "library", "all":
	default:
		return fmt.Errorf("unknown location %q (want core, library, or all)", listLocation)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := openCorpus(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var docs []listedDoc
	if listLocation != "library" {
		for _, name := range c.reg.CoreNames() {
			path, _ := c.reg.ResolveName(name)
			d := listedDoc{Tier: string(document.TierCore), Name: name, Path: path, Status: "active"}
			if repl, ok := c.reg.Replacement(name); ok {
				d.Status = "deprecated"
				d.ReplacedBy = repl
			}
			docs = append(docs, d)
		}
	}
	if listLocation != "core" {
		for _, libPath := range c.reg.LibraryPaths() {
			path, _ := c.reg.ResolvePath(libPath)
			d := listedDoc{Tier: string(document.TierLibrary), Path: path}
			gws := c.graph.Reachability(libPath)
			d.Gateways = len(gws)
			if len(gws) > 0 {
				d.Status = "routed"
			} else {
				d.Status = "unrouted"
			}
			docs = append(docs, d)
		}
	}

	if cfg.Output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	t := report.NewTable("TIER", "NAME", "PATH", "STATUS")
	for _, d := range docs {
		t.AddRow(d.Tier, d.Name, d.Path, listStatus(d))
	}
	return t.Render(cmd.OutOrStdout())
}

func listStatus(d listedDoc) string {
	switch {
	case d.ReplacedBy != "":
		return "deprecated -> " + d.ReplacedBy
	case d.Gateways > 1:
		return fmt.Sprintf("routed by %d gateways", d.Gateways)
	case d.Gateways == 1:
		return "routed by 1 gateway"
	default:
		return d.Status
	}
}

