/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jjudge-oj/catalog/config"
	"github.com/jjudge-oj/catalog/internal/plugins"
	"github.com/jjudge-oj/catalog/internal/services"
	"github.com/spf13/cobra"
)

var pluginsType string

// pluginsCmd represents the plugins command
var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the judge plugin tags known to the catalog",
	Long: `List the judge plugin tags known to the catalog. Usage:

	catalog plugins --type FILTER
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		registry, err := plugins.LoadRegistry(cfg.Catalog.PluginRegistryFile)
		if err != nil {
			return err
		}

		tags, err := services.NewPluginService(registry).ResolveAll(cmd.Context(), pluginsType)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GROUP\tNAME\tVERSION\tTYPE")
		for _, tag := range tags {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tag.Group, tag.Name, tag.Version, tag.Type)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)

	pluginsCmd.Flags().StringVarP(&pluginsType, "type", "t", "", "Only list tags of this plugin type")
}
