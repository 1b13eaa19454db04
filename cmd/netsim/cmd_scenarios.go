package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/adaptive-network-simulator/internal/scenario"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Print the scenario catalog as a loadable YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := scenario.NewCatalog()
			catalog.LoadPredefined()
			if path, _ := cmd.Flags().GetString("file"); path != "" {
				if _, err := catalog.LoadFile(path); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(catalog.Names())
			}
			return scenario.Encode(out, catalog.All())
		},
	}
	cmd.Flags().String("file", "", "YAML file with additional scenarios")
	return cmd
}
