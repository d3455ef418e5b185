package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Search units around the device position",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFinder(cfg, cmd.OutOrStdout(), logger)
		if err != nil {
			return err
		}
		defer f.Close()

		return f.UseMyLocation(cmd.Context())
	},
}

var cityCmd = &cobra.Command{
	Use:     "city <name>",
	Short:   "Search units around a named city",
	Example: "  finder city Salvador\n  finder city São Paulo --max-results 5",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := newFinder(cfg, cmd.OutOrStdout(), logger)
		if err != nil {
			return err
		}
		defer f.Close()

		return f.SearchCity(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(locateCmd, cityCmd)
}
