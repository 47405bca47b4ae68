package main

import (
	"fmt"

	"github.com/pevans/gridiron/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes a default config file with the NFL news, draft and Reddit jobs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigFilePath(configFlag)
		if err != nil {
			return err
		}

		created, err := config.WriteDefaultConfigFile(path, initForce)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if created {
			fmt.Fprintf(out, "  ✓ Config file: %s\n", path)
		} else {
			fmt.Fprintf(out, "  Config file: %s (already exists, use --force to replace)\n", path)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Replace an existing config file")
	rootCmd.AddCommand(initCmd)
}
