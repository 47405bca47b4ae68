package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pevans/gridiron/archive"
	"github.com/spf13/cobra"
)

var previewLimit int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Works with compressed Reddit archive dumps.",
}

var archivePreviewCmd = &cobra.Command{
	Use:   "preview <path.zst>",
	Short: "Prints the first objects of a zstandard NDJSON dump.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := archive.PreviewFile(args[0], previewLimit)
		if err != nil {
			return err
		}
		return printPreview(cmd.OutOrStdout(), cmd.ErrOrStderr(), p)
	},
}

func init() {
	archivePreviewCmd.Flags().IntVar(&previewLimit, "limit", 10, "Number of objects to print (0 for all)")
	archiveCmd.AddCommand(archivePreviewCmd)
	rootCmd.AddCommand(archiveCmd)
}

func printPreview(out, errOut io.Writer, p *archive.Preview) error {
	for _, obj := range p.Objects {
		data, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format object: %w", err)
		}
		fmt.Fprintln(out, string(data))
	}

	for _, lineErr := range p.Errors {
		fmt.Fprintf(errOut, "Warning: skipped %v\n", lineErr)
	}

	fmt.Fprintf(out, "Preview done: %d objects\n", len(p.Objects))
	return nil
}
