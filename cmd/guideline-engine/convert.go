// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/guideline-engine/internal/container"
	"github.com/pdiddy/guideline-engine/internal/convert"
)

var convertCmd = &cobra.Command{
	Use:   "convert <pdf | documents-dir>...",
	Short: "Convert guideline PDFs to pdftohtml XML",
	Long: `Convert runs pdftohtml -xml on each PDF and writes the XML next to it,
the input layout read by detect and parse. A directory argument converts its
PDFs and those of its immediate subdirectories. Existing XML is kept unless
--force is given.

By default a local pdftohtml (poppler-utils) is used. With --container the
converter runs inside a docker or podman image instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Bool("container", false, "run pdftohtml in a container image")
	convertCmd.Flags().String("image", convert.DefaultImage, "container image providing pdftohtml")
	convertCmd.Flags().Bool("force", false, "reconvert PDFs whose XML exists")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	pdfs, err := convert.FindPDFs(args)
	if err != nil {
		return err
	}
	if len(pdfs) == 0 {
		return fmt.Errorf("no PDFs found")
	}

	var conv convert.Converter
	if useContainer, _ := cmd.Flags().GetBool("container"); useContainer {
		rt, err := container.DetectRuntime()
		if err != nil {
			return err
		}
		image, _ := cmd.Flags().GetString("image")
		c, err := convert.NewContainerConverter(rt, image)
		if err != nil {
			return err
		}
		conv = c
	} else {
		c, err := convert.NewLocalConverter()
		if err != nil {
			return err
		}
		conv = c
	}

	ctx, cancel := signalContext()
	defer cancel()

	force, _ := cmd.Flags().GetBool("force")
	result := convert.ConvertBatch(ctx, conv, pdfs, force, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d PDF(s) failed conversion", result.Failed)
	}
	return nil
}
