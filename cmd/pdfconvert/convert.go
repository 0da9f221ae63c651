package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/client"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>",
	Short: "Convert a PDF file to Markdown",
	Long: `Convert uploads a PDF to the gateway and writes the returned Markdown.
By default the Markdown is written next to the PDF with an .md extension.
Use --out - to print it instead, and --html to also render it as HTML.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("out", "", "Markdown output path, or - for stdout (default: <file>.md)")
	convertCmd.Flags().String("html", "", "also render the Markdown to this HTML file")
	convertCmd.Flags().String("gateway", "", "gateway convert URL (overrides "+keyGatewayURL+")")
	_ = viper.BindPFlag(keyGatewayURL, convertCmd.Flags().Lookup("gateway"))

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	src := args[0]
	outPath, _ := cmd.Flags().GetString("out")
	htmlPath, _ := cmd.Flags().GetString("html")
	if outPath == "" {
		outPath = strings.TrimSuffix(src, filepath.Ext(src)) + ".md"
	}

	c := client.New(viper.GetDuration(keyTimeout))
	res, err := c.ConvertFile(cmd.Context(), viper.GetString(keyGatewayURL), src)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("conversion failed: service reported no success for %s", src)
	}

	if outPath == "-" {
		fmt.Fprint(cmd.OutOrStdout(), res.Content)
	} else {
		if err := os.WriteFile(outPath, []byte(res.Content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s, %s)\n", outPath, humanize.Bytes(uint64(len(res.Content))), res.ProcessingMethod)
	}

	if htmlPath != "" {
		html, err := client.RenderHTML(res.Content)
		if err != nil {
			return err
		}
		if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", htmlPath, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", htmlPath)
	}
	return nil
}
