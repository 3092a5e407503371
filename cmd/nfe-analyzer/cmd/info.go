package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	xmlparser "github.com/rezonia/nfe-analyzer/internal/parser/xml"
	"github.com/rezonia/nfe-analyzer/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about NFe files",
	Long: `Display information about files without ingesting them.

Shows:
  - Detected format and whether the document is an NFe
  - Invoice number, customer and item count when it can be extracted
  - File metadata

Examples:
  nfe-analyzer info nota.xml
  nfe-analyzer info notas/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	parser := xmlparser.NewParser()
	for _, file := range files {
		printFileInfo(cmd, parser, file)
		fmt.Println()
	}
	return nil
}

func printFileInfo(cmd *cobra.Command, parser *xmlparser.Parser, filePath string) {
	fmt.Printf("File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Size: %d bytes\n", info.Size())
	fmt.Printf("  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("  Error reading file: %v\n", err)
		return
	}

	format := processor.DetectFormat(data)
	fmt.Printf("  Format: %s\n", format)
	if format != processor.FormatXML {
		return
	}
	fmt.Printf("  NFe: %t\n", processor.IsNFe(data))

	inv, _, err := parser.ParseBytes(cmd.Context(), data)
	if err != nil {
		fmt.Printf("  Extraction: %v\n", err)
	} else {
		fmt.Printf("  Invoice: %s (series %s, %s)\n", inv.Number, inv.Series, inv.IssueDate)
		fmt.Printf("  Customer: %s [%s]\n", inv.Customer.Name, inv.Customer.CNPJ)
		fmt.Printf("  Items: %d\n", inv.ItemCount)
		fmt.Printf("  Emission: %s\n", inv.EmissionType)
	}

	if preview := getPreview(string(data), 200); preview != "" {
		fmt.Printf("  Preview: %s\n", preview)
	}
}

func getPreview(content string, maxLen int) string {
	// drop the XML declaration
	if idx := strings.Index(content, "?>"); idx >= 0 {
		content = content[idx+2:]
	}
	content = strings.Join(strings.Fields(content), " ")

	if len(content) > maxLen {
		content = content[:maxLen] + "..."
	}
	return content
}
