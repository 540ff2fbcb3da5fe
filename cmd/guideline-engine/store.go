// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/guideline-engine/internal/pipeline"
	"github.com/pdiddy/guideline-engine/internal/store"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the results store (ingest, search, export)",
	Long: `Store manages a local SQLite database of parsed documents. Use
subcommands to ingest artifacts, search recommendations, or export them.`,
}

// --- ingest subcommand ---

var storeIngestCmd = &cobra.Command{
	Use:   "ingest [artifact-dirs...]",
	Short: "Ingest parsed document artifacts into the store",
	Long: `Ingest reads the artifacts of each parsed document (every subdirectory
of the output directory when no arguments are given) and stores its charts,
recommendations, references and evidence records. A document already in the
store is replaced.`,
	RunE: runStoreIngest,
}

func runStoreIngest(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		var err error
		dirs, err = pipeline.ArtifactDirs(viper.GetString("output_dir"))
		if err != nil {
			return err
		}
	}
	ctx, cancel := signalContext()
	defer cancel()
	return ingestDirs(ctx, dirs)
}

// ingestDirs stores the documents read from dirs. Unreadable artifact
// directories count as failures.
func ingestDirs(ctx context.Context, dirs []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		docs       []*types.DocumentResult
		readFailed int
	)
	for _, dir := range dirs {
		res, err := pipeline.ReadArtifacts(dir)
		if err != nil {
			fmt.Printf("failed  %s: %v\n", dir, err)
			readFailed++
			continue
		}
		docs = append(docs, res)
	}

	summary, err := st.IngestAll(ctx, docs, os.Stdout)
	if err != nil {
		return err
	}
	if failed := summary.Failed + readFailed; failed > 0 {
		return fmt.Errorf("%d document(s) failed ingest", failed)
	}
	return nil
}

// --- search subcommand ---

var storeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored recommendations",
	Long: `Search queries stored recommendations using FTS5 full-text search over
recommendation text, structured filters (class, level of evidence, document),
or both.`,
	RunE: runStoreSearch,
}

func runStoreSearch(cmd *cobra.Command, args []string) error {
	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --class, --loe, or --document")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	results, err := st.Search(context.Background(), opts)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(results, jsonOutput)
}

func formatSearchOutput(results []store.Result, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-12s  %-5s  %-6s  %-60s  %s\n",
		"Rank", "Document", "COR", "LOE", "Recommendation", "Citations")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-12s  %-5s  %-6s  %-60s  %s\n",
			i+1, clip(r.Document, 12), r.Classification, r.EvidenceLevel,
			clip(r.Text, 60), strings.Join(r.Citations, ", "))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// --- export subcommand ---

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored recommendations to YAML or JSON",
	Long: `Export writes all stored recommendations (or a filtered subset) to
<store-dir>/export.yaml or export.json. Supports the same filter flags as
search.`,
	RunE: runStoreExport,
}

func runStoreExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = st.ExportYAML(context.Background(), opts)
	case "json":
		path, err = st.ExportJSON(context.Background(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Println("Exported to", path)
	return nil
}

// --- shared helpers ---

func openStore() (*store.Store, error) {
	return store.NewStore(types.StoreConfig{StoreDir: viper.GetString("store_dir")})
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) store.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	class, _ := cmd.Flags().GetString("class")
	loe, _ := cmd.Flags().GetString("loe")
	document, _ := cmd.Flags().GetString("document")
	limit, _ := cmd.Flags().GetInt("limit")

	return store.QueryOptions{
		Query:          queryText,
		Classification: types.Classification(class),
		EvidenceLevel:  types.EvidenceLevel(loe),
		Document:       document,
		MaxResults:     limit,
	}
}

func addFilterFlags(cmd *cobra.Command, what string) {
	cmd.Flags().String("query", "", "full-text search query"+what)
	cmd.Flags().String("class", "", "filter by class of recommendation"+what)
	cmd.Flags().String("loe", "", "filter by level of evidence"+what)
	cmd.Flags().String("document", "", "filter by document name"+what)
}

func init() {
	addFilterFlags(storeSearchCmd, "")
	storeSearchCmd.Flags().Int("limit", 0, "maximum results (0 = default of 20)")
	storeSearchCmd.Flags().Bool("json", false, "output results as JSON")

	addFilterFlags(storeExportCmd, " for partial export")
	storeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	storeCmd.AddCommand(storeIngestCmd)
	storeCmd.AddCommand(storeSearchCmd)
	storeCmd.AddCommand(storeExportCmd)

	rootCmd.AddCommand(storeCmd)
}
