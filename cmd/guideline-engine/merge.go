// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/guideline-engine/internal/merge"
	"github.com/pdiddy/guideline-engine/internal/pipeline"
	"github.com/pdiddy/guideline-engine/internal/pubmed"
	"github.com/pdiddy/guideline-engine/internal/secrets"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <artifact-dir | document-name>",
	Short: "Join parsed recommendations to evidence through PubMed",
	Long: `Merge reads the artifacts of a parsed document, looks up the PubMed
identifier of each cited reference, and attaches the evidence rows sharing
that identifier to every recommendation row. Identifiers without evidence
rows get the PubMed abstract instead unless --abstracts=false.

Set pubmed.email (or .secrets/ncbi-email) as NCBI asks of registered tools;
pubmed.api_key (or .secrets/ncbi-api-key) raises the rate limit.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().Bool("abstracts", true, "fetch abstracts for identifiers without evidence rows")
	mergeCmd.Flags().String("email", "", "contact email sent to NCBI")
	mergeCmd.Flags().String("api-key", "", "NCBI API key")
	mergeCmd.Flags().Int("max-ids", 0, "identifiers requested per citation (default 3)")
	mergeCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")

	viper.BindPFlag("pubmed.email", mergeCmd.Flags().Lookup("email"))
	viper.BindPFlag("pubmed.api_key", mergeCmd.Flags().Lookup("api-key"))
	viper.BindPFlag("pubmed.max_ids", mergeCmd.Flags().Lookup("max-ids"))
	viper.BindPFlag("pubmed.timeout", mergeCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	dir := artifactDirArg(args[0])
	res, err := pipeline.ReadArtifacts(dir)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := newLogger()
	abstracts, _ := cmd.Flags().GetBool("abstracts")
	merged, diag, err := newMerger(abstracts, log).Merge(ctx, res)
	if err != nil {
		return err
	}
	// The merge re-resolves every citation, so its count replaces the one
	// recorded at parse time.
	res.Diagnostics.UnresolvedCitations = 0
	res.Diagnostics.Merge(diag)
	if err := pipeline.WriteArtifacts(dir, &pipeline.Outcome{Result: res, Merged: merged}); err != nil {
		return err
	}

	rows, joined := 0, 0
	for _, c := range merged {
		for _, r := range c.Rows {
			rows++
			if len(r.Evidence) > 0 {
				joined++
			}
		}
	}
	fmt.Printf("merged  %s (%d of %d rows with evidence, %d unresolved citations)\n",
		res.Name, joined, rows, diag.UnresolvedCitations)
	fmt.Println("Wrote", filepath.Join(dir, pipeline.MergedFile))
	return nil
}

// pubmedConfig builds the PubMed client settings from viper, with secrets
// as the fallback for the email and API key.
func pubmedConfig() types.PubMedConfig {
	return types.PubMedConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("pubmed.timeout"),
			UserAgent: "guideline-engine/" + version,
		},
		Email:        secretDefault(secrets.NCBIEmail, viper.GetString("pubmed.email")),
		APIKey:       secretDefault(secrets.NCBIAPIKey, viper.GetString("pubmed.api_key")),
		MaxIDs:       viper.GetInt("pubmed.max_ids"),
		RequestDelay: viper.GetDuration("pubmed.request_delay"),
	}
}

// newMerger returns a merger backed by the PubMed client. Abstract fetches
// are disabled unless abstracts is set.
func newMerger(abstracts bool, log *slog.Logger) *merge.Merger {
	client := pubmed.New(pubmedConfig(), nil)
	var fetcher merge.AbstractFetcher
	if abstracts {
		fetcher = client
	}
	return merge.New(client, fetcher, log)
}
