package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	ghclient "github.com/bull/pdf-qa-server/internal/github"
)

var fetchOpts struct {
	owner string
	repo  string
	path  string
	ref   string
	dest  string
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the document from GitHub",
	Long: `Downloads a PDF from a GitHub repository to document.path (or --dest).

Flags default to the github section of the config file.

Environment variables:
  GITHUB_TOKEN   GitHub token for private repositories and higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchOpts.owner, "owner", "", "repository owner")
	f.StringVar(&fetchOpts.repo, "repo", "", "repository name")
	f.StringVar(&fetchOpts.path, "path", "", "path of the PDF within the repository")
	f.StringVar(&fetchOpts.ref, "ref", "", "branch, tag or commit (default: repository default branch)")
	f.StringVar(&fetchOpts.dest, "dest", "", "output file (default: document.path)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	gh := cfg.GitHub
	owner := firstNonEmpty(fetchOpts.owner, gh.Owner)
	repo := firstNonEmpty(fetchOpts.repo, gh.Repo)
	path := firstNonEmpty(fetchOpts.path, gh.Path)
	ref := firstNonEmpty(fetchOpts.ref, gh.Ref)
	dest := firstNonEmpty(fetchOpts.dest, cfg.Document.Path)
	if owner == "" || repo == "" || path == "" {
		return errors.New("--owner, --repo and --path are required")
	}

	client, err := ghclient.NewClient(gh.Token, gh.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	logger.Info().Str("owner", owner).Str("repo", repo).Str("path", path).Msg("Fetching document")
	doc, err := ghclient.NewFetcher(client, owner, repo, ref).Download(cmd.Context(), path, dest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fetched %s\n", doc.Source)
	fmt.Fprintf(out, "  Saved to: %s\n", doc.Dest)
	fmt.Fprintf(out, "  Size: %d bytes\n", doc.Size)
	fmt.Fprintf(out, "  SHA: %s\n", doc.SHA)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
