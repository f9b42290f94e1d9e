package github

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/v81/github"
)

// ErrNotPDF is returned when the downloaded file lacks a PDF header.
var ErrNotPDF = errors.New("downloaded file is not a PDF")

// FetchedDoc describes a document written to disk.
type FetchedDoc struct {
	Source string // owner/repo/path@ref
	Dest   string // Local file path
	SHA    string // File's Git blob SHA
	Size   int    // Bytes written
}

// Fetcher handles fetching the document from a GitHub repository
type Fetcher struct {
	client *Client
	owner  string
	repo   string
	ref    string
}

// NewFetcher creates a fetcher for owner/repo. An empty ref uses the default branch.
func NewFetcher(client *Client, owner, repo, ref string) *Fetcher {
	return &Fetcher{
		client: client,
		owner:  owner,
		repo:   repo,
		ref:    ref,
	}
}

// Download fetches the file at repoPath and writes it to dest. The file is
// written to a temporary name first so an interrupted download never leaves
// a truncated document behind.
func (f *Fetcher) Download(ctx context.Context, repoPath, dest string) (*FetchedDoc, error) {
	var opts *github.RepositoryContentGetOptions
	if f.ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: f.ref}
	}

	fileContent, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, repoPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", repoPath, err)
	}
	if fileContent == nil {
		if dirContents != nil {
			return nil, fmt.Errorf("%s is a directory", repoPath)
		}
		return nil, fmt.Errorf("no file content returned for %s", repoPath)
	}

	data, err := f.contentBytes(ctx, fileContent)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of %s: %w", repoPath, err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, repoPath)
	}

	if err := writeFile(dest, data); err != nil {
		return nil, err
	}

	source := fmt.Sprintf("%s/%s/%s", f.owner, f.repo, repoPath)
	if f.ref != "" {
		source += "@" + f.ref
	}
	return &FetchedDoc{
		Source: source,
		Dest:   dest,
		SHA:    fileContent.GetSHA(),
		Size:   len(data),
	}, nil
}

// contentBytes returns the inline content, or downloads it when GitHub omits
// it, which happens for files over 1 MB.
func (f *Fetcher) contentBytes(ctx context.Context, fc *github.RepositoryContent) ([]byte, error) {
	if fc.GetEncoding() != "none" && fc.Content != nil {
		content, err := fc.GetContent()
		if err != nil {
			return nil, err
		}
		return []byte(content), nil
	}

	downloadURL := fc.GetDownloadURL()
	if downloadURL == "" {
		return nil, errors.New("no inline content and no download url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", downloadURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func writeFile(dest string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	return nil
}
