package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v58/github"
	"golang.org/x/oauth2"

	"pagesync/internal/cms"
)

// GitHubStore implements cms.Store on top of the GitHub Contents API.
// The revision token is the blob SHA GitHub assigns to the file content:
// it changes on every commit to the path, and the API verifies it
// atomically on conditional updates and deletes.
type GitHubStore struct {
	client *github.Client
	ref    cms.RepoRef
}

// NewGitHubStore creates a store bound to ref, authenticating every call
// with the given bearer token. baseURL overrides the API endpoint; leave
// it empty for github.com (tests point it at a local server).
func NewGitHubStore(ctx context.Context, ref cms.RepoRef, token, baseURL string) (*GitHubStore, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring API base URL: %w", err)
		}
	}

	return &GitHubStore{client: client, ref: ref}, nil
}

// List returns the file entries directly under dir ("" for the repo root).
func (g *GitHubStore) List(ctx context.Context, dir string) ([]cms.Entry, error) {
	opts := &github.RepositoryContentGetOptions{Ref: g.ref.Branch}
	_, contents, _, err := g.client.Repositories.GetContents(ctx, g.ref.Owner, g.ref.Repo, dir, opts)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, mapGitHubError(err, false))
	}
	if contents == nil {
		return nil, fmt.Errorf("listing %s: path is not a directory", dir)
	}

	var entries []cms.Entry
	for _, c := range contents {
		if c.GetType() != "file" {
			continue
		}
		entries = append(entries, cms.NewEntry(c.GetPath()))
	}
	return entries, nil
}

// Read returns the content and blob SHA of path.
func (g *GitHubStore) Read(ctx context.Context, path string) (*cms.Revision, error) {
	opts := &github.RepositoryContentGetOptions{Ref: g.ref.Branch}
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.ref.Owner, g.ref.Repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, mapGitHubError(err, false))
	}
	if file == nil {
		return nil, fmt.Errorf("reading %s: path is a directory", path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return &cms.Revision{Path: path, Content: []byte(content), Token: file.GetSHA()}, nil
}

// Write commits content to path on the configured branch. A non-empty
// token is sent as the expected blob SHA so GitHub rejects the write if
// another commit touched the path since the token was read.
func (g *GitHubStore) Write(ctx context.Context, path string, content []byte, message, token string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(g.ref.Branch),
	}

	var (
		resp *github.RepositoryContentResponse
		err  error
	)
	if token == "" {
		resp, _, err = g.client.Repositories.CreateFile(ctx, g.ref.Owner, g.ref.Repo, path, opts)
	} else {
		opts.SHA = github.String(token)
		resp, _, err = g.client.Repositories.UpdateFile(ctx, g.ref.Owner, g.ref.Repo, path, opts)
	}
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, mapGitHubError(err, token == ""))
	}

	return resp.Content.GetSHA(), nil
}

// Delete removes path on the configured branch, conditional on token.
func (g *GitHubStore) Delete(ctx context.Context, path, message, token string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(token),
		Branch:  github.String(g.ref.Branch),
	}
	if _, _, err := g.client.Repositories.DeleteFile(ctx, g.ref.Owner, g.ref.Repo, path, opts); err != nil {
		return fmt.Errorf("deleting %s: %w", path, mapGitHubError(err, false))
	}
	return nil
}

// mapGitHubError translates GitHub API failures into the cms sentinels.
// creating distinguishes a 422 on a create (path already exists, the API
// wants a SHA) from a 422 on an update.
func mapGitHubError(err error, creating bool) error {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil {
		return err
	}

	switch ghErr.Response.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", cms.ErrNotFound, err)
	case http.StatusConflict:
		return fmt.Errorf("%w: %v", cms.ErrConflict, err)
	case http.StatusUnprocessableEntity:
		if creating {
			return fmt.Errorf("%w: %v", cms.ErrAlreadyExists, err)
		}
		return fmt.Errorf("%w: %v", cms.ErrConflict, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", cms.ErrAuthFailure, err)
	default:
		return err
	}
}

var _ cms.Store = (*GitHubStore)(nil)
