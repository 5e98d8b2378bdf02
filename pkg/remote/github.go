package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

// GitHub implements Store over the GitHub repository contents api. The
// blob sha plays the version tag role: updates must carry the sha of the
// blob they replace, and the api answers 409 when it's stale.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHub creates a Store backed by a GitHub repository. branch is
// optional (the repository's default branch if empty).
func NewGitHub(token, owner, repo, branch string) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)

	return &GitHub{
		client: github.NewClient(tc),
		owner:  owner,
		repo:   repo,
		branch: branch,
	}
}

// GetFile fetches the file at path on the configured branch
func (g *GitHub) GetFile(ctx context.Context, path string) (*File, error) {
	opts := &github.RepositoryContentGetOptions{Ref: g.branch}

	fc, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, opts)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s from %s/%s: %v", path, g.owner, g.repo, err)
	}
	if fc == nil {
		return nil, fmt.Errorf("%s in %s/%s is a directory, not a file", path, g.owner, g.repo)
	}

	content, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s content: %v", path, err)
	}

	return &File{Content: content, Tag: fc.GetSHA()}, nil
}

// PutFile writes the file at path, conditioned on expectedTag. The api
// reports a stale sha as a 409, and a create racing an existing file as a
// 422 ("sha wasn't supplied"): both are conflicts for our purpose.
func (g *GitHub) PutFile(ctx context.Context, path, content, message, expectedTag string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	var rc *github.RepositoryContentResponse
	var resp *github.Response
	var err error

	if expectedTag == "" {
		rc, resp, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
	} else {
		opts.SHA = github.String(expectedTag)
		rc, resp, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	}

	if resp != nil && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("failed to write %s to %s/%s: %v", path, g.owner, g.repo, err)
	}

	return rc.Content.GetSHA(), nil
}
