// github retrieves graded artifacts from the GitHub platform. Courses that
// have students publish release binaries use this to pull the exact asset a
// submission names, so it can be handed straight to the sandbox.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/google/go-github/v48/github"
	"golang.org/x/oauth2"
)

const (
	CacheDirName         = "verdict"
	CacheArtifactDirName = "artifacts"
	// downloaded artifacts are meant to be executed by the sandbox
	ArtifactFilePerms = 0755
)

// Release represents one release of a submission repository.
type Release struct {
	Name      string
	Tag       string
	Artifacts []Artifact
}

// Artifact is a single downloadable asset attached to a release.
type Artifact struct {
	ID          int64
	Name        string
	URL         string
	ContentType string
}

// GHRetriever defines the artifact operations the grading pipeline needs
// from a source platform.
type GHRetriever interface {
	GetArtifacts(repoURL string) ([]Release, error)
	DownloadArtifact(repoURL, tag, name string) (string, error)
}

type GHManager struct {
	GHManagerConfig
	client *github.Client
}

// GHManagerConfig provide configuration options for creating a GitHub
// Manager.
type GHManagerConfig struct {
	// the access token to use when interacting with GitHub. If you plan to
	// access private submission repositories, this must be set.
	GHToken string
}

// NewGHManager takes an optional configuration (conf) and returns a
// [GHManager]. If required configuration values are not set, defaults are
// used. While conf is variadic, only the last conf argument passed will be
// used.
func NewGHManager(conf ...GHManagerConfig) GHManager {
	opts := GHManagerConfig{}
	if len(conf) > 0 {
		opts = conf[len(conf)-1]
	}
	var httpClient *http.Client

	// if the GHToken was set, create an HTTP client with the oauth2 token;
	// otherwise nil will be passed.
	if opts.GHToken != "" {
		srcToken := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: opts.GHToken},
		)
		httpClient = oauth2.NewClient(context.Background(), srcToken)
	}
	c := github.NewClient(httpClient)

	return GHManager{GHManagerConfig: opts, client: c}
}

// GetArtifacts lists the releases of the repository along with their
// assets. Only the first page of releases is requested, at GitHub's default
// page size; later pages are not fetched. The repository is addressed as
// $ORG_NAME/$REPO_NAME, for example golang/go.
func (g *GHManager) GetArtifacts(repoURL string) ([]Release, error) {
	owner, repoName, err := splitRepo(repoURL)
	if err != nil {
		return nil, err
	}
	releases, _, err := g.client.Repositories.ListReleases(context.Background(), owner, repoName, &github.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed retrieving releases from GitHub for (%s). Error was: %s", repoURL, err)
	}

	r := []Release{}
	for _, release := range releases {
		a := []Artifact{}
		for _, asset := range release.Assets {
			a = append(a, Artifact{
				ID:          asset.GetID(),
				Name:        asset.GetName(),
				URL:         asset.GetURL(),
				ContentType: asset.GetContentType(),
			})
		}
		r = append(r, Release{
			Name:      release.GetName(),
			Tag:       release.GetTagName(),
			Artifacts: a,
		})
	}

	return r, nil
}

// DownloadArtifact fetches the named asset of the release tagged tag into
// the local artifact cache, marks it executable, and returns its path. The
// returned path is suitable to hand directly to the sandbox.
func (g *GHManager) DownloadArtifact(repoURL, tag, name string) (string, error) {
	owner, repoName, err := splitRepo(repoURL)
	if err != nil {
		return "", err
	}
	releases, err := g.GetArtifacts(repoURL)
	if err != nil {
		return "", err
	}

	var artifact *Artifact
	for _, release := range releases {
		if release.Tag != tag {
			continue
		}
		for i := range release.Artifacts {
			if release.Artifacts[i].Name == name {
				artifact = &release.Artifacts[i]
			}
		}
	}
	if artifact == nil {
		return "", fmt.Errorf("failed to find an artifact named (%s) under tag (%s) in (%s)", name, tag, repoURL)
	}

	// passing a follow-redirects client makes the call always yield a body
	// instead of a redirect URL
	rc, _, err := g.client.Repositories.DownloadReleaseAsset(context.Background(), owner, repoName, artifact.ID, http.DefaultClient)
	if err != nil {
		return "", fmt.Errorf("failed downloading artifact (%s) from GitHub. Error was: %s", name, err)
	}
	defer rc.Close()

	cacheFp := getArtifactCacheLocation()
	if err := os.MkdirAll(cacheFp, 0777); err != nil {
		return "", fmt.Errorf("failed ensuring artifact cache location exists: %s", err)
	}
	artifactFp := filepath.Join(cacheFp, fmt.Sprintf("%d-%s", artifact.ID, name))
	f, err := os.OpenFile(artifactFp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, ArtifactFilePerms)
	if err != nil {
		return "", fmt.Errorf("failed creating artifact file in cache: %s", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, rc); err != nil {
		return "", fmt.Errorf("failed persisting artifact (%s) to cache: %s", name, err)
	}

	return artifactFp, nil
}

// splitRepo validates and splits an $ORG_NAME/$REPO_NAME repository
// reference.
func splitRepo(repoURL string) (string, string, error) {
	repo := strings.Split(repoURL, "/")
	if len(repo) < 2 {
		return "", "", fmt.Errorf("repoURL (%s) was invalid. Repository should be represented with $ORG_NAME/$REPO_NAME. For example, golang's repo would be (golang/go)", repoURL)
	}
	return repo[0], repo[1], nil
}

// getArtifactCacheLocation returns $XDG_DATA_HOME/verdict/artifacts, where
// downloaded release assets are persisted.
func getArtifactCacheLocation() string {
	return filepath.Join(xdg.DataHome, CacheDirName, CacheArtifactDirName)
}
