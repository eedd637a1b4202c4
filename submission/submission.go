// submission is a package that can retrieve submission repositories and
// inspect their history. Graders often receive work as a git repository
// rather than a bare binary; the items found here are wrappers on git that
// resolve such a repository and answer who changed what, when.
package submission

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	CacheDirName     = "verdict"
	CacheRepoDirName = "repos"
)

// Hash is a git object hash.
type Hash [20]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Person identifies a commit author or committer.
type Person struct {
	Name  string
	Email string
}

// Commit is one change in a submission's history.
type Commit struct {
	Hash      Hash
	Date      time.Time
	Committer Person
	Author    Person
	Message   []byte
}

// Tag represents a git tag on a submission, typically marking the revision
// a student asked to have graded.
type Tag struct {
	Name       string
	LastCommit Hash
}

// Repository is a resolved submission repository.
type Repository struct {
	URL     string
	RepoRef *git.Repository
}

// ResolveOpts provides instructions for how a submission repository should
// be retrieved.
type ResolveOpts struct {
	// InMemory instructs doing all retrieval in memory. Note that for
	// medium to large size repos, this can cause significant memory
	// consumption.
	InMemory bool
}

// Resolve accepts a submission repository's URL and opts for how the repo
// should be retrieved. By default it checks the cache location on the
// filesystem; a cached repo is fetched to pick up new pushes, a new one is
// cloned bare into the cache. The directory name within the cache is a
// base64 encoded representation of the url, which keeps one directory per
// distinct submission source.
//
// Set InMemory in opts to keep the clone entirely in memory instead.
func Resolve(url string, opts ...ResolveOpts) (*Repository, error) {
	conf := ResolveOpts{}
	if len(opts) > 0 {
		conf = opts[len(opts)-1]
	}
	if conf.InMemory {
		return newInMemRepo(url)
	}

	fp := filepath.Join(getCacheLocation(), getEncodedCacheName(url))
	if _, err := os.Stat(fp); err != nil {
		return newCachedRepo(url)
	}

	ref, err := git.PlainOpen(fp)
	if err != nil {
		return nil, fmt.Errorf("failed opening submission repo in cache: %s", err)
	}
	err = ref.Fetch(&git.FetchOptions{
		RemoteURL: url,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("failed checking if submission repo was up to date: %s", err)
	}
	return &Repository{
		URL:     url,
		RepoRef: ref,
	}, nil
}

// Commits provides the submission's history, newest first. If there is an
// issue retrieving the commits from the repository, an error is returned.
func (r *Repository) Commits() ([]Commit, error) {
	if r.RepoRef == nil {
		return nil, fmt.Errorf("failed to find reference to valid repo when looking up commits")
	}
	commitObjs, err := r.RepoRef.Log(&git.LogOptions{Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("failed getting commits from submission repo. Error from git: %s", err)
	}

	commits := []Commit{}
	commitObjs.ForEach(func(obj *object.Commit) error {
		commits = append(commits, Commit{
			Hash: Hash(obj.Hash),
			Date: obj.Committer.When,
			Committer: Person{
				Name:  obj.Committer.Name,
				Email: obj.Committer.Email,
			},
			Author: Person{
				Name:  obj.Author.Name,
				Email: obj.Author.Email,
			},
			Message: []byte(obj.Message),
		})
		return nil
	})

	return commits, nil
}

// Tags returns all tags on the submission repository. Tags that cannot be
// resolved to a commit are skipped rather than failing the whole listing.
func (r *Repository) Tags() ([]Tag, error) {
	if r.RepoRef == nil {
		return nil, fmt.Errorf("failed to find reference to valid repo when looking up tags")
	}
	tagRefs, err := r.RepoRef.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tags for submission repo %s. Error from git: %s", r.URL, err)
	}
	var tags []Tag
	tagRefs.ForEach(func(o *plumbing.Reference) error {
		revision := plumbing.Revision(o.Name().String())
		tagCommitHash, err := r.RepoRef.ResolveRevision(revision)
		if err != nil {
			return nil
		}
		tags = append(tags, Tag{
			Name:       o.Name().Short(),
			LastCommit: Hash(*tagCommitHash),
		})
		return nil
	})

	return tags, nil
}

// newCachedRepo clones the submission bare into the cache and returns a
// reference. If there is an issue retrieving it over the network, an error
// is returned.
func newCachedRepo(url string) (*Repository, error) {
	if err := ensureCacheDir(); err != nil {
		return nil, fmt.Errorf("failed ensuring cache location exists or creating it: %s", err)
	}
	fp := filepath.Join(getCacheLocation(), getEncodedCacheName(url))
	ref, err := git.PlainClone(fp, true, &git.CloneOptions{
		URL:        url,
		NoCheckout: true,
	})
	if err != nil {
		return nil, err
	}
	return &Repository{
		URL:     url,
		RepoRef: ref,
	}, nil
}

// newInMemRepo constructs an in-memory representation of the submission's
// git data. If there is an issue creating this representation, an error is
// returned.
func newInMemRepo(url string) (*Repository, error) {
	mStore := memory.NewStorage()
	r, err := git.Clone(mStore, nil, &git.CloneOptions{
		URL:        url,
		NoCheckout: true,
	})
	if err != nil {
		return nil, err
	}
	return &Repository{
		URL:     url,
		RepoRef: r,
	}, nil
}

// ensureCacheDir will verify that verdict's repo cache dir already exists
// and if it doesn't, create it.
func ensureCacheDir() error {
	cacheFp := getCacheLocation()
	if _, err := os.Stat(cacheFp); err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(cacheFp, 0777)
		}
		return err
	}
	return nil
}

// getCacheLocation returns $XDG_DATA_HOME/verdict/repos. This is where
// submission repositories that are cloned (cached) to the filesystem are
// stored.
func getCacheLocation() string {
	return filepath.Join(xdg.DataHome, CacheDirName, CacheRepoDirName)
}

// getEncodedCacheName takes a repo's URL and returns its representation in
// base64 encoding. This is used for creating unique cache directories when
// persisting cloned repos onto the filesystem.
func getEncodedCacheName(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}
