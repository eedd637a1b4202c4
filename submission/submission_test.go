package submission

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	testRunDir = "hack/test/run"
	commitMsg1 = "initial submission"
	tagName1   = "graded-v1"
)

func TestCommits(t *testing.T) {
	// a repository without a ref should fail rather than panic
	empty := Repository{}
	if _, err := empty.Commits(); err == nil {
		t.Log("Commits did not return an error when the repo ref was nil")
		t.Fail()
	}

	r, err := createTestRepo("repo1")
	defer cleanTestRun()
	if err != nil {
		t.Fatalf("error setting up test repo. error was: %s", err)
	}
	commits, err := r.Commits()
	if err != nil {
		t.Fatalf("error retrieving list of commits from repo: %s", err)
	}
	if len(commits) != 1 {
		t.Fatalf("commit length was wrong, expected: %d, actual: %d", 1, len(commits))
	}
	if string(commits[0].Message) != commitMsg1 {
		t.Fatalf("commit message did not match, expected: %s, actual: %s", commitMsg1, string(commits[0].Message))
	}
}

func TestTags(t *testing.T) {
	empty := Repository{}
	if _, err := empty.Tags(); err == nil {
		t.Log("Tags did not return an error when the repo ref was nil")
		t.Fail()
	}

	r, err := createTestRepo("repo2")
	defer cleanTestRun()
	if err != nil {
		t.Fatalf("error setting up test repo. error was: %s", err)
	}

	head, err := r.RepoRef.Head()
	if err != nil {
		t.Fatalf("error resolving repo head: %s", err)
	}
	if _, err := r.RepoRef.CreateTag(tagName1, head.Hash(), nil); err != nil {
		t.Fatalf("error tagging test repo: %s", err)
	}

	tags, err := r.Tags()
	if err != nil {
		t.Fatalf("error retrieving tags: %s", err)
	}
	if len(tags) != 1 {
		t.Fatalf("tag count was wrong, expected: %d, actual: %d", 1, len(tags))
	}
	if tags[0].Name != tagName1 {
		t.Logf("tag name was %q, expected %q", tags[0].Name, tagName1)
		t.Fail()
	}
	if tags[0].LastCommit != Hash(head.Hash()) {
		t.Logf("tag did not resolve to the head commit")
		t.Fail()
	}
}

func createTestRepo(name string) (*Repository, error) {
	fp := filepath.Join(testRunDir, name)
	if err := os.MkdirAll(fp, 0777); err != nil {
		return nil, err
	}
	r, err := git.PlainInit(fp, false)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(fp, "solution.txt"), []byte("42\n"), 0666); err != nil {
		return nil, err
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, err
	}
	if _, err := wt.Add("solution.txt"); err != nil {
		return nil, err
	}
	sig := &object.Signature{Name: "grader", Email: "grader@example.com", When: time.Now()}
	if _, err := wt.Commit(commitMsg1, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return nil, err
	}

	return &Repository{
		URL:     "fake-url",
		RepoRef: r,
	}, nil
}

func cleanTestRun() {
	os.RemoveAll("hack")
}
