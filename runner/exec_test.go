package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pithecene-io/crier/log"
	"github.com/pithecene-io/crier/store"
)

type stubRunner struct {
	Base
	name     string
	sections []string
	buildErr error
}

func (s *stubRunner) Name() string { return s.name }

func (s *stubRunner) Build(context.Context, *Deps) ([]string, error) {
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return s.sections, nil
}

// defectiveRunner never overrides Build.
type defectiveRunner struct {
	Base
}

func (defectiveRunner) Name() string { return "Defective" }

type stubPoster struct {
	posts []string
	err   error
}

func (p *stubPoster) Post(_ context.Context, text string) error {
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, text)
	return nil
}

func envAllSet(string) string { return "true" }

func testExecutor(t *testing.T) (*Executor, *store.Store, *stubPoster) {
	t.Helper()
	s, err := store.Open(store.Config{Path: filepath.Join(t.TempDir(), "crier.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	poster := &stubPoster{}
	logger := log.NewLogger("test").WithOutput(io.Discard)
	e := &Executor{
		Store:  s,
		Poster: poster,
		Deps:   &Deps{Store: s, Log: logger},
		Log:    logger,
		Live:   true,
		Out:    io.Discard,
		Getenv: envAllSet,
	}
	return e, s, poster
}

func TestExec_PostsAndRecords(t *testing.T) {
	e, s, poster := testExecutor(t)
	r := &stubRunner{name: "Alpha", sections: []string{"headline", "body"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Outcome != OutcomePosted {
		t.Fatalf("expected posted, got %s", res.Outcome)
	}
	if len(poster.posts) != 1 || poster.posts[0] != "headline\n\nbody" {
		t.Errorf("unexpected posts: %v", poster.posts)
	}

	today := time.Now().Format(store.DateLayout)
	posted, err := s.PostedSince(t.Context(), "Alpha", time.Now().AddDate(0, 0, -1).Format(store.DateLayout))
	if err != nil {
		t.Fatalf("posted since: %v", err)
	}
	if !posted {
		t.Errorf("expected a record dated %s", today)
	}
}

func TestExec_MissingEnvIsFatal(t *testing.T) {
	e, _, poster := testExecutor(t)
	e.Getenv = func(string) string { return "" }
	r := &stubRunner{name: "Alpha", sections: []string{"x"}}

	_, err := e.Exec(t.Context(), r)
	var missingErr *MissingEnvError
	if !errors.As(err, &missingErr) {
		t.Fatalf("expected *MissingEnvError, got %v", err)
	}
	if len(missingErr.Missing) != 2 {
		t.Errorf("expected both default variables missing, got %v", missingErr.Missing)
	}
	if len(poster.posts) != 0 {
		t.Error("expected no post on missing environment")
	}
}

func TestExec_SkipsWhenPostedRecently(t *testing.T) {
	e, s, poster := testExecutor(t)
	recent := time.Now().AddDate(0, 0, -3).Format(store.DateLayout)
	if err := s.RecordPost(t.Context(), store.Post{DatePosted: recent, Runner: "Alpha", Text: "old"}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	r := &stubRunner{name: "Alpha", sections: []string{"new"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Outcome != OutcomeSkippedRecent {
		t.Fatalf("expected skipped_recent, got %s", res.Outcome)
	}
	if len(poster.posts) != 0 {
		t.Error("expected no post inside recency window")
	}
}

func TestExec_PostsAgainOutsideWindow(t *testing.T) {
	e, s, poster := testExecutor(t)
	old := time.Now().AddDate(0, 0, -20).Format(store.DateLayout)
	if err := s.RecordPost(t.Context(), store.Post{DatePosted: old, Runner: "Alpha", Text: "old"}); err != nil {
		t.Fatalf("seed post: %v", err)
	}
	r := &stubRunner{name: "Alpha", sections: []string{"fresh"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Outcome != OutcomePosted {
		t.Fatalf("expected posted, got %s", res.Outcome)
	}
	if len(poster.posts) != 1 {
		t.Errorf("expected one post, got %d", len(poster.posts))
	}
}

func TestExec_DryRunPrintsWithoutPosting(t *testing.T) {
	e, s, poster := testExecutor(t)
	e.Live = false
	var out bytes.Buffer
	e.Out = &out
	r := &stubRunner{name: "Alpha", sections: []string{"only printed"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Outcome != OutcomeDryRun {
		t.Fatalf("expected dry_run, got %s", res.Outcome)
	}
	if !strings.Contains(out.String(), "only printed") {
		t.Errorf("expected message printed, got %q", out.String())
	}
	if len(poster.posts) != 0 {
		t.Error("expected no webhook post in dry run")
	}

	posted, err := s.PostedSince(t.Context(), "Alpha", time.Now().AddDate(0, 0, -1).Format(store.DateLayout))
	if err != nil {
		t.Fatalf("posted since: %v", err)
	}
	if posted {
		t.Error("expected no record in dry run")
	}
}

func TestExec_PostFailureLoggedNotRecorded(t *testing.T) {
	e, s, poster := testExecutor(t)
	poster.err = errors.New("webhook down")
	r := &stubRunner{name: "Alpha", sections: []string{"x"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("post failure must not be fatal, got %v", err)
	}
	if res.Outcome != OutcomePostFailed {
		t.Fatalf("expected post_failed, got %s", res.Outcome)
	}

	posted, err := s.PostedSince(t.Context(), "Alpha", time.Now().AddDate(0, 0, -1).Format(store.DateLayout))
	if err != nil {
		t.Fatalf("posted since: %v", err)
	}
	if posted {
		t.Error("expected no record after failed post")
	}
}

func TestExec_NoUpdateWhenBuildIsEmpty(t *testing.T) {
	e, _, poster := testExecutor(t)
	r := &stubRunner{name: "Alpha", sections: []string{"", ""}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if res.Outcome != OutcomeNoUpdate {
		t.Fatalf("expected no_update, got %s", res.Outcome)
	}
	if len(poster.posts) != 0 {
		t.Error("expected no post for empty message")
	}
}

func TestExec_UnimplementedBuildIsFatal(t *testing.T) {
	e, _, _ := testExecutor(t)

	_, err := e.Exec(t.Context(), defectiveRunner{})
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
}

func TestExec_BuildErrorIsFatal(t *testing.T) {
	e, _, _ := testExecutor(t)
	r := &stubRunner{name: "Alpha", buildErr: errors.New("source unreachable")}

	_, err := e.Exec(t.Context(), r)
	if err == nil {
		t.Fatal("expected build error to propagate")
	}
}

func TestExec_RecencyCheckFailsOpen(t *testing.T) {
	e, s, _ := testExecutor(t)
	e.Live = false
	e.Out = io.Discard
	// A closed database makes every recency query fail; the guard must
	// fail open and let the runner proceed.
	_ = s.Close()
	r := &stubRunner{name: "Alpha", sections: []string{"still builds"}}

	res, err := e.Exec(t.Context(), r)
	if err != nil {
		t.Fatalf("expected fail-open recency, got %v", err)
	}
	if res.Outcome != OutcomeDryRun {
		t.Fatalf("expected dry_run after fail-open check, got %s", res.Outcome)
	}
}

func TestExec_CanceledContextAborts(t *testing.T) {
	e, _, _ := testExecutor(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	r := &stubRunner{name: "Alpha", sections: []string{"x"}}

	_, err := e.Exec(ctx, r)
	if err == nil {
		t.Fatal("expected error on canceled context")
	}
}
