package autocomplete

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/model"
)

// fakeSource answers each query from a table. Queries listed in gates block
// until their channel is closed.
type fakeSource struct {
	mu      sync.Mutex
	answers map[string][]model.Suggestion
	gates   map[string]chan struct{}
	err     error
	queries []string
}

func (f *fakeSource) Search(ctx context.Context, query string) ([]model.Suggestion, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	gate := f.gates[query]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.answers[query], nil
}

func (f *fakeSource) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func suggestions(names ...string) []model.Suggestion {
	out := make([]model.Suggestion, len(names))
	for i, n := range names {
		out[i] = model.Suggestion{ID: int64(i + 1), Description: n}
	}
	return out
}

func newTest(src *fakeSource, results chan Result) *Autocomplete {
	return New(src,
		WithDebounce(5*time.Millisecond),
		WithLogger(logger.Discard()),
		WithResultHook(func(r Result) { results <- r }),
	)
}

func waitResult(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no lookup result")
		return Result{}
	}
}

func TestInput_shortQueryNeverFetchesAndClears(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"app": suggestions("Apple")}}
	results := make(chan Result, 4)
	ac := newTest(src, results)

	ac.Input(0, "app")
	waitResult(t, results)
	if got := ac.Visible(0); len(got) != 1 {
		t.Fatalf("visible = %v", got)
	}

	for _, q := range []string{"ap", "a", "", "éé"} {
		ac.Input(0, q)
		if got := ac.Visible(0); len(got) != 0 {
			t.Errorf("Input(%q) left suggestions %v", q, got)
		}
	}
	time.Sleep(30 * time.Millisecond)
	if calls := src.calls(); len(calls) != 1 {
		t.Errorf("lookups = %v, want only the first", calls)
	}
}

func TestInput_debounceSendsLatestText(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"banana": suggestions("Banana")}}
	results := make(chan Result, 4)
	ac := New(src,
		WithDebounce(40*time.Millisecond),
		WithLogger(logger.Discard()),
		WithResultHook(func(r Result) { results <- r }),
	)

	for _, q := range []string{"ban", "bana", "banan", "banana"} {
		ac.Input(0, q)
	}
	r := waitResult(t, results)
	if r.Query != "banana" || !r.Applied {
		t.Errorf("result = %+v", r)
	}
	if calls := src.calls(); len(calls) != 1 || calls[0] != "banana" {
		t.Errorf("lookups = %v", calls)
	}
}

func TestStaleResponseDoesNotOverwrite(t *testing.T) {
	src := &fakeSource{
		answers: map[string][]model.Suggestion{
			"tom":    suggestions("Tomatillo"),
			"tomato": suggestions("Tomato", "Tomato paste"),
		},
		gates: map[string]chan struct{}{"tom": make(chan struct{})},
	}
	results := make(chan Result, 4)
	ac := newTest(src, results)

	ac.Input(0, "tom")
	// wait until the first lookup is in flight
	deadline := time.Now().Add(2 * time.Second)
	for len(src.calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	ac.Input(0, "tomato")
	newer := waitResult(t, results)
	if newer.Query != "tomato" || !newer.Applied {
		t.Fatalf("newer result = %+v", newer)
	}

	close(src.gates["tom"])
	older := waitResult(t, results)
	if older.Query != "tom" || older.Applied {
		t.Fatalf("older result = %+v, want discarded", older)
	}

	ac.ShowMore(0)
	got := ac.Visible(0)
	if len(got) != 2 || got[0].Description != "Tomato" {
		t.Errorf("visible = %v, want tomato results", got)
	}
}

func TestShowMore(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"egg": suggestions("Egg", "Egg white", "Eggplant")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	ac.Input(0, "egg")
	waitResult(t, results)

	view := ac.View()[0]
	if len(view.Suggestions) != 1 || !view.HasMore || view.ShowMore {
		t.Errorf("before show more: %+v", view)
	}
	ac.ShowMore(0)
	view = ac.View()[0]
	if len(view.Suggestions) != 3 || view.HasMore || !view.ShowMore {
		t.Errorf("after show more: %+v", view)
	}
}

func TestCommit(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"bana": suggestions("Banana")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	if err := ac.Commit(0, ""); err != nil {
		t.Errorf("empty commit: %v", err)
	}

	ac.Input(0, "bana")
	waitResult(t, results)

	if err := ac.Commit(0, "Bananaa"); !errors.Is(err, model.ErrSuggestionRejected) {
		t.Errorf("Bananaa: %v, want rejection", err)
	}
	if ac.View()[0].State != StateRejected {
		t.Errorf("state = %s", ac.View()[0].State)
	}
}

func TestCommit_caseInsensitiveMatch(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"bana": suggestions("Banana")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	ac.Input(0, "bana")
	waitResult(t, results)

	if err := ac.Commit(0, "BANANA"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ac.View()[0].State != StateAccepted {
		t.Errorf("state = %s", ac.View()[0].State)
	}
	if len(ac.Visible(0)) != 0 {
		t.Error("accepted row should have no suggestions")
	}
}

func TestCommit_reblurKeepsAcceptedName(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"Banana": suggestions("Banana")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)
	ac.AddRow()

	ac.Input(0, "Banana")
	waitResult(t, results)
	if err := ac.Commit(0, "Banana"); err != nil {
		t.Fatalf("first blur: %v", err)
	}

	ac.Focus(0)
	if err := ac.Commit(0, "Banana"); err != nil {
		t.Fatalf("second blur on the same row: %v", err)
	}

	ac.Focus(1)
	ac.Focus(0)
	if err := ac.Commit(0, "banana"); err != nil {
		t.Fatalf("blur after switching rows: %v", err)
	}
	if ac.View()[0].State != StateAccepted {
		t.Errorf("state = %s", ac.View()[0].State)
	}

	if err := ac.Commit(0, "Bananas"); !errors.Is(err, model.ErrSuggestionRejected) {
		t.Fatalf("changed name: %v", err)
	}
	if err := ac.Commit(0, "Banana"); !errors.Is(err, model.ErrSuggestionRejected) {
		t.Errorf("a rejection forgets the accepted name, got %v", err)
	}
}

func TestSelect_thenCommitAccepts(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"oni": suggestions("Onion", "Onion powder")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	ac.Input(0, "oni")
	waitResult(t, results)

	if _, err := ac.Select(0, 1); !errors.Is(err, model.ErrRowOutOfRange) {
		t.Errorf("hidden suggestion select: %v", err)
	}
	name, err := ac.Select(0, 0)
	if err != nil || name != "Onion" {
		t.Fatalf("Select = %q, %v", name, err)
	}
	if err := ac.Commit(0, name); err != nil {
		t.Errorf("commit after select: %v", err)
	}
}

func TestFocus_switchClearsPreviousRow(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"ric": suggestions("Rice")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)
	ac.AddRow()

	ac.Input(0, "ric")
	waitResult(t, results)
	if len(ac.Visible(0)) != 1 {
		t.Fatal("row 0 should show suggestions")
	}

	ac.Focus(1)
	if len(ac.Visible(0)) != 0 {
		t.Error("row 0 suggestions should be cleared after focus moves")
	}
	active := 0
	for _, v := range ac.View() {
		if v.Active {
			active++
		}
	}
	if active != 1 || !ac.View()[1].Active {
		t.Errorf("active rows = %d", active)
	}
}

func TestFocus_switchDropsPendingLookup(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{}}
	ac := New(src, WithDebounce(20*time.Millisecond), WithLogger(logger.Discard()))
	ac.AddRow()

	ac.Input(0, "salt")
	ac.Focus(1)
	time.Sleep(60 * time.Millisecond)
	if calls := src.calls(); len(calls) != 0 {
		t.Errorf("lookups = %v, want none", calls)
	}
}

func TestRemoveRow(t *testing.T) {
	src := &fakeSource{answers: map[string][]model.Suggestion{"pep": suggestions("Pepper")}}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	if err := ac.RemoveRow(0); err != nil || ac.Len() != 1 {
		t.Fatalf("removing last row: err=%v len=%d", err, ac.Len())
	}

	ac.AddRow()
	ac.Input(1, "pep")
	waitResult(t, results)
	if err := ac.RemoveRow(1); err != nil {
		t.Fatal(err)
	}
	if ac.Len() != 1 || len(ac.Visible(0)) != 0 {
		t.Errorf("after remove: len=%d visible=%v", ac.Len(), ac.Visible(0))
	}
	if err := ac.RemoveRow(5); !errors.Is(err, model.ErrRowOutOfRange) {
		t.Errorf("out of range: %v", err)
	}
}

func TestFetchError_clearsSuggestions(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	results := make(chan Result, 2)
	ac := newTest(src, results)

	ac.Input(0, "milk")
	r := waitResult(t, results)
	if r.Err == nil {
		t.Error("expected error in result")
	}
	if got := ac.Visible(0); len(got) != 0 {
		t.Errorf("visible = %v", got)
	}
	if err := ac.Commit(0, "milk"); !errors.Is(err, model.ErrSuggestionRejected) {
		t.Errorf("commit after failed lookup: %v", err)
	}
}
