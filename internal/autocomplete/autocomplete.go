// Package autocomplete restricts ingredient names to foods found in the
// nutrition database. Each row debounces its own lookups and discards
// responses that a newer query has superseded.
package autocomplete

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/freshrecipes/studio/internal/client"
	"github.com/freshrecipes/studio/internal/logger"
	"github.com/freshrecipes/studio/internal/metrics"
	"github.com/freshrecipes/studio/internal/model"
)

const (
	DefaultDebounce = 400 * time.Millisecond
	DefaultMinQuery = 3
)

// State is where a row is in the lookup cycle.
type State string

const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateSuggested State = "suggested"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
)

// Result reports what happened to one lookup. Applied is false when the
// response arrived after a newer query for the same row.
type Result struct {
	Row     int
	Query   string
	Seq     uint64
	Applied bool
	Err     error
}

// Option configures the autocomplete.
type Option func(*Autocomplete)

func WithDebounce(d time.Duration) Option {
	return func(a *Autocomplete) {
		a.debounce = d
	}
}

// WithMinQuery sets the shortest query, in characters, that is looked up.
func WithMinQuery(n int) Option {
	return func(a *Autocomplete) {
		if n > 0 {
			a.minQuery = n
		}
	}
}

// WithResultHook is called after every lookup completes, applied or not.
func WithResultHook(fn func(Result)) Option {
	return func(a *Autocomplete) {
		a.onResult = fn
	}
}

// WithContext sets the context lookups run under.
func WithContext(ctx context.Context) Option {
	return func(a *Autocomplete) {
		a.ctx = ctx
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Autocomplete) {
		a.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Autocomplete) {
		a.metrics = m
	}
}

type rowState struct {
	text     string
	seq      uint64
	timer    *time.Timer
	set      *model.SuggestionSet
	accepted string
	state    State
	showMore bool
	removed  bool
}

// Autocomplete tracks suggestion state for every ingredient row. At most one
// row is active, and only the active row shows suggestions.
type Autocomplete struct {
	source   client.SuggestionSource
	debounce time.Duration
	minQuery int
	onResult func(Result)
	ctx      context.Context
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	rows   []*rowState
	active *rowState
}

// New starts with a single row.
func New(source client.SuggestionSource, opts ...Option) *Autocomplete {
	a := &Autocomplete{
		source:   source,
		debounce: DefaultDebounce,
		minQuery: DefaultMinQuery,
		ctx:      context.Background(),
		rows:     []*rowState{newRow()},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrDefault(a.log)
	return a
}

func newRow() *rowState {
	return &rowState{state: StateIdle}
}

// AddRow appends a row and returns its index.
func (a *Autocomplete) AddRow() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, newRow())
	return len(a.rows) - 1
}

// RemoveRow drops row i and any lookup it has in flight. The last remaining
// row cannot be removed.
func (a *Autocomplete) RemoveRow(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return err
	}
	if len(a.rows) == 1 {
		return nil
	}
	a.invalidate(r)
	r.set = nil
	r.removed = true
	if a.active == r {
		a.active = nil
	}
	a.rows = append(a.rows[:i], a.rows[i+1:]...)
	return nil
}

// Len returns the number of rows.
func (a *Autocomplete) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Focus makes row i the active row. Moving focus away from another row clears
// that row's suggestions and cancels its pending lookup.
func (a *Autocomplete) Focus(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return err
	}
	a.activate(r)
	return nil
}

// Input records new text for row i. Short queries clear suggestions at once.
// Longer ones are looked up after the debounce window, using whatever text the
// row holds when the window closes.
func (a *Autocomplete) Input(i int, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return err
	}
	a.activate(r)

	r.text = text
	a.invalidate(r)

	if utf8.RuneCountInString(text) < a.minQuery {
		r.set = nil
		r.state = StateIdle
		return nil
	}

	seq := r.seq
	r.state = StateFetching
	r.timer = time.AfterFunc(a.debounce, func() { a.fetch(r, seq) })
	return nil
}

// Commit applies the blur rule to row i's current name. Empty text is always
// accepted. Otherwise the name must match, ignoring case, a description from
// the row's last lookup or be the name the row last accepted; a mismatch
// returns model.ErrSuggestionRejected and the caller clears the field.
func (a *Autocomplete) Commit(i int, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return err
	}

	if strings.TrimSpace(name) == "" {
		r.state = StateIdle
		return nil
	}
	if r.set.Matches(name) || (r.accepted != "" && strings.EqualFold(strings.TrimSpace(name), r.accepted)) {
		a.invalidate(r)
		r.set = nil
		r.accepted = strings.TrimSpace(name)
		r.state = StateAccepted
		return nil
	}

	a.invalidate(r)
	r.text = ""
	r.accepted = ""
	r.state = StateRejected
	a.metrics.IncRejectedIngredient()
	a.log.Info("ingredient rejected", "row", i, "name", name)
	return model.ErrSuggestionRejected
}

// Select picks the visible suggestion at position idx for row i and returns
// its description. The row's suggestion list is hidden but kept, so the
// following blur accepts the name.
func (a *Autocomplete) Select(i, idx int) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return "", err
	}
	visible := a.visible(r)
	if idx < 0 || idx >= len(visible) {
		return "", fmt.Errorf("%w: suggestion %d", model.ErrRowOutOfRange, idx)
	}
	chosen := visible[idx].Description
	a.invalidate(r)
	r.text = chosen
	r.accepted = chosen
	r.state = StateAccepted
	if a.active == r {
		a.active = nil
	}
	return chosen, nil
}

// ShowMore reveals every suggestion for row i from now on.
func (a *Autocomplete) ShowMore(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return err
	}
	r.showMore = true
	return nil
}

// Visible returns the suggestions row i currently shows.
func (a *Autocomplete) Visible(i int) []model.Suggestion {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, err := a.row(i)
	if err != nil {
		return nil
	}
	return a.visible(r)
}

// RowView is the display state of one row.
type RowView struct {
	State       State              `json:"state"`
	Active      bool               `json:"active"`
	Suggestions []model.Suggestion `json:"suggestions"`
	HasMore     bool               `json:"hasMore"`
	ShowMore    bool               `json:"showMore"`
}

func (a *Autocomplete) View() []RowView {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]RowView, len(a.rows))
	for i, r := range a.rows {
		out[i] = RowView{
			State:       r.state,
			Active:      a.active == r,
			Suggestions: a.visible(r),
			HasMore:     a.active == r && !r.showMore && r.set != nil && len(r.set.Items) > 1,
			ShowMore:    r.showMore,
		}
	}
	return out
}

// Reset drops every row and starts over with one empty row.
func (a *Autocomplete) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.rows {
		a.invalidate(r)
		r.removed = true
	}
	a.rows = []*rowState{newRow()}
	a.active = nil
}

// Close stops all pending lookups.
func (a *Autocomplete) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.rows {
		a.invalidate(r)
	}
}

func (a *Autocomplete) fetch(r *rowState, seq uint64) {
	a.mu.Lock()
	if r.removed || r.seq != seq {
		a.mu.Unlock()
		return
	}
	query := r.text
	a.mu.Unlock()

	items, err := a.source.Search(a.ctx, query)

	a.mu.Lock()
	res := Result{Row: a.indexOf(r), Query: query, Seq: seq, Err: err}
	switch {
	case r.removed || r.seq != seq:
		a.metrics.IncStaleSuggestion()
	case err != nil:
		a.metrics.IncSuggestionFetch("error")
		a.log.Error("error fetching suggestions", "query", query, "error", err)
		r.set = &model.SuggestionSet{Query: query, Items: []model.Suggestion{}}
		r.state = StateIdle
		res.Applied = true
	default:
		a.metrics.IncSuggestionFetch("ok")
		r.set = &model.SuggestionSet{Query: query, Items: items}
		r.state = StateSuggested
		res.Applied = true
	}
	hook := a.onResult
	a.mu.Unlock()

	if hook != nil {
		hook(res)
	}
}

// activate must be called with the lock held.
func (a *Autocomplete) activate(r *rowState) {
	if a.active == r {
		return
	}
	if prev := a.active; prev != nil {
		a.invalidate(prev)
		prev.set = nil
		if prev.state == StateFetching || prev.state == StateSuggested {
			prev.state = StateIdle
		}
	}
	a.active = r
}

// invalidate stops the row's timer and makes any in-flight response stale.
func (a *Autocomplete) invalidate(r *rowState) {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.seq++
}

func (a *Autocomplete) visible(r *rowState) []model.Suggestion {
	if a.active != r || r.set == nil || len(r.set.Items) == 0 {
		return []model.Suggestion{}
	}
	if r.showMore {
		return append([]model.Suggestion(nil), r.set.Items...)
	}
	return []model.Suggestion{r.set.Items[0]}
}

func (a *Autocomplete) row(i int) (*rowState, error) {
	if i < 0 || i >= len(a.rows) {
		return nil, fmt.Errorf("%w: ingredient %d", model.ErrRowOutOfRange, i)
	}
	return a.rows[i], nil
}

func (a *Autocomplete) indexOf(r *rowState) int {
	for i, x := range a.rows {
		if x == r {
			return i
		}
	}
	return -1
}
