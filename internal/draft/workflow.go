// Package draft holds a pending recipe between extraction and saving.
//
// A Workflow moves through
//
//	idle -> extracting -> extracted | failed
//	extracting -> idle (manual entry)
//	extracted -> saving -> saved
//	extracted | failed | saved -> idle
//
// Each extraction is tagged with a sequence number; a response that arrives
// after a newer extraction or a switch to manual entry is dropped.
package draft

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"cookbookindex/internal/capture"
	"cookbookindex/internal/extract"
	"cookbookindex/internal/recipe"
)

// State is the lifecycle position of a Workflow.
type State int

const (
	Idle State = iota
	Extracting
	Extracted
	Failed
	Saving
	Saved
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Extracted:
		return "extracted"
	case Failed:
		return "failed"
	case Saving:
		return "saving"
	case Saved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mode selects where the title and ingredients come from on save.
type Mode int

const (
	// Photo uses the extracted draft.
	Photo Mode = iota
	// Manual uses the typed title and ingredient text.
	Manual
)

var (
	// ErrNoRecipeFound means the gateway answered but found no title.
	ErrNoRecipeFound = errors.New("couldn't extract a recipe from that image; try a clearer photo or enter it manually")
	// ErrExtractionFailed means the extraction request itself failed.
	ErrExtractionFailed = errors.New("error extracting recipe; please try again")
	// ErrStale means a newer extraction or manual entry started before this
	// extraction finished.
	ErrStale = errors.New("extraction superseded by a newer upload or manual entry")
	// ErrSaveFailed means the recipe could not be persisted.
	ErrSaveFailed = errors.New("error saving recipe; please try again")
	// ErrBusy means a save is in flight.
	ErrBusy = errors.New("a save is already in progress")
)

// Extractor calls the extraction endpoint.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (extract.Result, error)
}

// Saver persists a finished recipe.
type Saver interface {
	CreateRecipe(ctx context.Context, r recipe.NewRecipe) (*recipe.Recipe, error)
}

// Workflow is the single draft slot of an add-recipe session.
type Workflow struct {
	extractor Extractor
	saver     Saver

	mu      sync.Mutex
	state   State
	mode    Mode
	seq     uint64
	draft   *extract.Result
	fields  fields
	capture capture.Options
}

type fields struct {
	title       string
	ingredients string
	cookbook    string
	page        string
}

// New creates an idle Workflow.
func New(extractor Extractor, saver Saver) *Workflow {
	return &Workflow{extractor: extractor, saver: saver}
}

// SetCaptureOptions configures how files are encoded by ExtractFile.
func (w *Workflow) SetCaptureOptions(opts capture.Options) {
	w.mu.Lock()
	w.capture = opts
	w.mu.Unlock()
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a copy of the extracted draft, if there is one.
func (w *Workflow) Draft() (extract.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.draft == nil {
		return extract.Result{}, false
	}
	return extract.Result{Title: w.draft.Title, Ingredients: slices.Clone(w.draft.Ingredients)}, true
}

// Begin starts a new extraction: any previous draft is cleared and the
// returned sequence number identifies this request.
func (w *Workflow) Begin() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Saving {
		return 0, ErrBusy
	}
	w.seq++
	w.mode = Photo
	w.draft = nil
	w.state = Extracting
	return w.seq, nil
}

// Complete records the outcome of extraction seq. Responses from any
// extraction older than the latest Begin return ErrStale and change nothing.
func (w *Workflow) Complete(seq uint64, result extract.Result, err error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.seq || w.state != Extracting {
		return ErrStale
	}
	switch {
	case err != nil:
		w.state = Failed
		return fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	case !result.Found():
		w.state = Failed
		return ErrNoRecipeFound
	}

	w.draft = &extract.Result{Title: result.Title, Ingredients: slices.Clone(result.Ingredients)}
	if w.draft.Ingredients == nil {
		w.draft.Ingredients = []string{}
	}
	w.state = Extracted
	return nil
}

// ExtractDocument runs one extraction for an already encoded document.
func (w *Workflow) ExtractDocument(ctx context.Context, doc extract.Document) (extract.Result, error) {
	seq, err := w.Begin()
	if err != nil {
		return extract.Empty(), err
	}
	result, err := w.extractor.Extract(ctx, doc)
	if err := w.Complete(seq, result, err); err != nil {
		return extract.Empty(), err
	}
	return result, nil
}

// ExtractFile encodes the file at path and extracts it. A file that cannot
// be read leaves the workflow untouched.
func (w *Workflow) ExtractFile(ctx context.Context, path string) (extract.Result, error) {
	w.mu.Lock()
	opts := w.capture
	w.mu.Unlock()

	doc, err := capture.EncodeFile(path, opts)
	if err != nil {
		return extract.Empty(), err
	}
	return w.ExtractDocument(ctx, doc)
}

// EnterManual switches to manual entry, bypassing extraction. An extraction
// still in flight is cancelled: its response will be stale.
func (w *Workflow) EnterManual(title, ingredients string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Extracting {
		w.seq++
		w.state = Idle
	}
	w.mode = Manual
	w.fields.title = title
	w.fields.ingredients = ingredients
}

// SetMetadata sets the cookbook name and page number.
func (w *Workflow) SetMetadata(cookbook, page string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.fields.cookbook = cookbook
	w.fields.page = page
}

// Pending returns the recipe that Save would persist.
func (w *Workflow) Pending() recipe.NewRecipe {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pendingLocked()
}

func (w *Workflow) pendingLocked() recipe.NewRecipe {
	nr := recipe.NewRecipe{
		Cookbook: strings.TrimSpace(w.fields.cookbook),
		Page:     strings.TrimSpace(w.fields.page),
	}
	if w.mode == Manual {
		nr.Title = strings.TrimSpace(w.fields.title)
		nr.Ingredients = ParseIngredients(w.fields.ingredients)
		return nr
	}
	if w.draft != nil && w.state == Extracted {
		nr.Title = w.draft.Title
		nr.Ingredients = slices.Clone(w.draft.Ingredients)
	}
	if nr.Ingredients == nil {
		nr.Ingredients = []string{}
	}
	return nr
}

// Save validates and persists the pending recipe. Validation failures return
// a *recipe.ValidationError without calling the Saver. On success the draft
// and fields are reset.
func (w *Workflow) Save(ctx context.Context) (*recipe.Recipe, error) {
	w.mu.Lock()
	if w.state == Saving {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	nr := w.pendingLocked()
	if err := nr.Validate(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	prev := w.state
	w.state = Saving
	w.mu.Unlock()

	saved, err := w.saver.CreateRecipe(ctx, nr)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = prev
		var verr *recipe.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		return nil, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	w.draft = nil
	w.fields = fields{}
	w.mode = Photo
	w.state = Saved
	return saved, nil
}

// Discard drops the draft and returns to idle. Typed fields are kept.
func (w *Workflow) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == Saving {
		return ErrBusy
	}
	w.draft = nil
	w.state = Idle
	return nil
}

// ParseIngredients splits free text into ingredients: one per line, trimmed,
// blank lines dropped, order kept.
func ParseIngredients(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			out = append(out, s)
		}
	}
	return out
}
