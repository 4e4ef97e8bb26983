// Package validate decides whether tracked items have completed installation,
// combining file-existence checks with simple and complex property-list
// validation. Single-item validation is a pure dispatch; batch validation
// runs with bounded concurrency.
package validate

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/msageha/installwatch/internal/document"
	"github.com/msageha/installwatch/internal/model"
)

// DefaultWorkers bounds concurrent validations in a batch.
const DefaultWorkers = 4

// ResultKind names the check that produced a Result.
type ResultKind string

const (
	KindFileExistence          ResultKind = "file_existence"
	KindPlistValidation        ResultKind = "plist_validation"
	KindComplexPlistValidation ResultKind = "complex_plist_validation"
)

// Result is the output of validating one item. It is not persisted; callers
// consume it immediately.
type Result struct {
	ItemID string
	Valid  bool
	Kind   ResultKind
	Detail string
}

// Validator orchestrates per-item validation against a shared document cache.
type Validator struct {
	cache   *document.Cache
	sources []model.PlistSource
	workers int64
	logger  zerolog.Logger

	// statFile is swappable for tests.
	statFile func(path string) bool
}

// New creates a Validator. workers <= 0 selects DefaultWorkers.
func New(cache *document.Cache, sources []model.PlistSource, workers int, logger zerolog.Logger) *Validator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Validator{
		cache:   cache,
		sources: sources,
		workers: int64(workers),
		logger:  logger.With().Str("component", "validator").Logger(),
		statFile: func(path string) bool {
			_, err := os.Stat(path)
			return err == nil
		},
	}
}

// ValidateItem dispatches the check appropriate for the item: a configured
// plist key wins, then membership in a complex plist source, then plain file
// existence. Failures degrade to Valid=false, never an error.
func (v *Validator) ValidateItem(item model.Item) Result {
	if item.PlistKey != "" {
		return v.validatePlistKey(item)
	}
	if src, ok := v.matchingSource(item); ok {
		return v.validateComplexSource(item, src)
	}
	return v.validateExistence(item)
}

// validatePlistKey checks item.PlistKey against each candidate path in order,
// returning on the first path whose document and key both resolve. The item
// fails only when no path yields a resolvable key.
func (v *Validator) validatePlistKey(item model.Item) Result {
	for _, path := range item.Paths {
		doc, ok := v.cache.Get(path)
		if !ok {
			continue
		}
		if _, resolved := document.Resolve(doc, item.PlistKey); !resolved {
			continue
		}
		valid := document.Evaluate(doc, item.PlistKey, item.Evaluation, item.ExpectedValue)
		return Result{ItemID: item.ID, Valid: valid, Kind: KindPlistValidation, Detail: path}
	}
	return Result{ItemID: item.ID, Valid: false, Kind: KindPlistValidation, Detail: "key unresolved on all paths"}
}

// validateComplexSource requires every critical key of the source to resolve
// to one of the success values. A wildcard segment short-circuits its key to
// success without evaluating the remainder; this mirrors the established
// behavior and is pinned by tests.
func (v *Validator) validateComplexSource(item model.Item, src model.PlistSource) Result {
	doc, ok := v.cache.Get(src.Path)
	if !ok {
		return Result{ItemID: item.ID, Valid: false, Kind: KindComplexPlistValidation, Detail: "source document unavailable"}
	}

	for _, key := range src.CriticalKeys {
		if strings.Contains(key, "*") {
			continue
		}
		resolved, found := document.Resolve(doc, key)
		if !found {
			return Result{ItemID: item.ID, Valid: false, Kind: KindComplexPlistValidation, Detail: "missing key " + key}
		}
		if len(src.SuccessValues) > 0 && !containsString(src.SuccessValues, resolved.Stringify()) {
			return Result{ItemID: item.ID, Valid: false, Kind: KindComplexPlistValidation, Detail: "unexpected value for " + key}
		}
	}
	return Result{ItemID: item.ID, Valid: true, Kind: KindComplexPlistValidation, Detail: src.Path}
}

// validateExistence passes when any candidate path exists on disk.
func (v *Validator) validateExistence(item model.Item) Result {
	for _, path := range item.Paths {
		if v.statFile(path) {
			return Result{ItemID: item.ID, Valid: true, Kind: KindFileExistence, Detail: path}
		}
	}
	return Result{ItemID: item.ID, Valid: false, Kind: KindFileExistence}
}

// matchingSource returns the first configured plist source whose path appears
// among the item's candidate paths.
func (v *Validator) matchingSource(item model.Item) (model.PlistSource, bool) {
	for _, src := range v.sources {
		if item.HasPath(src.Path) {
			return src, true
		}
	}
	return model.PlistSource{}, false
}

// ValidateBatch validates every item with bounded concurrency. The document
// cache is pre-warmed with each unique plist path referenced across the batch
// before any worker dispatches. onProgress, when non-nil, is invoked as
// results land with the running completed count; onDone, when non-nil,
// receives the full result map. The call blocks until all items finish.
func (v *Validator) ValidateBatch(ctx context.Context, items []model.Item, onProgress func(completed, total int), onDone func(map[string]bool)) map[string]bool {
	v.cache.Warm(v.referencedDocPaths(items))

	var (
		mu      sync.Mutex
		results = make(map[string]bool, len(items))
		done    int
		wg      sync.WaitGroup
		sem     = semaphore.NewWeighted(v.workers)
	)

	total := len(items)
	for _, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: record remaining items as not valid.
			mu.Lock()
			if _, exists := results[item.ID]; !exists {
				results[item.ID] = false
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(it model.Item) {
			defer wg.Done()
			defer sem.Release(1)

			res := v.ValidateItem(it)

			mu.Lock()
			results[it.ID] = res.Valid
			done++
			completed := done
			mu.Unlock()

			if onProgress != nil {
				onProgress(completed, total)
			}
		}(item)
	}

	wg.Wait()

	if onDone != nil {
		onDone(results)
	}
	return results
}

// referencedDocPaths collects every document path a batch can touch: paths of
// items with a plist key, plus any source path that a batch item references.
func (v *Validator) referencedDocPaths(items []model.Item) []string {
	var paths []string
	for _, item := range items {
		if item.PlistKey != "" {
			paths = append(paths, item.Paths...)
			continue
		}
		if src, ok := v.matchingSource(item); ok {
			paths = append(paths, src.Path)
		}
	}
	return paths
}

func containsString(list []string, s string) bool {
	for _, el := range list {
		if el == s {
			return true
		}
	}
	return false
}
