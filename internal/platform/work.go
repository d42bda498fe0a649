package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gauntlet/internal/results"
	"gauntlet/internal/testdef"
	"gauntlet/pkg/logging"
)

// WorkItem is one scheduled execution of a case.
type WorkItem struct {
	Index int
	Def   testdef.Case
	Name  string
}

// Plan flattens cases into executable work items, repeating each case per
// iteration. Names get an iteration suffix only when repeating, so single
// runs keep the definition names verbatim.
func Plan(cases []testdef.Case, iterations int) []WorkItem {
	if iterations < 1 {
		iterations = 1
	}
	items := make([]WorkItem, 0, len(cases)*iterations)
	for iter := 1; iter <= iterations; iter++ {
		for _, def := range cases {
			name := def.Name
			if iterations > 1 {
				name = fmt.Sprintf("%s-iter%d", def.Name, iter)
			}
			items = append(items, WorkItem{Index: len(items), Def: def, Name: name})
		}
	}
	return items
}

type indexedResult struct {
	idx    int
	result results.CaseResult
}

// ExecutePool runs fn over items with at most workers concurrent
// executions. Results come back in item order regardless of completion
// order; one worker degenerates to serial execution.
func ExecutePool(ctx context.Context, items []WorkItem, workers int, fn func(context.Context, WorkItem) results.CaseResult) []results.CaseResult {
	if len(items) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	itemChan := make(chan WorkItem, len(items))
	resultChan := make(chan indexedResult, len(items))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for item := range itemChan {
				logging.Debug("Platform", "Worker %d running case %s", workerID, item.Name)
				resultChan <- indexedResult{idx: item.Index, result: fn(ctx, item)}
			}
		}(w)
	}

	for _, item := range items {
		itemChan <- item
	}
	close(itemChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	ordered := make([]results.CaseResult, len(items))
	for r := range resultChan {
		ordered[r.idx] = r.result
	}
	return ordered
}

// Tally summarizes case results by terminal status.
type Tally struct {
	Passed   int
	Failed   int
	Errored  int
	Skipped  int
	Duration time.Duration
}

// TallyOf counts the terminal statuses of the given results.
func TallyOf(caseResults []results.CaseResult) Tally {
	var t Tally
	for _, r := range caseResults {
		switch r.Status {
		case results.CasePassed:
			t.Passed++
		case results.CaseFailed:
			t.Failed++
		case results.CaseError:
			t.Errored++
		case results.CaseSkipped:
			t.Skipped++
		}
	}
	return t
}

// Bad reports whether any case failed or errored.
func (t Tally) Bad() bool {
	return t.Failed+t.Errored > 0
}

func (t Tally) String() string {
	return fmt.Sprintf("%d passed, %d failed, %d errored, %d skipped",
		t.Passed, t.Failed, t.Errored, t.Skipped)
}
