package pipeline

import (
	"runtime"
	"sync"

	"cipher_workbench/internal/ingest"
)

// Analyzer runs one document's analysis. Implementations own persistence
// and reporting; the pool only provides the fan-out.
type Analyzer func(index int, doc *ingest.Document) error

// AnalyzeDocuments fans the batch out over a worker pool, one analysis per
// document, and collects the failures. Workers <= 0 means one per CPU.
func AnalyzeDocuments(docs []*ingest.Document, workers int, fn Analyzer) []error {
	if len(docs) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}

	type job struct {
		index int
		doc   *ingest.Document
	}
	jobs := make(chan job)
	errs := make(chan error, len(docs))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := fn(j.index, j.doc); err != nil {
					errs <- err
				}
			}
		}()
	}

	for i, d := range docs {
		jobs <- job{index: i, doc: d}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
