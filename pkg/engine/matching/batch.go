package matching

import (
	"context"

	"lintang/mapmatchx/pkg/concurrent"
	"lintang/mapmatchx/pkg/datastructure"
)

type batchResult struct {
	id  int
	res *MatchResult
	err error
}

// MatchBatch map matching banyak trace secara paralel. setiap worker pakai Matcher sendiri,
// MapQuery harus aman dibaca dari banyak goroutine. hasil & error ke-i untuk traces[i].
func MatchBatch(ctx context.Context, mq MapQuery, cfg Config, traces [][]datastructure.Observation,
	numWorkers int, opts ...Option) ([]*MatchResult, []error) {
	results := make([]*MatchResult, len(traces))
	errs := make([]error, len(traces))
	if len(traces) == 0 {
		return results, errs
	}
	if err := cfg.Validate(); err != nil {
		for i := range errs {
			errs[i] = err
		}
		return results, errs
	}

	workers := concurrent.NewWorkerPool[concurrent.Job[[]datastructure.Observation], batchResult](numWorkers, len(traces))
	for i, tr := range traces {
		workers.AddJob(concurrent.Job[[]datastructure.Observation]{ID: i, JobItem: tr})
	}
	workers.Close()

	workers.Start(func(job concurrent.Job[[]datastructure.Observation]) batchResult {
		m, err := NewMatcher(mq, cfg, opts...)
		if err != nil {
			return batchResult{id: job.ID, err: err}
		}
		res, err := m.Match(ctx, job.JobItem)
		return batchResult{id: job.ID, res: res, err: err}
	})
	workers.Wait()

	for r := range workers.CollectResults() {
		results[r.id] = r.res
		errs[r.id] = r.err
	}
	return results, errs
}
