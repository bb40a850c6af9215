package pipeline

import "time"

// Status is the outcome of one stage or of a whole run.
type Status string

const (
	StatusSuccess       Status = "success"
	StatusFailed        Status = "failed"
	StatusSkipped       Status = "skipped"
	StatusQualityFailed Status = "quality_failed"
)

// StageResult describes one stage's outcome. Stages receive the previous
// result and pass through without doing work unless it was a success, so
// a failure early in the run cascades as skips rather than errors.
type StageResult struct {
	Stage    string
	Status   Status
	RowCount int
	Path     string
	Detail   string
	Err      error
	Duration time.Duration
}

// OK reports whether downstream stages should run.
func (r StageResult) OK() bool {
	return r.Status == StatusSuccess
}

func skipped(stage, reason string) StageResult {
	return StageResult{Stage: stage, Status: StatusSkipped, Detail: reason}
}

func failed(stage string, err error) StageResult {
	return StageResult{Stage: stage, Status: StatusFailed, Err: err, Detail: err.Error()}
}

// RunReport is the full outcome of one pipeline run.
type RunReport struct {
	Pipeline   string
	Key        string
	TradeDate  time.Time
	Stages     []StageResult
	Status     Status
	RowCount   int
	// SymbolCount and FailedSymbols summarize extraction; the quality
	// counters summarize validation.
	SymbolCount     int
	FailedSymbols   int
	QualityErrors   int
	QualityWarnings int
	StartedAt       time.Time
	FinishedAt      time.Time
}

// add records a stage result and folds it into the overall status.
func (r *RunReport) add(result StageResult) {
	r.Stages = append(r.Stages, result)
	switch result.Status {
	case StatusFailed:
		r.Status = StatusFailed
	case StatusQualityFailed:
		if r.Status != StatusFailed {
			r.Status = StatusQualityFailed
		}
	}
}
