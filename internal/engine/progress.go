package engine

import "cipher_workbench/internal/detect"

// ProgressFn receives ordered stage notifications. Partial is non-nil from
// the classification stage onward and reflects the detector verdict known at
// that point.
type ProgressFn func(percent int, stage, detail string, partial *detect.Result)

func progress(on ProgressFn, percent int, stage, detail string) {
	progressDetected(on, percent, stage, detail, nil)
}

func progressDetected(on ProgressFn, percent int, stage, detail string, partial *detect.Result) {
	if on == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	on(percent, stage, detail, partial)
}
