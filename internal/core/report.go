package core

// RunReport summarizes one build run.
type RunReport struct {
	RunID string `json:"run_id"`

	// Status is the batch status the run finished in.
	Status BatchStatus `json:"status"`

	Discovered int `json:"discovered"`
	Skipped    int `json:"skipped"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`

	// InputFiles are the rasters produced this run, in discovery order.
	InputFiles []string `json:"input_files,omitempty"`

	// PipelineSkipped is set when no new inputs were produced and the
	// external tool chain was never invoked.
	PipelineSkipped bool `json:"pipeline_skipped"`

	MergedPath string `json:"merged_path,omitempty"`
	TilesPath  string `json:"tiles_path,omitempty"`
}

// Summarize builds a report from a finished batch.
func Summarize(runID string, b *Batch) *RunReport {
	r := &RunReport{RunID: runID}
	if b == nil {
		r.Status = BatchStatusCompleted
		r.PipelineSkipped = true
		return r
	}
	r.Status = b.Status
	r.Discovered = len(b.Assets)
	for _, a := range b.Assets {
		switch {
		case a.Skipped:
			r.Skipped++
		case a.Status == AssetStatusCompleted:
			r.Downloaded++
		case a.Status == AssetStatusFailed:
			r.Failed++
		}
	}
	r.InputFiles = b.InputFiles()
	r.PipelineSkipped = len(r.InputFiles) == 0
	return r
}
