package ingestion

// Build phases reported through ProgressFunc.
const (
	PhaseLoading    = "loading"
	PhaseCache      = "cache"
	PhaseEmbedding  = "embedding"
	PhaseFinalizing = "finalizing"
	PhaseComplete   = "complete"
)

// Progress is a single build progress report.
type Progress struct {
	Phase      string
	Message    string
	Percentage int
}

// ProgressFunc receives build progress reports. It may be nil.
type ProgressFunc func(Progress)

func (fn ProgressFunc) report(phase, message string, percentage int) {
	if fn != nil {
		fn(Progress{Phase: phase, Message: message, Percentage: percentage})
	}
}
