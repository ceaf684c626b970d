package assessment

import (
	"sync"

	"github.com/clinimetric/clinimetric/internal/domain/catalog"
)

// AnalyzerFunc derives a non-scored qualitative classification from one
// recorded response. The boolean reports whether the response produced a
// classification at all.
type AnalyzerFunc func(resp RecordedResponse) (Analysis, bool)

type analysisKey struct {
	scaleCode  string
	itemNumber int
}

// AnalysisRegistry maps (scale, item) to an analyzer. It is the extension
// point for per-scale analyses: new classifiers register here without
// touching the scoring engine.
type AnalysisRegistry struct {
	mu  sync.RWMutex
	fns map[analysisKey]AnalyzerFunc
}

func NewAnalysisRegistry() *AnalysisRegistry {
	return &AnalysisRegistry{fns: make(map[analysisKey]AnalyzerFunc)}
}

// Register attaches an analyzer to one item of one scale. A second
// registration for the same key replaces the first.
func (r *AnalysisRegistry) Register(scaleCode string, itemNumber int, fn AnalyzerFunc) {
	r.mu.Lock()
	r.fns[analysisKey{scaleCode, itemNumber}] = fn
	r.mu.Unlock()
}

// apply runs every analyzer registered for the scale against the recorded
// responses, in item order. Analyzers never alter scores.
func (r *AnalysisRegistry) apply(d *catalog.ScaleDefinition, rs ResponseSet) []Analysis {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Analysis
	for n := 1; n <= d.ItemCount; n++ {
		fn, ok := r.fns[analysisKey{d.Code, n}]
		if !ok {
			continue
		}
		resp, ok := rs.Responses[n]
		if !ok {
			continue
		}
		if a, ok := fn(resp); ok {
			a.ItemNumber = n
			out = append(out, a)
		}
	}
	return out
}

// RegisterDefaultAnalyzers seeds the analyzers shipped with the service.
// Currently: the sleep-pattern subtype read off item 2 of the insomnia
// severity scale.
func RegisterDefaultAnalyzers(r *AnalysisRegistry) {
	r.Register("isi", 2, func(resp RecordedResponse) (Analysis, bool) {
		var subtype string
		switch {
		case resp.Score == 0:
			subtype = "preserved sleep maintenance"
		case resp.Score <= 2:
			subtype = "fragmented sleep"
		default:
			subtype = "severe sleep-maintenance insomnia"
		}
		return Analysis{Name: "sleep_pattern", Value: subtype}, true
	})
}
