package ingestion

import (
	"math"
	"slices"
	"sync"
	"time"
)

// Status is the lifecycle state of an ingestion run.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Progress is a point-in-time copy of a run's counters.
type Progress struct {
	Total     int
	Processed int
	Enriched  int
	Embedded  int
	Status    Status
	Errors    []string
	StartTime time.Time

	// ElapsedSeconds is rounded to one decimal. Zero before a run starts.
	ElapsedSeconds float64
	// EstimatedRemainingSeconds extrapolates the current rate. Only
	// meaningful when HasEstimate is true.
	EstimatedRemainingSeconds float64
	HasEstimate               bool
}

// Percent returns Processed as a share of Total in [0,100].
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return math.Min(100, float64(p.Processed)/float64(p.Total)*100)
}

// ProgressTracker holds the live counters of one ingestion run.
// Writers and readers may run concurrently.
type ProgressTracker struct {
	mu        sync.Mutex
	total     int
	processed int
	enriched  int
	embedded  int
	status    Status
	errors    []string
	startTime time.Time
	now       func() time.Time
}

// NewProgressTracker creates an idle tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{status: StatusIdle, now: time.Now}
}

// Reset starts a new run of total items.
func (p *ProgressTracker) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.processed = 0
	p.enriched = 0
	p.embedded = 0
	p.status = StatusProcessing
	p.errors = nil
	p.startTime = p.now()
}

// AddProcessed records n items that reached a final outcome.
func (p *ProgressTracker) AddProcessed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed += n
}

// AddEnriched records n classified items.
func (p *ProgressTracker) AddEnriched(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enriched += n
}

// AddEmbedded records n embedded items.
func (p *ProgressTracker) AddEmbedded(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.embedded += n
}

// AddError records a soft error message.
func (p *ProgressTracker) AddError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, msg)
}

// SetStatus moves the run to status.
func (p *ProgressTracker) SetStatus(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Errors returns a copy of the recorded soft errors.
func (p *ProgressTracker) Errors() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.errors)
}

// Snapshot returns a consistent copy of the counters with derived timings.
func (p *ProgressTracker) Snapshot() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Progress{
		Total:     p.total,
		Processed: p.processed,
		Enriched:  p.enriched,
		Embedded:  p.embedded,
		Status:    p.status,
		Errors:    slices.Clone(p.errors),
		StartTime: p.startTime,
	}
	if p.startTime.IsZero() {
		return snap
	}

	elapsed := p.now().Sub(p.startTime).Seconds()
	snap.ElapsedSeconds = round1(elapsed)
	if p.processed > 0 && elapsed > 0 {
		rate := float64(p.processed) / elapsed
		snap.EstimatedRemainingSeconds = round1(math.Max(0, float64(p.total-p.processed)/rate))
		snap.HasEstimate = true
	}
	return snap
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
