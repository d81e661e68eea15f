// Package orchestrator runs the hybrid retrieval pipeline: it fans the query
// out to the configured lanes under per-lane latency budgets, tolerates
// partial failure, fuses whatever came back, and always returns a
// structurally valid response.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fusesearch/fuse-search/internal/bus"
	"github.com/fusesearch/fuse-search/internal/lane"
	"github.com/fusesearch/fuse-search/internal/metrics"
	"github.com/fusesearch/fuse-search/internal/pkg/logger"
	"github.com/fusesearch/fuse-search/internal/retrieval"
)

// Fuser combines lane results into the final ranking.
type Fuser interface {
	Fuse(laneResults []retrieval.LaneResult, maxResults int) []retrieval.FusedResult
}

// Config holds the orchestrator's static settings.
type Config struct {
	// Budget is the latency budget, validated at construction.
	Budget Budget

	// Enabled marks which lanes may run at all.
	Enabled map[retrieval.Lane]bool

	// Sequential runs lanes one after another under a shared remaining
	// budget instead of in parallel. Degraded mode for constrained
	// deployments.
	Sequential bool
}

// Orchestrator coordinates lane execution and fusion.
type Orchestrator struct {
	cfg       Config
	executors map[retrieval.Lane]lane.Executor
	fuser     Fuser
	metrics   *metrics.Metrics
	bus       bus.Bus
	log       *logger.Logger

	// Single-shot lane health memory, shared across requests.
	mu     sync.Mutex
	status map[retrieval.Lane]retrieval.LaneStatus
}

// New creates an orchestrator. Metrics and bus may be nil.
func New(cfg Config, executors []lane.Executor, fuser Fuser, m *metrics.Metrics, b bus.Bus, log *logger.Logger) (*Orchestrator, error) {
	if err := cfg.Budget.Validate(); err != nil {
		return nil, fmt.Errorf("invalid latency budget: %w", err)
	}
	if fuser == nil {
		return nil, fmt.Errorf("fuser is required")
	}

	byLane := make(map[retrieval.Lane]lane.Executor, len(executors))
	for _, ex := range executors {
		byLane[ex.Lane()] = ex
	}

	status := make(map[retrieval.Lane]retrieval.LaneStatus)
	for _, l := range retrieval.AllLanes() {
		status[l] = retrieval.StatusAvailable
	}

	return &Orchestrator{
		cfg:       cfg,
		executors: byLane,
		fuser:     fuser,
		metrics:   m,
		bus:       b,
		log:       log,
		status:    status,
	}, nil
}

// Retrieve runs the full pipeline for one request. It never fails: lane
// errors degrade the response content, and only a fusion breakdown yields
// the error method.
func (o *Orchestrator) Retrieve(ctx context.Context, req retrieval.Request) *retrieval.Response {
	start := time.Now()

	active := o.activeLanes()
	if len(active) == 0 {
		o.log.Warn("no retrieval lanes available", "query_len", len(req.Query))
		resp := retrieval.EmptyResponse(retrieval.MethodNoLanesAvailable, req.MaxResults)
		resp.LatencyMs = time.Since(start).Milliseconds()
		o.observeRetrieval(ctx, resp)
		return resp
	}

	var laneResults []retrieval.LaneResult
	if o.cfg.Sequential {
		laneResults = o.runSequential(ctx, active, req)
	} else {
		laneResults = o.runParallel(ctx, active, req)
	}

	executed := make([]string, 0, len(laneResults))
	for _, lr := range laneResults {
		o.setStatus(lr.Lane, lr.Status)
		o.observeLane(ctx, lr)
		executed = append(executed, string(lr.Lane))
	}

	fused, err := o.fuse(laneResults, req.MaxResults)
	if err != nil {
		o.log.Error("result fusion failed", "error", err)
		resp := retrieval.EmptyResponse(retrieval.MethodError, req.MaxResults)
		resp.LanesExecuted = executed
		resp.LatencyMs = time.Since(start).Milliseconds()
		o.observeRetrieval(ctx, resp)
		return resp
	}

	method := retrieval.MethodOrchestratedHybrid
	if len(fused) == 0 && allLanesFailed(laneResults) {
		method = retrieval.MethodNoLanesAvailable
	}

	scores := make([]float64, len(fused))
	for i, f := range fused {
		scores[i] = f.CombinedScore
	}

	resp := &retrieval.Response{
		Sources:         fused,
		Method:          method,
		TotalResults:    len(fused),
		RelevanceScores: scores,
		Limit:           req.MaxResults,
		LanesExecuted:   executed,
		LatencyMs:       time.Since(start).Milliseconds(),
	}
	o.observeRetrieval(ctx, resp)
	return resp
}

// LaneStatuses returns a snapshot of the lane health memory.
func (o *Orchestrator) LaneStatuses() map[retrieval.Lane]retrieval.LaneStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make(map[retrieval.Lane]retrieval.LaneStatus, len(o.status))
	for l, s := range o.status {
		snapshot[l] = s
	}
	return snapshot
}

// activeLanes returns the lanes to run, in declaration order. A lane marked
// unavailable by the previous call is skipped once and reset, so the lane
// gets retried on the following request.
func (o *Orchestrator) activeLanes() []lane.Executor {
	o.mu.Lock()
	defer o.mu.Unlock()

	var active []lane.Executor
	for _, l := range retrieval.AllLanes() {
		if !o.cfg.Enabled[l] {
			continue
		}
		ex, ok := o.executors[l]
		if !ok {
			continue
		}
		if o.status[l] == retrieval.StatusUnavailable {
			o.status[l] = retrieval.StatusAvailable
			continue
		}
		active = append(active, ex)
	}
	return active
}

func (o *Orchestrator) setStatus(l retrieval.Lane, s retrieval.LaneStatus) {
	o.mu.Lock()
	o.status[l] = s
	o.mu.Unlock()
}

// runParallel launches one goroutine per lane, each bounded by its own
// budget. A slow or failing lane never blocks its siblings.
func (o *Orchestrator) runParallel(ctx context.Context, active []lane.Executor, req retrieval.Request) []retrieval.LaneResult {
	resCh := make(chan retrieval.LaneResult, len(active))
	for _, ex := range active {
		go func(ex lane.Executor) {
			resCh <- o.runLane(ctx, ex, req, o.cfg.Budget.ForLane(ex.Lane()))
		}(ex)
	}

	byLane := make(map[retrieval.Lane]retrieval.LaneResult, len(active))
	for range active {
		lr := <-resCh
		byLane[lr.Lane] = lr
	}

	// Fixed lane order keeps fusion deterministic regardless of arrival
	// order.
	results := make([]retrieval.LaneResult, 0, len(active))
	for _, ex := range active {
		results = append(results, byLane[ex.Lane()])
	}
	return results
}

// runSequential runs lanes one at a time against a shared remaining budget.
// A lane whose turn comes after the budget is spent is skipped entirely.
func (o *Orchestrator) runSequential(ctx context.Context, active []lane.Executor, req retrieval.Request) []retrieval.LaneResult {
	remaining := o.cfg.Budget.Total
	var results []retrieval.LaneResult

	for _, ex := range active {
		if remaining <= 0 {
			o.log.Warn("total budget exhausted, lane skipped", "lane", string(ex.Lane()))
			continue
		}

		budget := o.cfg.Budget.ForLane(ex.Lane())
		if budget > remaining {
			budget = remaining
		}

		start := time.Now()
		results = append(results, o.runLane(ctx, ex, req, budget))
		remaining -= time.Since(start)
	}

	return results
}

// runLane executes one lane under its budget and converts the outcome into
// a LaneResult. Panics and errors are captured, never propagated.
func (o *Orchestrator) runLane(ctx context.Context, ex lane.Executor, req retrieval.Request, budget time.Duration) retrieval.LaneResult {
	l := ex.Lane()
	lctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type outcome struct {
		out lane.Outcome
		err error
	}
	done := make(chan outcome, 1)

	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("lane panicked: %v", r)}
			}
		}()
		out, err := ex.Execute(lctx, req.Query, req.MaxResults)
		done <- outcome{out: out, err: err}
	}()

	select {
	case oc := <-done:
		elapsed := time.Since(start).Milliseconds()
		if oc.err != nil {
			if lctx.Err() != nil {
				return timeoutResult(l, budget, oc.out)
			}
			return retrieval.LaneResult{
				Lane:           l,
				Status:         retrieval.StatusUnavailable,
				Results:        []retrieval.RawResult{},
				LatencyMs:      elapsed,
				Err:            oc.err.Error(),
				BreakerTripped: oc.out.BreakerTripped,
			}
		}

		status := retrieval.StatusAvailable
		if oc.out.FallbackUsed || oc.out.BreakerTripped {
			status = retrieval.StatusDegraded
		}
		return retrieval.LaneResult{
			Lane:           l,
			Status:         status,
			Results:        oc.out.Results,
			LatencyMs:      elapsed,
			FallbackUsed:   oc.out.FallbackUsed,
			Keyless:        oc.out.Keyless,
			BreakerTripped: oc.out.BreakerTripped,
		}

	case <-lctx.Done():
		// The executor is abandoned; its context is cancelled and it will
		// unwind on its own.
		return timeoutResult(l, budget, lane.Outcome{})
	}
}

func timeoutResult(l retrieval.Lane, budget time.Duration, out lane.Outcome) retrieval.LaneResult {
	return retrieval.LaneResult{
		Lane:           l,
		Status:         retrieval.StatusTimeout,
		Results:        []retrieval.RawResult{},
		LatencyMs:      budget.Milliseconds(),
		Err:            context.DeadlineExceeded.Error(),
		BreakerTripped: out.BreakerTripped,
	}
}

// fuse runs the fusion strategy, converting a panic into an error so a bad
// result set cannot take down the request path.
func (o *Orchestrator) fuse(laneResults []retrieval.LaneResult, maxResults int) (fused []retrieval.FusedResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fusion panicked: %v", r)
		}
	}()

	start := time.Now()
	fused = o.fuser.Fuse(laneResults, maxResults)
	if elapsed := time.Since(start); elapsed > o.cfg.Budget.Fusion {
		o.log.Warn("fusion exceeded budget",
			"elapsed_ms", elapsed.Milliseconds(),
			"budget_ms", o.cfg.Budget.Fusion.Milliseconds())
	}
	return fused, nil
}

// allLanesFailed reports whether no lane completed usefully.
func allLanesFailed(laneResults []retrieval.LaneResult) bool {
	for _, lr := range laneResults {
		if lr.Status == retrieval.StatusAvailable || lr.Status == retrieval.StatusDegraded {
			return false
		}
	}
	return true
}

// observeLane emits the per-lane log line, metric, and bus event.
func (o *Orchestrator) observeLane(ctx context.Context, lr retrieval.LaneResult) {
	o.log.Info("lane completed",
		"lane", string(lr.Lane),
		"status", string(lr.Status),
		"results", len(lr.Results),
		"latency_ms", lr.LatencyMs,
		"fallback_used", lr.FallbackUsed,
		"keyless", lr.Keyless,
		"breaker_tripped", lr.BreakerTripped)

	if o.metrics != nil {
		provider := ""
		if len(lr.Results) > 0 {
			provider = lr.Results[0].Meta.Provider
		}
		o.metrics.ObserveLane(
			string(lr.Lane),
			provider,
			string(lr.Status),
			lr.FallbackUsed,
			lr.Keyless,
			lr.Status == retrieval.StatusTimeout,
			lr.LatencyMs,
		)
	}

	if o.bus != nil {
		event := bus.NewEvent(bus.TopicLaneCompleted, map[string]any{
			"lane":            string(lr.Lane),
			"status":          string(lr.Status),
			"results":         len(lr.Results),
			"latency_ms":      lr.LatencyMs,
			"fallback_used":   lr.FallbackUsed,
			"keyless":         lr.Keyless,
			"breaker_tripped": lr.BreakerTripped,
		})
		if err := o.bus.Publish(ctx, bus.TopicLaneCompleted, event); err != nil {
			o.log.Warn("lane event publish failed", "error", err)
		}
	}
}

// observeRetrieval emits the end-to-end log line, metric, and bus event.
func (o *Orchestrator) observeRetrieval(ctx context.Context, resp *retrieval.Response) {
	o.log.Info("retrieval completed",
		"method", resp.Method,
		"total_results", resp.TotalResults,
		"lanes", resp.LanesExecuted,
		"latency_ms", resp.LatencyMs)

	if o.metrics != nil {
		o.metrics.ObserveRetrieval(resp.Method, resp.LatencyMs)
	}

	if o.bus != nil {
		event := bus.NewEvent(bus.TopicRetrievalPerformed, map[string]any{
			"method":        resp.Method,
			"total_results": resp.TotalResults,
			"lanes":         resp.LanesExecuted,
			"latency_ms":    resp.LatencyMs,
		})
		if err := o.bus.Publish(ctx, bus.TopicRetrievalPerformed, event); err != nil {
			o.log.Warn("retrieval event publish failed", "error", err)
		}
	}
}
