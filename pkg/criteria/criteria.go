// Package criteria decides whether a feature flag is on for one request.
// The walk is ordered and short-circuiting: activation precedence first,
// then the config's strategies, then the optional relay, with a metric
// record emitted no matter which branch answered.
package criteria

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/relay"
	"github.com/Ramsey-B/fern/pkg/strategy"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	// ReasonSuccess is the reason reported when every check agrees.
	ReasonSuccess = "Success"

	// ReasonRelayDisagrees is the reason a VALIDATION relay reports a
	// negative verdict with.
	ReasonRelayDisagrees = "Relay does not agree"

	notifyTimeout = 10 * time.Second
)

// DomainStore is the persistence surface the engine needs for domains.
type DomainStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Domain, error)
}

// GroupStore is the persistence surface the engine needs for groups.
type GroupStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)
}

// StrategyStore lists a config's strategy documents in a stable order.
type StrategyStore interface {
	ListByConfig(ctx context.Context, configID uuid.UUID) ([]models.ConfigStrategy, error)
}

// Relayer is the relay surface the engine needs.
type Relayer interface {
	CheckPrerequisites(relay *models.ConfigRelay, environment string) error
	Validate(ctx context.Context, relay *models.ConfigRelay, entries []models.StrategyEntry, environment string) (*relay.Verdict, error)
	Notify(ctx context.Context, relay *models.ConfigRelay, entries []models.StrategyEntry, environment string)
}

// Recorder accepts evaluation records without blocking.
type Recorder interface {
	Record(record models.MetricRecord)
}

// Request carries one evaluation.
type Request struct {
	Config      *models.Config
	Environment string
	Entries     []models.StrategyEntry
	Component   string
	// BypassMetric suppresses the metric record for this evaluation.
	BypassMetric bool
}

// Result is the evaluation outcome. Message and Metadata are only set by
// a VALIDATION relay verdict.
type Result struct {
	Result   bool           `json:"result"`
	Reason   string         `json:"reason"`
	Message  string         `json:"message,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Config holds engine configuration
type Config struct {
	// MetricsEnabled globally gates evaluation metric records.
	MetricsEnabled bool
}

// Engine resolves flag evaluations.
type Engine struct {
	domains        DomainStore
	groups         GroupStore
	strategies     StrategyStore
	relays         Relayer
	recorder       Recorder
	logger         ectologger.Logger
	metricsEnabled bool
}

// NewEngine creates a criteria engine. The relayer and recorder may be nil
// when relay forwarding or metric collection is not configured.
func NewEngine(cfg Config, domains DomainStore, groups GroupStore, strategies StrategyStore, relays Relayer, recorder Recorder, logger ectologger.Logger) *Engine {
	return &Engine{
		domains:        domains,
		groups:         groups,
		strategies:     strategies,
		relays:         relays,
		recorder:       recorder,
		logger:         logger,
		metricsEnabled: cfg.MetricsEnabled,
	}
}

// Resolve evaluates the config for the environment and entries. It always
// answers with a Result; relay failures downgrade the result instead of
// erroring, so the caller can return HTTP 200 with a negative decision.
func (e *Engine) Resolve(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "CriteriaEngine.Resolve")
	defer span.End()

	start := time.Now()

	domain, group, strategies, err := e.fetch(ctx, req.Config)
	if err != nil {
		return nil, err
	}

	result := e.evaluate(ctx, req, domain, group, strategies)

	metrics.RecordEvaluation(req.Environment, result.Result, time.Since(start).Seconds())
	e.record(req, domain, group, result)
	return result, nil
}

// fetch joins the three independent reads the evaluation needs. They have
// no ordering dependency, so they are issued concurrently.
func (e *Engine) fetch(ctx context.Context, config *models.Config) (*models.Domain, *models.Group, []models.ConfigStrategy, error) {
	var (
		wg         sync.WaitGroup
		domain     *models.Domain
		group      *models.Group
		strategies []models.ConfigStrategy

		domainErr, groupErr, strategyErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		domain, domainErr = e.domains.GetByID(ctx, config.DomainID)
	}()
	go func() {
		defer wg.Done()
		group, groupErr = e.groups.GetByID(ctx, config.GroupID)
	}()
	go func() {
		defer wg.Done()
		strategies, strategyErr = e.strategies.ListByConfig(ctx, config.ID)
	}()
	wg.Wait()

	if domainErr != nil {
		return nil, nil, nil, domainErr
	}
	if groupErr != nil {
		return nil, nil, nil, groupErr
	}
	if strategyErr != nil {
		return nil, nil, nil, strategyErr
	}
	return domain, group, strategies, nil
}

func (e *Engine) evaluate(ctx context.Context, req Request, domain *models.Domain, group *models.Group, strategies []models.ConfigStrategy) *Result {
	// Activation precedence: config, then group, then domain. The first
	// disabled level wins and names the reason even when the levels above
	// it are disabled too.
	if !req.Config.Activated.Data.IsActivated(req.Environment) {
		return &Result{Result: false, Reason: "Config disabled"}
	}
	if !group.Activated.Data.IsActivated(req.Environment) {
		return &Result{Result: false, Reason: "Group disabled"}
	}
	if !domain.Activated.Data.IsActivated(req.Environment) {
		return &Result{Result: false, Reason: "Domain disabled"}
	}

	if result := e.runStrategies(ctx, req, strategies); result != nil {
		return result
	}

	result := &Result{Result: true, Reason: ReasonSuccess}
	return e.consultRelay(ctx, req, result)
}

// runStrategies walks the config's strategy documents and returns the
// first failure, or nil when every applicable strategy agrees. A document
// scoped to a different environment is invisible here, not a failure.
func (e *Engine) runStrategies(ctx context.Context, req Request, strategies []models.ConfigStrategy) *Result {
	for i := range strategies {
		doc := &strategies[i]
		if !doc.Activated.Data.IsActivatedExplicitly(req.Environment) {
			continue
		}

		entry, ok := findEntry(req.Entries, doc.Kind)
		if !ok {
			return &Result{Result: false, Reason: "Strategy '" + string(doc.Kind) + "' did not receive any input"}
		}

		agrees, err := strategy.Evaluate(doc.Kind, doc.Operation, doc.Values, entry.Input)
		if err != nil {
			// Malformed input is reported distinctly from a disagreement.
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"strategy":   doc.Kind,
				"config_key": req.Config.Key,
			}).Warn("strategy input could not be evaluated")
			return &Result{Result: false, Reason: "Strategy '" + string(doc.Kind) + "' could not be evaluated", Message: err.Error()}
		}
		if !agrees {
			return &Result{Result: false, Reason: "Strategy '" + string(doc.Kind) + "' does not agree"}
		}
	}
	return nil
}

// findEntry locates the caller-supplied entry for a strategy kind
func findEntry(entries []models.StrategyEntry, kind models.StrategyKind) (*models.StrategyEntry, bool) {
	for i := range entries {
		if entries[i].Strategy == kind {
			return &entries[i], true
		}
	}
	return nil, false
}

// consultRelay applies the config's relay, when one is active for the
// environment, to a result that passed every local check. A VALIDATION
// verdict fully replaces the local result; a NOTIFICATION call never
// changes it.
func (e *Engine) consultRelay(ctx context.Context, req Request, result *Result) *Result {
	cfgRelay := req.Config.Relay.Data
	if e.relays == nil || cfgRelay == nil || !cfgRelay.IsActive(req.Environment) {
		return result
	}

	start := time.Now()
	relayType := string(cfgRelay.Type)

	if err := e.relays.CheckPrerequisites(cfgRelay, req.Environment); err != nil {
		if cfgRelay.Type == models.RelayValidation {
			metrics.RecordRelayCall(relayType, "error", time.Since(start).Seconds())
			return &Result{Result: false, Reason: "Relay service could not be reached: " + err.Error()}
		}
		e.logger.WithContext(ctx).WithError(err).Warn("relay notification skipped")
		return result
	}

	if cfgRelay.Type == models.RelayNotification {
		// Fire-and-forget on its own context; the caller's request may
		// finish long before the relay answers.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			e.relays.Notify(ctx, cfgRelay, req.Entries, req.Environment)
		}()
		metrics.RecordRelayCall(relayType, "dispatched", time.Since(start).Seconds())
		return result
	}

	verdict, err := e.relays.Validate(ctx, cfgRelay, req.Entries, req.Environment)
	if err != nil {
		metrics.RecordRelayCall(relayType, "error", time.Since(start).Seconds())
		return &Result{Result: false, Reason: "Relay service could not be reached: " + err.Error()}
	}
	metrics.RecordRelayCall(relayType, "success", time.Since(start).Seconds())

	result.Result = verdict.Result
	if verdict.Result {
		result.Reason = ReasonSuccess
	} else {
		result.Reason = ReasonRelayDisagrees
	}
	result.Message = verdict.Message
	result.Metadata = verdict.Metadata
	return result
}

// record emits the evaluation record unless metrics are globally off, the
// caller asked to bypass, or the config disables metrics for the
// environment. The recorder never blocks and its failures never reach the
// caller.
func (e *Engine) record(req Request, domain *models.Domain, group *models.Group, result *Result) {
	if e.recorder == nil || !e.metricsEnabled {
		return
	}
	if req.BypassMetric || req.Config.MetricsDisabled(req.Environment) {
		return
	}

	entries, err := json.Marshal(req.Entries)
	if err != nil {
		entries = []byte("[]")
	}

	e.recorder.Record(models.MetricRecord{
		DomainID:    domain.ID,
		ConfigID:    req.Config.ID,
		ConfigKey:   req.Config.Key,
		GroupName:   group.Name,
		Component:   req.Component,
		Environment: req.Environment,
		Result:      result.Result,
		Reason:      result.Reason,
		Message:     result.Message,
		Entries:     string(entries),
		Date:        time.Now().UTC(),
	})
}
