package services

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/core/ports/driving"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

const tracerName = "github.com/arah-ai/arah/internal/core/services"

// AnswerDeps wires the pipeline stages. Router, Mentions, Retriever and
// Synthesizer are required. A nil Analytics disables the structured branch;
// a nil Polisher returns deterministic structured text unchanged.
type AnswerDeps struct {
	Router      *IntentRouter
	Mentions    *MentionResolver
	Analytics   *AnalyticsEngine
	Polisher    *Polisher
	Retriever   *HybridRetriever
	Synthesizer *Synthesizer
	Metrics     driven.MetricsSink

	// Tracer defaults to the global otel tracer provider.
	Tracer trace.Tracer
}

// AnswerService runs one query through safety, mentions, routing, the
// structured or semantic branch and metrics emission.
type AnswerService struct {
	router      *IntentRouter
	mentions    *MentionResolver
	analytics   *AnalyticsEngine
	polisher    *Polisher
	retriever   *HybridRetriever
	synthesizer *Synthesizer
	metrics     driven.MetricsSink
	tracer      trace.Tracer
}

// NewAnswerService creates the answer pipeline.
func NewAnswerService(deps AnswerDeps) (*AnswerService, error) {
	switch {
	case deps.Router == nil:
		return nil, errors.New("answer service requires an intent router")
	case deps.Mentions == nil:
		return nil, errors.New("answer service requires a mention resolver")
	case deps.Retriever == nil:
		return nil, errors.New("answer service requires a retriever")
	case deps.Synthesizer == nil:
		return nil, errors.New("answer service requires a synthesizer")
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &AnswerService{
		router:      deps.Router,
		mentions:    deps.Mentions,
		analytics:   deps.Analytics,
		polisher:    deps.Polisher,
		retriever:   deps.Retriever,
		synthesizer: deps.Synthesizer,
		metrics:     deps.Metrics,
		tracer:      tracer,
	}, nil
}

// request is the per-call state threaded through the branches.
type request struct {
	userID    string
	requestID string
	query     string
	route     domain.IntentRoute
	hasDocs   bool
	mentions  domain.MentionResolution
	flow      *domain.RequestFlow
	timings   domain.StageTimings
}

// advance moves the flow forward. An illegal transition is a programming
// error; it is logged and the request continues.
func (r *request) advance(next domain.RequestState) {
	if _, err := r.flow.Advance(next); err != nil {
		logger.Warn("request %s: %v", r.requestID, err)
	}
}

// Answer implements driving.AnswerService.
func (s *AnswerService) Answer(ctx context.Context, userID, query, requestID string) domain.AnswerEnvelope {
	if requestID == "" {
		requestID = "-"
	}
	ctx, span := s.tracer.Start(ctx, "arah.answer", trace.WithAttributes(
		attribute.String("arah.request_id", requestID),
		attribute.String("arah.user_id", userID),
	))
	defer span.End()

	logger.Section("Answer")
	req := newRequest(userID, query, requestID)
	env := s.handle(ctx, req)
	logger.Debug("request %s finished in state %s via %v", requestID, req.flow.State(), req.flow.History())

	span.SetAttributes(
		attribute.String("arah.pipeline", string(env.Meta.Pipeline)),
		attribute.String("arah.mode", env.Meta.Mode),
		attribute.String("arah.intent_route", string(env.Meta.IntentRoute)),
		attribute.String("arah.validation", string(env.Meta.Validation)),
		attribute.Int("arah.status_code", env.Meta.StatusCode),
		attribute.Int("arah.sources", len(env.Sources)),
	)
	if env.Meta.StatusCode >= 500 {
		span.SetStatus(codes.Error, string(env.Meta.Validation))
	}

	s.emit(ctx, req, env)
	return env
}

func newRequest(userID, query, requestID string) *request {
	return &request{
		userID:    userID,
		requestID: requestID,
		query:     strings.TrimSpace(query),
		flow:      domain.NewRequestFlow(),
	}
}

// handle runs the pipeline and completes the envelope meta. A panic in any
// stage becomes a failed envelope.
func (s *AnswerService) handle(ctx context.Context, req *request) domain.AnswerEnvelope {
	env := s.recovered(ctx, req)
	env.Normalize(domain.PipelineRAGSemantic)
	if len(env.Meta.ReferencedDocuments) == 0 {
		env.Meta.ReferencedDocuments = append([]string{}, req.mentions.ResolvedTitles...)
	}
	if len(env.Meta.UnresolvedMentions) == 0 {
		env.Meta.UnresolvedMentions = append([]string{}, req.mentions.Unresolved...)
	}
	env.Answer = appendUnresolvedNote(env.Answer, req.mentions.Unresolved)
	env.Meta.StageTimings.RouteMs = req.timings.RouteMs
	env.Meta.StageTimings.StructuredMs = req.timings.StructuredMs
	return env
}

func (s *AnswerService) recovered(ctx context.Context, req *request) (env domain.AnswerEnvelope) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("request %s: panic in %s: %v\n%s", req.requestID, req.flow.State(), r, debug.Stack())
			req.advance(domain.StateFailed)
			env = domain.AnswerEnvelope{Answer: busyAnswer, Meta: domain.AnswerMeta{
				Pipeline:    domain.PipelineRAGSemantic,
				IntentRoute: req.route,
				Validation:  domain.ValidationFailedFallback,
				StatusCode:  500,
			}}
		}
	}()
	return s.run(ctx, req)
}

// run walks the request state machine and returns the unnormalized envelope.
// Every terminal transition is recorded at the point that decides it.
func (s *AnswerService) run(ctx context.Context, req *request) domain.AnswerEnvelope {
	started := time.Now()

	safety := ClassifySafety(req.query)
	req.advance(domain.StateSafetyChecked)
	if safety.Decision.IsGuard() {
		logger.Debug("safety %s: %s", safety.Decision, safety.Reason)
		req.timings.RouteMs = time.Since(started).Milliseconds()
		req.advance(domain.StateGuardShortCircuit)
		return GuardResponse(safety.Decision)
	}

	clean, mentions := ExtractMentions(req.query)
	if clean != "" {
		req.query = clean
	}
	req.mentions = s.mentions.Resolve(ctx, req.userID, mentions)
	req.advance(domain.StateMentionsResolved)
	if req.mentions.HasAmbiguity() {
		req.timings.RouteMs = time.Since(started).Milliseconds()
		req.advance(domain.StateAnswered)
		return AmbiguousResponse(req.mentions.Ambiguous)
	}

	req.hasDocs = s.mentions.HasDocuments(ctx, req.userID)

	routeStarted := time.Now()
	decision := s.router.Route(ctx, req.query)
	req.route = decision.Route
	req.timings.RouteMs = time.Since(routeStarted).Milliseconds()
	logger.Stage("route", time.Since(routeStarted))
	req.advance(domain.StateRouteResolved)

	if req.route == domain.RouteOutOfDomain {
		req.advance(domain.StateAnswered)
		return OutOfDomainResponse(req.route)
	}

	if req.route == domain.RouteAnalyticalTabular && req.hasDocs && s.analytics != nil {
		structuredStarted := time.Now()
		req.advance(domain.StateStructuredAttempted)
		env, ok := s.structured(ctx, req)
		req.timings.StructuredMs = time.Since(structuredStarted).Milliseconds()
		logger.Stage("structured", time.Since(structuredStarted))
		if ok {
			return env
		}
	}

	optimized := s.retriever.UseOptimized(req.userID, req.requestID, req.query)
	req.advance(domain.StateSemanticAttempted)
	return s.semantic(ctx, req, optimized)
}

// structured runs the analytics branch. ok is false when the request
// should fall through to semantic retrieval.
func (s *AnswerService) structured(ctx context.Context, req *request) (domain.AnswerEnvelope, bool) {
	ctx, span := s.tracer.Start(ctx, "arah.structured")
	defer span.End()

	res := s.analytics.Run(ctx, req.userID, req.query, req.mentions.ResolvedDocIDs)
	span.SetAttributes(
		attribute.String("arah.doc_type", string(res.DocType)),
		attribute.Int("arah.facts_returned", res.Stats.Returned),
	)

	strict := IsStrictTranscriptQuery(req.query, res.DocType)
	mode := domain.MetaModeStructuredSchedule
	answerMode := domain.AnswerModeFactual
	if res.DocType == domain.DocTypeTranscript {
		mode = domain.MetaModeStructuredTranscript
		answerMode = ClassifyTranscriptAnswerMode(req.query)
	}
	stats := res.Stats
	meta := domain.AnswerMeta{
		Mode:           mode,
		Pipeline:       domain.PipelineStructured,
		IntentRoute:    req.route,
		AnswerMode:     answerMode,
		AnalyticsStats: &stats,
		StageTimings:   domain.StageTimings{RetrievalMs: stats.LatencyMs},
	}

	if !res.OK {
		if !strict {
			logger.Debug("structured branch found no rows (%s), falling through", res.Reason)
			return domain.AnswerEnvelope{}, false
		}
		meta.Validation = domain.ValidationStrictNoFallback
		req.advance(domain.StateAnswered)
		return domain.AnswerEnvelope{Answer: res.Answer, Sources: res.Sources, Meta: meta}, true
	}

	answer := strings.TrimSpace(res.Answer)
	if answer == "" {
		answer = rowsNotFound
	}
	switch {
	case strict:
		meta.Validation = domain.ValidationSkippedStrict
	case s.polisher == nil:
		meta.Validation = domain.ValidationSkipped
	default:
		polished := s.polisher.Polish(ctx, req.query, answer, res.Facts, res.DocType, answerMode)
		answer = polished.Answer
		meta.Validation = polished.Validation
	}
	req.advance(domain.StateAnswered)
	return domain.AnswerEnvelope{Answer: answer, Sources: res.Sources, Meta: meta}, true
}

// semantic runs retrieval, the grounding check and synthesis. A failed
// optimized attempt is retried once on the default plan when legacy fallback
// is on; configuration failures are never retried.
func (s *AnswerService) semantic(ctx context.Context, req *request, optimized bool) domain.AnswerEnvelope {
	ctx, span := s.tracer.Start(ctx, "arah.semantic", trace.WithAttributes(attribute.Bool("arah.optimized", optimized)))
	defer span.End()

	meta := domain.AnswerMeta{
		Pipeline:    domain.PipelineRAGSemantic,
		IntentRoute: req.route,
		AnswerMode:  domain.AnswerModeFactual,
		Optimized:   optimized,
	}

	retrievalStarted := time.Now()
	retrieval, err := s.retriever.Retrieve(ctx, RetrievalRequest{
		UserID:       req.userID,
		RequestID:    req.requestID,
		Query:        req.query,
		Route:        req.route,
		HasDocuments: req.hasDocs,
		DocIDs:       req.mentions.ResolvedDocIDs,
		Optimized:    optimized,
	})
	logger.Stage("retrieval", time.Since(retrievalStarted))
	meta.Mode = string(retrieval.Mode)
	if req.route == domain.RouteSemanticPolicy {
		meta.Mode = domain.MetaModeSemanticPolicy
	}
	if err != nil {
		logger.Warn("retrieval: %v", err)
		span.RecordError(err)
		meta.Validation = domain.ValidationFailedFallback
		meta.StatusCode = 500
		meta.StageTimings.RetrievalMs = time.Since(retrievalStarted).Milliseconds()
		return s.failSemantic(ctx, req, optimized, domain.AnswerEnvelope{Answer: busyAnswer, Meta: meta})
	}

	sources := SemanticSources(retrieval.Candidates)
	meta.RetrievalDocsCount = len(sources)
	meta.TopScore = retrieval.TopScore
	meta.DenseHits = retrieval.DenseHits
	meta.SparseHits = retrieval.SparseHits
	meta.RerankMs = retrieval.RerankMs
	meta.StageTimings.RetrievalMs = retrieval.RetrievalMs
	span.SetAttributes(
		attribute.String("arah.retrieval_mode", string(retrieval.Mode)),
		attribute.Int("arah.candidates", len(retrieval.Candidates)),
	)

	if ShouldAbstain(len(retrieval.Candidates), InferDocType(req.query), IsPersonalQuery(req.query)) {
		logger.Debug("no evidence for personal query, abstaining")
		meta.Validation = domain.ValidationNoGroundingEvidence
		req.advance(domain.StateAbstained)
		return domain.AnswerEnvelope{Answer: abstainAnswer, Meta: meta}
	}

	result := s.synthesizer.Answer(ctx, SynthesisRequest{
		Query:      req.query,
		Candidates: retrieval.Candidates,
		Mode:       retrieval.Mode,
		Titles:     req.mentions.ResolvedTitles,
		Unresolved: req.mentions.Unresolved,
		Optimized:  optimized,
	})
	meta.StageTimings.LLMMs = result.LLMMs
	logger.Stage("llm", time.Duration(result.LLMMs)*time.Millisecond)

	if !result.OK {
		meta.Validation = domain.ValidationFailedFallback
		if result.Err != nil {
			span.RecordError(result.Err)
		}
		if errors.Is(result.Err, domain.ErrConfiguration) || errors.Is(result.Err, domain.ErrLLMUnavailable) {
			meta.StatusCode = 503
			req.advance(domain.StateFailed)
			return domain.AnswerEnvelope{Answer: configAnswerPf + result.Err.Error(), Meta: meta}
		}
		logger.Warn("synthesis: %v", result.Err)
		meta.StatusCode = 500
		return s.failSemantic(ctx, req, optimized, domain.AnswerEnvelope{Answer: busyAnswer, Meta: meta})
	}

	meta.Validation = domain.ValidationNotApplicable
	meta.LLMModel = result.Model
	meta.FallbackUsed = result.FallbackUsed
	req.advance(domain.StateAnswered)
	return domain.AnswerEnvelope{Answer: result.Text, Sources: sources, Meta: meta}
}

// failSemantic either retries on the default plan or records the failure.
func (s *AnswerService) failSemantic(ctx context.Context, req *request, optimized bool, env domain.AnswerEnvelope) domain.AnswerEnvelope {
	if optimized && s.retriever.cfg.LegacyFallback {
		logger.Info("request %s: optimized path failed, retrying on the default plan", req.requestID)
		req.advance(domain.StateSemanticRetried)
		return s.semantic(ctx, req, false)
	}
	req.advance(domain.StateFailed)
	return env
}

// emit records the outcome. Sink failures never reach the caller.
func (s *AnswerService) emit(ctx context.Context, req *request, env domain.AnswerEnvelope) {
	if s.metrics == nil {
		return
	}
	record := domain.MetricFromEnvelope(req.requestID, req.userID, req.query, env)
	if err := s.metrics.Emit(ctx, record); err != nil {
		logger.Warn("emit metric for %s: %v", req.requestID, err)
	}
}
