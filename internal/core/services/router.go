package services

import (
	"context"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

var (
	analyticalPatterns = newPatternSet(
		`\brekap\b`,
		`\bringkas\b`,
		`\brangkum\b`,
		`\bhasil studi\b`,
		`\breview hasil studi\b`,
		`\bnilai rendah\b`,
		`\bmatakuliah.*rendah\b`,
		`\bjadwal hari\b`,
		`\bhari ini\b`,
		`\bkhs\b`,
		`\bkrs\b`,
		`\btranskrip\b`,
		`\bips\b`,
		`\bipk\b`,
	)

	semanticPolicyPatterns = newPatternSet(
		`\baturan\b`,
		`\bsyarat lulus\b`,
		`\bcara cuti\b`,
		`\bpedoman\b`,
		`\bkebijakan\b`,
		`\bperaturan\b`,
		`\bskripsi\b.*\bsyarat\b`,
		`\bregistrasi\b.*\baturan\b`,
	)

	outOfDomainPatterns = newPatternSet(
		`\bresep\b`,
		`\bcuaca\b`,
		`\bcrypto\b`,
		`\bsaham\b`,
		`\bprediksi skor\b`,
		`\bbola\b`,
		`\bgaming\b`,
		`\bfilm\b`,
		`\blagu\b`,
		`\bdrama korea\b`,
	)
)

// RouteIntent classifies a query. Priority: analytical_tabular,
// semantic_policy, out_of_domain, default_rag.
func RouteIntent(query string) domain.RouteDecision {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return domain.RouteDecision{Route: domain.RouteDefaultRAG, Reason: "empty_query"}
	}
	if hits := analyticalPatterns.hits(q); len(hits) > 0 {
		return domain.RouteDecision{Route: domain.RouteAnalyticalTabular, Reason: "matched_analytical_keywords", Matched: hits}
	}
	if hits := semanticPolicyPatterns.hits(q); len(hits) > 0 {
		return domain.RouteDecision{Route: domain.RouteSemanticPolicy, Reason: "matched_semantic_policy_keywords", Matched: hits}
	}
	if hits := outOfDomainPatterns.hits(q); len(hits) > 0 {
		return domain.RouteDecision{Route: domain.RouteOutOfDomain, Reason: "matched_out_of_domain_keywords", Matched: hits}
	}
	return domain.RouteDecision{Route: domain.RouteDefaultRAG, Reason: "no_route_match"}
}

// IntentRouter caches RouteIntent by a hash of the normalized query.
type IntentRouter struct {
	cache driven.Cache
	ttl   time.Duration
}

// NewIntentRouter creates a router. cache may be nil.
func NewIntentRouter(cache driven.Cache, ttl time.Duration) *IntentRouter {
	return &IntentRouter{cache: cache, ttl: ttl}
}

// Route returns the cached or freshly computed decision.
func (r *IntentRouter) Route(ctx context.Context, query string) domain.RouteDecision {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || r.cache == nil || r.ttl <= 0 {
		return RouteIntent(query)
	}
	key := "rag:route:v1:" + md5Hex(q)
	var cached domain.RouteDecision
	if cacheGet(ctx, r.cache, key, &cached) && cached.Route != "" {
		return cached
	}
	out := RouteIntent(query)
	cacheSet(ctx, r.cache, key, out, r.ttl)
	return out
}
