package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

var (
	mentionWithExt   = regexp.MustCompile(`(?i)@([A-Za-z0-9._\- ]+?\.(?:pdf|xlsx|xls|csv|md|txt))\b`)
	mentionBareToken = regexp.MustCompile(`@([A-Za-z0-9._\-]{2,120})`)
	whitespaceRun    = regexp.MustCompile(`\s{2,}`)
	docExtSuffix     = regexp.MustCompile(`\.(pdf|xlsx|xls|csv|md|txt)$`)
	nonAlnumRun      = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExtractMentions strips @references from query. Mentions carrying a file
// extension are taken first, then bare tokens. The returned list is ordered
// and de-duplicated.
func ExtractMentions(query string) (string, []string) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", nil
	}

	var raw []string
	for _, m := range mentionWithExt.FindAllStringSubmatch(q, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			raw = append(raw, v)
		}
	}
	clean := mentionWithExt.ReplaceAllString(q, "")

	if extra := mentionBareToken.FindAllStringSubmatch(clean, -1); len(extra) > 0 {
		for _, m := range extra {
			if v := strings.TrimSpace(m[1]); v != "" {
				raw = append(raw, v)
			}
		}
		clean = mentionBareToken.ReplaceAllString(clean, "")
	}

	clean = strings.TrimSpace(whitespaceRun.ReplaceAllString(clean, " "))
	return clean, dedupStrings(raw)
}

// NormalizeDocKey lower-cases a title, drops a known extension and collapses
// non-alphanumeric runs to single spaces.
func NormalizeDocKey(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = docExtSuffix.ReplaceAllString(t, "")
	t = nonAlnumRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(t, " "))
}

// ResolveAgainst matches mentions to docs: exact normalized equality first,
// then containment in either direction.
func ResolveAgainst(docs []domain.Document, mentions []string) domain.MentionResolution {
	out := domain.MentionResolution{
		ResolvedDocIDs: []string{},
		ResolvedTitles: []string{},
		Unresolved:     []string{},
		Ambiguous:      []string{},
	}
	if len(mentions) == 0 {
		return out
	}
	if len(docs) == 0 {
		out.Unresolved = append(out.Unresolved, mentions...)
		return out
	}

	keys := make([]string, len(docs))
	for i, d := range docs {
		keys[i] = NormalizeDocKey(d.Title)
	}

	var ids, titles []string
	for _, m := range mentions {
		mk := NormalizeDocKey(m)
		if mk == "" {
			out.Unresolved = append(out.Unresolved, m)
			continue
		}
		var exact []int
		for i, nk := range keys {
			if nk == mk {
				exact = append(exact, i)
			}
		}
		if len(exact) == 1 {
			ids = append(ids, docs[exact[0]].ID)
			titles = append(titles, docs[exact[0]].Title)
			continue
		}
		if len(exact) > 1 {
			out.Ambiguous = append(out.Ambiguous, m)
			continue
		}
		var contains []int
		for i, nk := range keys {
			if strings.Contains(nk, mk) || strings.Contains(mk, nk) {
				contains = append(contains, i)
			}
		}
		switch len(contains) {
		case 0:
			out.Unresolved = append(out.Unresolved, m)
		case 1:
			ids = append(ids, docs[contains[0]].ID)
			titles = append(titles, docs[contains[0]].Title)
		default:
			out.Ambiguous = append(out.Ambiguous, m)
		}
	}
	out.ResolvedDocIDs = append(out.ResolvedDocIDs, dedupStrings(ids)...)
	out.ResolvedTitles = append(out.ResolvedTitles, dedupStrings(titles)...)
	return out
}

// docCheckTimeout bounds the shared catalog existence check.
const docCheckTimeout = 5 * time.Second

// MentionResolver resolves mentions against a user's catalog with caching.
type MentionResolver struct {
	catalog     driven.DocumentCatalog
	cache       driven.Cache
	mentionTTL  time.Duration
	userDocsTTL time.Duration
	docChecks   singleflight.Group
}

// NewMentionResolver creates a resolver. cache may be nil.
func NewMentionResolver(catalog driven.DocumentCatalog, cache driven.Cache, mentionTTL, userDocsTTL time.Duration) *MentionResolver {
	return &MentionResolver{
		catalog:     catalog,
		cache:       cache,
		mentionTTL:  mentionTTL,
		userDocsTTL: userDocsTTL,
	}
}

// Resolve maps mentions onto the user's documents. A catalog failure leaves
// every mention unresolved.
func (r *MentionResolver) Resolve(ctx context.Context, userID string, mentions []string) domain.MentionResolution {
	var parts []string
	for _, m := range mentions {
		if v := strings.ToLower(strings.TrimSpace(m)); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 || r.mentionTTL <= 0 {
		return r.resolve(ctx, userID, mentions)
	}

	key := fmt.Sprintf("rag:mention:v1:%s:%s", userID, md5Hex(strings.Join(parts, "|")))
	var cached domain.MentionResolution
	if cacheGet(ctx, r.cache, key, &cached) {
		return cached
	}
	out := r.resolve(ctx, userID, mentions)
	cacheSet(ctx, r.cache, key, out, r.mentionTTL)
	return out
}

func (r *MentionResolver) resolve(ctx context.Context, userID string, mentions []string) domain.MentionResolution {
	if len(mentions) == 0 {
		return ResolveAgainst(nil, nil)
	}
	docs, err := r.catalog.ListDocuments(ctx, userID)
	if err != nil {
		logger.Warn("list documents for mentions: %v", err)
		docs = nil
	}
	return ResolveAgainst(docs, mentions)
}

// HasDocuments reports whether the user owns any document. A cached true is
// trusted; a cached false is re-checked against the catalog. Concurrent checks
// for the same user share one catalog call.
func (r *MentionResolver) HasDocuments(ctx context.Context, userID string) bool {
	key := "rag:user_has_docs:" + userID
	var cached bool
	if cacheGet(ctx, r.cache, key, &cached) && cached {
		return true
	}

	v, err, _ := r.docChecks.Do(userID, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), docCheckTimeout)
		defer cancel()
		return r.catalog.HasDocuments(cctx, userID)
	})
	if err != nil {
		logger.Warn("has documents check for %s: %v", userID, err)
		return false
	}
	has, _ := v.(bool)
	cacheSet(ctx, r.cache, key, has, r.userDocsTTL)
	return has
}

// AmbiguousResponse asks the user to disambiguate their @references.
func AmbiguousResponse(mentions []string) domain.AnswerEnvelope {
	shown := mentions
	if len(shown) > 3 {
		shown = shown[:3]
	}
	quoted := make([]string, len(shown))
	for i, m := range shown {
		quoted[i] = "`@" + m + "`"
	}
	answer := "## Ringkasan\n" +
		"Aku menemukan rujukan dokumen yang ambigu: " + strings.Join(quoted, ", ") +
		". Biar akurat, tolong tulis nama file lebih spesifik.\n\n" +
		"## Opsi Lanjut\n" +
		"- Tulis ulang dengan nama file lebih lengkap (contoh: `@Jadwal Mata Kuliah Semester GANJIL TA.2024-2025.pdf`).\n" +
		"- Atau lanjut tanpa rujukan dokumen, nanti Aku jawab secara umum dulu."

	return domain.AnswerEnvelope{
		Answer:  PolishLight(answer),
		Sources: []domain.Source{},
		Meta: domain.AnswerMeta{
			Mode:                string(domain.ModeDocReferenced),
			Pipeline:            domain.PipelineRAGSemantic,
			IntentRoute:         domain.RouteDefaultRAG,
			Validation:          domain.ValidationNotApplicable,
			AnalyticsStats:      &domain.AnalyticsStats{},
			ReferencedDocuments: []string{},
			UnresolvedMentions:  []string{},
			AmbiguousMentions:   append([]string{}, mentions...),
		},
	}
}

// dedupStrings keeps the first occurrence of each value.
func dedupStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
