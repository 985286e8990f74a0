package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// StructuredResult is the deterministic output of the analytics engine.
type StructuredResult struct {
	// OK is false when no row chunks exist for the inferred document type.
	OK bool

	// Answer is the rendered markdown.
	Answer string

	Sources []domain.Source
	DocType domain.DocType

	// Facts are the rows the answer was rendered from.
	Facts []domain.Fact

	Stats domain.AnalyticsStats

	// Reason tags the branch taken.
	Reason string
}

// AnalyticsEngine answers tabular questions from row chunks without a model.
type AnalyticsEngine struct {
	store     driven.ChunkStore
	lowGrades map[string]struct{}
	loc       *time.Location
	now       func() time.Time
	timeout   time.Duration
}

// NewAnalyticsEngine creates an engine over store. An unknown timezone falls
// back to UTC.
func NewAnalyticsEngine(store driven.ChunkStore, cfg domain.AnalyticsConfig) (*AnalyticsEngine, error) {
	if store == nil {
		return nil, errors.New("analytics engine requires a chunk store")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		logger.Warn("analytics timezone %q unavailable, using UTC", cfg.Timezone)
		loc = time.UTC
	}
	grades := cfg.LowGrades
	if len(grades) == 0 {
		grades = domain.DefaultLowGrades()
	}
	set := make(map[string]struct{}, len(grades))
	for _, g := range grades {
		if g = strings.ToUpper(strings.TrimSpace(g)); g != "" {
			set[g] = struct{}{}
		}
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = domain.DefaultSearchTimeout
	}
	return &AnalyticsEngine{store: store, lowGrades: set, loc: loc, now: time.Now, timeout: timeout}, nil
}

// Run answers query from the user's row chunks, scoped to docIDs when given.
func (e *AnalyticsEngine) Run(ctx context.Context, userID, query string, docIDs []string) StructuredResult {
	logger.Section("Structured Analytics")
	started := time.Now()

	docType := domain.DocTypeTranscript
	if IsScheduleQuery(query) {
		docType = domain.DocTypeSchedule
	}
	rows := e.fetch(ctx, domain.ChunkFilter{UserID: userID, Kind: domain.ChunkKindRow, DocType: docType, DocIDs: docIDs})

	if docType == domain.DocTypeTranscript && len(rows) == 0 && !IsLowGradeQuery(query) && IsCourseRecapQuery(query) {
		if fallback := e.fetch(ctx, domain.ChunkFilter{UserID: userID, Kind: domain.ChunkKindRow, DocType: domain.DocTypeSchedule, DocIDs: docIDs}); len(fallback) > 0 {
			logger.Debug("no transcript rows, using schedule rows")
			docType = domain.DocTypeSchedule
			rows = fallback
		}
	}

	if len(rows) == 0 {
		answer := rowsNotFound
		if IsStrictTranscriptQuery(query, docType) {
			answer = strictTranscriptNotFound
		}
		return StructuredResult{
			Answer:  answer,
			Sources: []domain.Source{},
			DocType: docType,
			Facts:   []domain.Fact{},
			Stats:   domain.AnalyticsStats{LatencyMs: time.Since(started).Milliseconds()},
			Reason:  "no_row_chunks",
		}
	}

	var res StructuredResult
	if docType == domain.DocTypeTranscript {
		res = e.runTranscript(ctx, userID, query, docIDs, rows)
	} else {
		res = e.runSchedule(query, rows)
	}
	res.Stats.LatencyMs = time.Since(started).Milliseconds()
	logger.Debug("structured %s: raw=%d deduped=%d returned=%d", docType, res.Stats.Raw, res.Stats.Deduped, res.Stats.Returned)
	return res
}

// TranscriptFacts returns the user's deduplicated transcript rows.
func (e *AnalyticsEngine) TranscriptFacts(ctx context.Context, userID string) []domain.TranscriptFact {
	rows := e.fetch(ctx, domain.ChunkFilter{UserID: userID, Kind: domain.ChunkKindRow, DocType: domain.DocTypeTranscript})
	return DedupTranscript(parseFacts[domain.TranscriptFact](domain.DocTypeTranscript, rows))
}

func (e *AnalyticsEngine) runTranscript(ctx context.Context, userID, query string, docIDs []string, rows []domain.Chunk) StructuredResult {
	facts := parseFacts[domain.TranscriptFact](domain.DocTypeTranscript, rows)
	deduped := DedupTranscript(facts)
	filtered := slices.Clone(deduped)

	if sem, ok := ExtractSemesterFilter(query); ok {
		filtered = slices.DeleteFunc(filtered, func(f domain.TranscriptFact) bool { return f.Semester != sem })
	}
	if IsLowGradeQuery(query) {
		filtered = slices.DeleteFunc(filtered, func(f domain.TranscriptFact) bool {
			_, low := e.lowGrades[strings.ToUpper(f.Grade)]
			return !low
		})
	}
	if term := ExtractCourseTerm(query); term != "" && !IsFullRecapQuery(query) {
		lower := strings.ToLower(term)
		byCourse := slices.DeleteFunc(slices.Clone(filtered), func(f domain.TranscriptFact) bool {
			return !strings.Contains(strings.ToLower(f.Course), lower)
		})
		if len(byCourse) > 0 {
			filtered = byCourse
		}
	}

	texts := e.fetch(ctx, domain.ChunkFilter{UserID: userID, Kind: domain.ChunkKindText, DocType: domain.DocTypeTranscript, DocIDs: docIDs})
	bodies := make([]string, 0, len(texts))
	for _, c := range texts {
		bodies = append(bodies, c.Text)
	}
	profile := ExtractTranscriptProfile(bodies)

	cited := filtered
	if len(cited) == 0 {
		cited = deduped
	}
	return StructuredResult{
		OK:      true,
		Answer:  RenderTranscript(filtered, query, profile),
		Sources: RenderFactSources(cited),
		DocType: domain.DocTypeTranscript,
		Facts:   asFacts(filtered),
		Stats:   domain.AnalyticsStats{Raw: len(facts), Deduped: len(deduped), Returned: len(filtered)},
		Reason:  "structured_transcript",
	}
}

func (e *AnalyticsEngine) runSchedule(query string, rows []domain.Chunk) StructuredResult {
	facts := parseFacts[domain.ScheduleFact](domain.DocTypeSchedule, rows)
	deduped := DedupSchedule(facts)
	day := ExtractDayFilter(query, e.now(), e.loc)

	filtered := slices.Clone(deduped)
	if day != "" {
		filtered = slices.DeleteFunc(filtered, func(f domain.ScheduleFact) bool { return !strings.EqualFold(f.Day, day) })
	}
	SortSchedule(filtered)

	cited := filtered
	if len(cited) == 0 {
		cited = deduped
	}
	return StructuredResult{
		OK:      true,
		Answer:  RenderSchedule(filtered, day),
		Sources: RenderFactSources(cited),
		DocType: domain.DocTypeSchedule,
		Facts:   asFacts(filtered),
		Stats:   domain.AnalyticsStats{Raw: len(facts), Deduped: len(deduped), Returned: len(filtered)},
		Reason:  "structured_schedule",
	}
}

// fetch reads chunks matching filter. A store that rejects the compound
// filter is retried owner-only and the result filtered in memory.
func (e *AnalyticsEngine) fetch(ctx context.Context, filter domain.ChunkFilter) []domain.Chunk {
	chunks, err := e.get(ctx, filter)
	if err == nil {
		return nonEmptyChunks(chunks)
	}
	if ctx.Err() != nil {
		logger.Warn("structured fetch: %v", fmt.Errorf("%w: %w", domain.ErrRetrieval, err))
		return nil
	}
	logger.Warn("structured fetch %s/%s: %v, retrying owner-only", filter.DocType, filter.Kind, err)
	all, err := e.get(ctx, filter.OwnerOnly())
	if err != nil {
		logger.Warn("structured fetch owner-only: %v", fmt.Errorf("%w: %w", domain.ErrRetrieval, err))
		return nil
	}
	out := make([]domain.Chunk, 0, len(all))
	for _, c := range all {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return nonEmptyChunks(out)
}

// get is one store call bounded by the fetch timeout.
func (e *AnalyticsEngine) get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	chunks, err := e.store.Get(ctx, filter)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return chunks, err
}

func nonEmptyChunks(chunks []domain.Chunk) []domain.Chunk {
	return slices.DeleteFunc(chunks, func(c domain.Chunk) bool { return strings.TrimSpace(c.Text) == "" })
}

// parseFacts builds typed facts from row chunks, dropping incomplete rows.
func parseFacts[F domain.Fact](docType domain.DocType, rows []domain.Chunk) []F {
	out := make([]F, 0, len(rows))
	for _, c := range rows {
		f, err := domain.ParseFact(docType, c)
		if err != nil {
			logger.Debug("skip row %s: %v", c.ID, err)
			continue
		}
		if typed, ok := f.(F); ok {
			out = append(out, typed)
		}
	}
	return out
}

func asFacts[F domain.Fact](facts []F) []domain.Fact {
	out := make([]domain.Fact, len(facts))
	for i, f := range facts {
		out[i] = f
	}
	return out
}

// DedupTranscript keeps one fact per course name (case-insensitive): the
// highest semester, then the highest grade priority. First-seen order of
// course names is preserved.
func DedupTranscript(facts []domain.TranscriptFact) []domain.TranscriptFact {
	slot := make(map[string]int, len(facts))
	out := make([]domain.TranscriptFact, 0, len(facts))
	for _, f := range facts {
		key := strings.ToLower(strings.TrimSpace(f.Course))
		if key == "" {
			continue
		}
		i, ok := slot[key]
		if !ok {
			slot[key] = len(out)
			out = append(out, f)
			continue
		}
		cur := out[i]
		if f.Semester > cur.Semester || (f.Semester == cur.Semester && f.GradePriority() > cur.GradePriority()) {
			out[i] = f
		}
	}
	return out
}

// DedupSchedule drops facts repeating an earlier (day, start, end, course,
// room, semester) key.
func DedupSchedule(facts []domain.ScheduleFact) []domain.ScheduleFact {
	seen := make(map[domain.ScheduleKey]struct{}, len(facts))
	out := make([]domain.ScheduleFact, 0, len(facts))
	for _, f := range facts {
		k := f.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// SortSchedule orders facts Monday first, then by start time and course.
func SortSchedule(facts []domain.ScheduleFact) {
	slices.SortStableFunc(facts, func(a, b domain.ScheduleFact) int {
		if d := domain.DayOrdinal(a.Day) - domain.DayOrdinal(b.Day); d != 0 {
			return d
		}
		if c := strings.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.Course, b.Course)
	})
}
