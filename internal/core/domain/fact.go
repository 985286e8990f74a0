package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FactKind tags the variant held by a Fact.
type FactKind string

// Fact variants.
const (
	FactKindTranscript FactKind = "transcript"
	FactKindSchedule   FactKind = "schedule"
)

// Fact is a typed academic record extracted from a row chunk.
// It is either a TranscriptFact or a ScheduleFact. Facts are only built
// through NewTranscriptFact / NewScheduleFact so partial rows never reach
// filtering or rendering.
type Fact interface {
	// Kind returns the variant tag.
	Kind() FactKind

	// CourseName returns the course the fact is about.
	CourseName() string

	// Origin returns where the row was read from.
	Origin() FactOrigin

	// Snippet renders the fact back to a compact key=value line.
	Snippet() string
}

// FactOrigin locates a fact in its source document.
type FactOrigin struct {
	// Source is the document label, "unknown" when absent.
	Source string `json:"source"`

	// Page is the 1-based page number, zero when unknown.
	Page int `json:"page,omitempty"`
}

// Label returns "source (p.N)" or just the source when the page is unknown.
func (o FactOrigin) Label() string {
	if o.Page > 0 {
		return fmt.Sprintf("%s (p.%d)", o.Source, o.Page)
	}
	return o.Source
}

// OriginOf builds a FactOrigin from chunk metadata.
func OriginOf(c Chunk) FactOrigin {
	src := strings.TrimSpace(c.Source)
	if src == "" {
		src = "unknown"
	}
	return FactOrigin{Source: src, Page: c.Page}
}

// TranscriptFact is one graded course on a transcript.
type TranscriptFact struct {
	// Semester is the semester the course was taken in.
	Semester int `json:"semester"`

	// Course is the course name as written in the document.
	Course string `json:"mata_kuliah"`

	// Credits is the SKS weight.
	Credits int `json:"sks"`

	// Grade is the upper-cased letter grade.
	Grade string `json:"nilai_huruf"`

	// From locates the row.
	From FactOrigin `json:"origin"`
}

// Kind implements Fact.
func (TranscriptFact) Kind() FactKind { return FactKindTranscript }

// CourseName implements Fact.
func (f TranscriptFact) CourseName() string { return f.Course }

// Origin implements Fact.
func (f TranscriptFact) Origin() FactOrigin { return f.From }

// Snippet implements Fact.
func (f TranscriptFact) Snippet() string {
	return fmt.Sprintf("semester=%d | mata_kuliah=%s | sks=%d | nilai_huruf=%s",
		f.Semester, f.Course, f.Credits, f.Grade)
}

// GradePriority returns the ordinal of the fact's letter grade.
func (f TranscriptFact) GradePriority() int {
	return GradePriority(f.Grade)
}

// ScheduleFact is one class meeting on a schedule.
type ScheduleFact struct {
	// Day is the canonical Indonesian day name (Senin..Minggu).
	Day string `json:"hari"`

	// Start is the HH:MM start time.
	Start string `json:"jam_mulai"`

	// End is the HH:MM end time.
	End string `json:"jam_selesai"`

	// Course is the course name.
	Course string `json:"mata_kuliah"`

	// Room is the room, possibly empty.
	Room string `json:"ruangan"`

	// Semester is the semester, zero when the row does not carry one.
	Semester int `json:"semester,omitempty"`

	// From locates the row.
	From FactOrigin `json:"origin"`
}

// Kind implements Fact.
func (ScheduleFact) Kind() FactKind { return FactKindSchedule }

// CourseName implements Fact.
func (f ScheduleFact) CourseName() string { return f.Course }

// Origin implements Fact.
func (f ScheduleFact) Origin() FactOrigin { return f.From }

// Snippet implements Fact.
func (f ScheduleFact) Snippet() string {
	return fmt.Sprintf("hari=%s | jam=%s-%s | mata_kuliah=%s | ruangan=%s",
		f.Day, f.Start, f.End, f.Course, f.Room)
}

// ScheduleKey is the dedup identity of a schedule fact.
type ScheduleKey struct {
	Day      string
	Start    string
	End      string
	Course   string
	Room     string
	Semester int
}

// Key returns the dedup identity of the fact.
func (f ScheduleFact) Key() ScheduleKey {
	return ScheduleKey{
		Day:      f.Day,
		Start:    f.Start,
		End:      f.End,
		Course:   f.Course,
		Room:     f.Room,
		Semester: f.Semester,
	}
}

// ParseRowFields splits a row chunk body into lower-cased keys and trimmed values.
// Text before the first ':' is a row label and is ignored, unless it already
// holds a key=value pair (for example an unlabelled row with "jam_mulai=08:00").
func ParseRowFields(text string) map[string]string {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return map[string]string{}
	}
	if label, after, ok := strings.Cut(raw, ":"); ok && !strings.Contains(label, "=") {
		raw = after
	}
	out := make(map[string]string)
	for _, part := range strings.Split(raw, "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(v)
	}
	return out
}

// NewTranscriptFact validates a parsed row and builds a TranscriptFact.
// Rows missing the course, semester, credits or grade are rejected.
func NewTranscriptFact(fields map[string]string, origin FactOrigin) (TranscriptFact, error) {
	course := firstNonEmpty(fields["mata_kuliah"], fields["matakuliah"])
	if course == "" {
		return TranscriptFact{}, fmt.Errorf("%w: missing course name", ErrInvalidFact)
	}
	semester, ok := parseLooseInt(fields["semester"])
	if !ok {
		return TranscriptFact{}, fmt.Errorf("%w: unparsable semester %q", ErrInvalidFact, fields["semester"])
	}
	credits, ok := parseLooseInt(fields["sks"])
	if !ok {
		return TranscriptFact{}, fmt.Errorf("%w: unparsable credits %q", ErrInvalidFact, fields["sks"])
	}
	grade := strings.ToUpper(strings.TrimSpace(fields["nilai_huruf"]))
	if grade == "" {
		return TranscriptFact{}, fmt.Errorf("%w: missing grade", ErrInvalidFact)
	}
	return TranscriptFact{
		Semester: semester,
		Course:   course,
		Credits:  credits,
		Grade:    grade,
		From:     origin,
	}, nil
}

var jamRangePattern = regexp.MustCompile(`(\d{1,2}[:.]\d{2})\s*-\s*(\d{1,2}[:.]\d{2})`)

// NewScheduleFact validates a parsed row and builds a ScheduleFact.
// Rows missing the course, day or a complete time range are rejected.
func NewScheduleFact(fields map[string]string, origin FactOrigin) (ScheduleFact, error) {
	course := firstNonEmpty(fields["mata_kuliah"], fields["matakuliah"])
	if course == "" {
		return ScheduleFact{}, fmt.Errorf("%w: missing course name", ErrInvalidFact)
	}
	day := CanonicalDay(firstNonEmpty(fields["hari"], fields["day"]))
	if day == "" {
		return ScheduleFact{}, fmt.Errorf("%w: missing day", ErrInvalidFact)
	}

	start := NormalizeClock(fields["jam_mulai"])
	end := NormalizeClock(fields["jam_selesai"])
	if start == "" || end == "" {
		if m := jamRangePattern.FindStringSubmatch(strings.TrimSpace(fields["jam"])); m != nil {
			start = NormalizeClock(m[1])
			end = NormalizeClock(m[2])
		}
	}
	if start == "" || end == "" {
		return ScheduleFact{}, fmt.Errorf("%w: incomplete time range", ErrInvalidFact)
	}

	semester, _ := parseLooseInt(fields["semester"])
	return ScheduleFact{
		Day:      day,
		Start:    start,
		End:      end,
		Course:   course,
		Room:     firstNonEmpty(fields["ruangan"], fields["ruang"], fields["room"]),
		Semester: semester,
		From:     origin,
	}, nil
}

// ParseFact builds the fact variant matching docType from a row chunk.
func ParseFact(docType DocType, c Chunk) (Fact, error) {
	fields := ParseRowFields(c.Text)
	switch docType {
	case DocTypeTranscript:
		return NewTranscriptFact(fields, OriginOf(c))
	case DocTypeSchedule:
		return NewScheduleFact(fields, OriginOf(c))
	default:
		return nil, fmt.Errorf("%w: no fact variant for doc type %q", ErrInvalidFact, docType)
	}
}

// dayCanon maps lower-case day spellings to canonical Indonesian day names.
var dayCanon = map[string]string{
	"senin":     "Senin",
	"selasa":    "Selasa",
	"rabu":      "Rabu",
	"kamis":     "Kamis",
	"jumat":     "Jumat",
	"sabtu":     "Sabtu",
	"minggu":    "Minggu",
	"monday":    "Senin",
	"tuesday":   "Selasa",
	"wednesday": "Rabu",
	"thursday":  "Kamis",
	"friday":    "Jumat",
	"saturday":  "Sabtu",
	"sunday":    "Minggu",
}

// Weekdays lists canonical day names Monday first.
var Weekdays = []string{"Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu", "Minggu"}

// DayAliases returns the lower-case spellings recognised in queries, including
// the apostrophe form "jum'at".
func DayAliases() map[string]string {
	out := make(map[string]string, len(dayCanon)+1)
	for k, v := range dayCanon {
		out[k] = v
	}
	out["jum'at"] = "Jumat"
	return out
}

var nonLetters = regexp.MustCompile(`[^a-z]+`)

// CanonicalDay maps a day spelling to its canonical name.
// Reversed spellings such as "nines" are accepted. Unknown
// values are returned trimmed.
func CanonicalDay(value string) string {
	trimmed := strings.TrimSpace(value)
	letters := nonLetters.ReplaceAllString(strings.ToLower(trimmed), "")
	if letters == "" {
		return trimmed
	}
	if day, ok := dayCanon[letters]; ok {
		return day
	}
	if day, ok := dayCanon[reverse(letters)]; ok {
		return day
	}
	return trimmed
}

// DayOrdinal returns the Monday-first position of a canonical day, or len(Weekdays)
// for unknown values so they sort last.
func DayOrdinal(day string) int {
	for i, d := range Weekdays {
		if strings.EqualFold(d, day) {
			return i
		}
	}
	return len(Weekdays)
}

var clockPattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)

// NormalizeClock turns "8.00", "08:00" or "jam 8:00" into "08:00".
// Returns "" when no valid clock time is present.
func NormalizeClock(value string) string {
	txt := strings.ReplaceAll(strings.TrimSpace(value), ".", ":")
	m := clockPattern.FindStringSubmatch(txt)
	if m == nil {
		return ""
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", hh, mm)
}

// gradePriority ranks letter grades. Combined and +/- grades sit between
// their neighbours.
var gradePriority = map[string]int{
	"A":  100,
	"A-": 96,
	"AB": 94,
	"B+": 90,
	"B":  86,
	"B-": 82,
	"BC": 80,
	"C+": 76,
	"C":  72,
	"C-": 68,
	"CD": 66,
	"D+": 62,
	"D":  58,
	"D-": 54,
	"E":  0,
}

// GradePriority returns the ordinal of a letter grade, -1 when unknown.
func GradePriority(grade string) int {
	if p, ok := gradePriority[strings.ToUpper(strings.TrimSpace(grade))]; ok {
		return p
	}
	return -1
}

// parseLooseInt accepts "3", " 3 ", "3.0".
func parseLooseInt(value string) (int, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
