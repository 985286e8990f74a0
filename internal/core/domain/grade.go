package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// GradeBand maps a letter to an inclusive score range.
type GradeBand struct {
	Letter string
	Low    float64
	High   float64
}

// DefaultGradeScale is the campus 0-100 letter scale.
var DefaultGradeScale = []GradeBand{
	{"A", 80, 100},
	{"B", 70, 79},
	{"C", 56, 69},
	{"D", 45, 55},
	{"E", 0, 44},
}

// GradeComponent is one graded assessment with its weight in percent.
type GradeComponent struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`
}

// RescuePlan is the score needed on the remaining assessments.
type RescuePlan struct {
	// Required is the score needed on the remaining weight, nil when nothing remains.
	Required *float64 `json:"required"`

	// Possible reports whether Required lies in [0, 100].
	Possible bool `json:"possible"`

	// AchievedSoFar is the weighted score already earned.
	AchievedSoFar float64 `json:"achieved_so_far"`

	// NeededPoints is target minus achieved.
	NeededPoints float64 `json:"needed_points"`

	// Reason explains an impossible plan.
	Reason string `json:"reason,omitempty"`
}

// RequiredScore computes what the remaining weight must score to reach target.
func RequiredScore(components []GradeComponent, target, remainingWeight float64) RescuePlan {
	achieved := 0.0
	for _, c := range components {
		achieved += c.Score * (c.Weight / 100)
	}
	needed := target - achieved
	plan := RescuePlan{
		AchievedSoFar: round2(achieved),
		NeededPoints:  round2(needed),
	}
	if remainingWeight <= 0 {
		plan.Reason = "Tidak ada komponen tersisa"
		return plan
	}
	required := round2(needed / (remainingWeight / 100))
	plan.Required = &required
	plan.Possible = required >= 0 && required <= 100
	return plan
}

// GradeLetter maps a score onto scale, DefaultGradeScale when nil.
func GradeLetter(score float64, scale []GradeBand) string {
	if len(scale) == 0 {
		scale = DefaultGradeScale
	}
	for _, b := range scale {
		if score >= b.Low && score <= b.High {
			return b.Letter
		}
	}
	if score > 100 {
		return scale[0].Letter
	}
	return scale[len(scale)-1].Letter
}

// GradeQuery is a parsed free-text rescue question.
type GradeQuery struct {
	Current float64 `json:"current"`
	Weight  float64 `json:"weight"`
	Target  float64 `json:"target"`
}

// Remaining is the weight still to be assessed.
func (q GradeQuery) Remaining() float64 {
	return 100 - q.Weight
}

// Plan evaluates the query.
func (q GradeQuery) Plan() RescuePlan {
	return RequiredScore(
		[]GradeComponent{{Name: "Nilai Saat Ini", Score: q.Current, Weight: q.Weight}},
		q.Target,
		q.Remaining(),
	)
}

var (
	gradeWeightRe       = regexp.MustCompile(`(?:bobot|weight)\s*[:=]?\s*(\d{1,3})`)
	gradeTargetNumRe    = regexp.MustCompile(`(?:target|nilai akhir|final)\s*[:=]?\s*(\d{2,3})`)
	gradeTargetLetterRe = regexp.MustCompile(`(?:target|supaya|agar)\s*(?:nilai\s*)?([abcde])\b`)
	gradeNumRe          = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

	letterTargets = map[string]float64{"a": 80, "b": 70, "c": 56, "d": 45, "e": 0}
)

// Defaults used when a rescue question omits a value.
const (
	DefaultGradeWeight = 40
	DefaultGradeTarget = 70
)

// ParseGradeQuery extracts current score, weight and target from text like
// "UTS 55 bobot 40 target B". The first number is the current score.
func ParseGradeQuery(text string) (GradeQuery, error) {
	q := strings.ToLower(strings.TrimSpace(text))
	var nums []float64
	for _, m := range gradeNumRe.FindAllStringSubmatch(q, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err == nil {
			nums = append(nums, v)
		}
	}
	if len(nums) == 0 {
		return GradeQuery{}, fmt.Errorf("%w: no score in %q", ErrInvalidInput, text)
	}

	out := GradeQuery{Current: nums[0], Weight: DefaultGradeWeight, Target: DefaultGradeTarget}

	if m := gradeWeightRe.FindStringSubmatch(q); m != nil {
		out.Weight, _ = strconv.ParseFloat(m[1], 64)
	} else if len(nums) > 1 {
		out.Weight = nums[1]
	}

	switch {
	case gradeTargetNumRe.MatchString(q):
		m := gradeTargetNumRe.FindStringSubmatch(q)
		out.Target, _ = strconv.ParseFloat(m[1], 64)
	case gradeTargetLetterRe.MatchString(q):
		m := gradeTargetLetterRe.FindStringSubmatch(q)
		out.Target = letterTargets[m[1]]
	case len(nums) > 2:
		out.Target = nums[2]
	}

	out.Weight = math.Min(math.Max(out.Weight, 0), 100)
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
