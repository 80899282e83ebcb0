// Package report turns a persisted quiz record, optional per-student
// results, and optional class feedback into a PDF analytics report.
package report

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/classroom-ai/quizgen/internal/model"
)

// stopWords is the fixed stop-word set used for every frequency analysis.
var stopWords = func() map[string]struct{} {
	const list = `
a about above after again against all am an and any are aren't as at be because been before being below between
both but by can't cannot could couldn't did didn't do does doesn't doing don't down during each few for from
further had hadn't has hasn't have haven't having he he'd he'll he's her here here's hers herself him himself his
how how's i i'd i'll i'm i've if in into is isn't it it's its itself let's me more most mustn't my myself no nor
not of off on once only or other ought our ours ourselves out over own same shan't she she'd she'll she's should
shouldn't so some such than that that's the their theirs them themselves then there there's these they they'd
they'll they're they've this those through to too under until up very was wasn't we we'd we'll we're we've were
weren't what what's when when's where where's which while who who's whom why why's with won't would wouldn't you
you'd you'll you're you've your yours yourself yourselves`
	set := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		set[w] = struct{}{}
	}
	return set
}()

// minTokenLen drops very short tokens from frequency tables.
const minTokenLen = 3

// Top-K cutoffs for frequency tables.
const (
	topQuizTokens     = 30
	topFeedbackTokens = 20
)

// TokenCount is one entry of a frequency table.
type TokenCount struct {
	Token string
	Count int
}

// normalizeTokens lowercases text, strips punctuation, and removes stop
// words and tokens shorter than minTokenLen.
func normalizeTokens(text string) []string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, lowered)

	var tokens []string
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) < minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// WordFrequencies counts normalized tokens across texts and keeps the topK.
// Ordering is stable: descending count, ties broken by first appearance in
// the source text.
func WordFrequencies(texts []string, topK int) []TokenCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	pos := 0
	for _, text := range texts {
		for _, tok := range normalizeTokens(text) {
			if _, seen := counts[tok]; !seen {
				firstSeen[tok] = pos
			}
			counts[tok]++
			pos++
		}
	}

	entries := make([]TokenCount, 0, len(counts))
	for tok, n := range counts {
		entries = append(entries, TokenCount{Token: tok, Count: n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return firstSeen[entries[i].Token] < firstSeen[entries[j].Token]
	})

	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	return entries
}

// QuestionType buckets a question by its interrogative word.
type QuestionType string

const (
	TypeWhat  QuestionType = "What"
	TypeHow   QuestionType = "How"
	TypeWhy   QuestionType = "Why"
	TypeWhich QuestionType = "Which"
	TypeWhen  QuestionType = "When"
	TypeOther QuestionType = "Other"
)

// QuestionTypeOrder is the fixed match-priority and display order.
var QuestionTypeOrder = []QuestionType{TypeWhat, TypeHow, TypeWhy, TypeWhich, TypeWhen, TypeOther}

// ClassifyQuestionType picks the first bucket whose interrogative appears
// as a substring of the lower-cased question, in fixed priority order.
func ClassifyQuestionType(question string) QuestionType {
	lowered := strings.ToLower(question)
	for _, qt := range QuestionTypeOrder[:len(QuestionTypeOrder)-1] {
		if strings.Contains(lowered, strings.ToLower(string(qt))) {
			return qt
		}
	}
	return TypeOther
}

// Cognitive levels, in match-priority and display order.
const (
	LevelAnalysis    = "Analysis/Evaluation"
	LevelApplication = "Application"
	LevelKnowledge   = "Knowledge/Comprehension"
	LevelMixed       = "Mixed/Other"
)

// CognitiveLevelOrder is the fixed match-priority and display order.
var CognitiveLevelOrder = []string{LevelAnalysis, LevelApplication, LevelKnowledge, LevelMixed}

var cognitiveKeywords = map[string][]string{
	LevelAnalysis:    {"analyze", "compare", "evaluate", "assess"},
	LevelApplication: {"apply", "implement", "use", "demonstrate"},
	LevelKnowledge:   {"define", "identify", "list", "recall"},
}

// ClassifyCognitiveLevel assigns a coarse Bloom's-style level by keyword
// presence, first matching level wins. Substring matching is deliberate,
// mirroring how the buckets were originally tuned.
func ClassifyCognitiveLevel(question string) string {
	lowered := strings.ToLower(question)
	for _, level := range CognitiveLevelOrder[:len(CognitiveLevelOrder)-1] {
		for _, kw := range cognitiveKeywords[level] {
			if strings.Contains(lowered, kw) {
				return level
			}
		}
	}
	return LevelMixed
}

// Frequency table category names, in display order.
const (
	CategoryQuestions    = "Questions"
	CategoryExplanations = "Explanations"
	CategoryOptions      = "Answer Options"
)

// CategoryOrder is the display order of quiz frequency categories.
var CategoryOrder = []string{CategoryQuestions, CategoryExplanations, CategoryOptions}

// Analysis is the aggregate view of one quiz record.
type Analysis struct {
	TotalQuestions  int
	TotalOptions    int
	QuestionTypes   map[QuestionType]int
	CognitiveLevels map[string]int
	WordFrequencies map[string][]TokenCount
	// Complexity holds one score per question:
	// (explanation words + option words) / 10.
	Complexity []float64
}

// Analyze classifies every question and builds the per-category frequency
// tables.
func Analyze(record *model.QuizRecord) *Analysis {
	a := &Analysis{
		TotalQuestions:  len(record.Questions),
		QuestionTypes:   make(map[QuestionType]int),
		CognitiveLevels: make(map[string]int),
		WordFrequencies: make(map[string][]TokenCount),
	}

	var questions, explanations, options []string
	for _, q := range record.Questions {
		questions = append(questions, q.Question)
		explanations = append(explanations, q.Explanation)
		a.TotalOptions += len(q.Options)
		for _, letter := range sortedLetters(q.Options) {
			options = append(options, q.Options[letter])
		}

		a.QuestionTypes[ClassifyQuestionType(q.Question)]++
		a.CognitiveLevels[ClassifyCognitiveLevel(q.Question)]++

		optionWords := 0
		for _, text := range q.Options {
			optionWords += len(strings.Fields(text))
		}
		score := float64(len(strings.Fields(q.Explanation))+optionWords) / 10
		a.Complexity = append(a.Complexity, round2(score))
	}

	a.WordFrequencies[CategoryQuestions] = WordFrequencies(questions, topQuizTokens)
	a.WordFrequencies[CategoryExplanations] = WordFrequencies(explanations, topQuizTokens)
	a.WordFrequencies[CategoryOptions] = WordFrequencies(options, topQuizTokens)
	return a
}

// sortedLetters returns the option letters in alphabetical order so option
// text is always visited deterministically.
func sortedLetters(options map[string]string) []string {
	letters := make([]string, 0, len(options))
	for letter := range options {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

// QuestionTally is the aggregated correct/wrong count for one question
// across all student result files. Questions are keyed by their literal
// text: two differently worded but equivalent questions are tallied
// separately. That is a documented limitation of the record format, kept
// as-is so existing result files stay comparable.
type QuestionTally struct {
	Question string
	Correct  int
	Wrong    int
}

// AggregateStudents tallies per-question results across student records,
// in first-encountered question order.
func AggregateStudents(records []model.StudentRecord) []QuestionTally {
	index := make(map[string]int)
	var tallies []QuestionTally
	for _, rec := range records {
		for _, res := range rec.Results {
			i, ok := index[res.Question]
			if !ok {
				i = len(tallies)
				index[res.Question] = i
				tallies = append(tallies, QuestionTally{Question: res.Question})
			}
			if res.IsCorrect {
				tallies[i].Correct++
			} else {
				tallies[i].Wrong++
			}
		}
	}
	return tallies
}

// ColumnStats holds descriptive statistics for one numeric feedback column,
// rounded to two decimal places.
type ColumnStats struct {
	Name   string
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// SummarizeNumeric computes mean, sample standard deviation, min, and max
// per numeric column. Columns without any parsable value are skipped.
func SummarizeNumeric(columns []model.NumericColumn) []ColumnStats {
	var stats []ColumnStats
	for _, col := range columns {
		if len(col.Values) == 0 {
			continue
		}
		st := ColumnStats{Name: col.Name, Count: len(col.Values)}
		st.Min = col.Values[0]
		st.Max = col.Values[0]
		sum := 0.0
		for _, v := range col.Values {
			sum += v
			st.Min = math.Min(st.Min, v)
			st.Max = math.Max(st.Max, v)
		}
		mean := sum / float64(len(col.Values))

		variance := 0.0
		if len(col.Values) > 1 {
			for _, v := range col.Values {
				variance += (v - mean) * (v - mean)
			}
			variance /= float64(len(col.Values) - 1)
		}

		st.Mean = round2(mean)
		st.StdDev = round2(math.Sqrt(variance))
		st.Min = round2(st.Min)
		st.Max = round2(st.Max)
		stats = append(stats, st)
	}
	return stats
}

// Interpretation band message IDs, resolved through the i18n bundle.
const (
	BandExcellent    = "band.excellent"
	BandVeryGood     = "band.very_good"
	BandGood         = "band.good"
	BandSatisfactory = "band.satisfactory"
	BandNeedsWork    = "band.needs_improvement"
)

// InterpretationBand maps a column mean to its qualitative band.
func InterpretationBand(mean float64) string {
	switch {
	case mean >= 8.0:
		return BandExcellent
	case mean >= 7.0:
		return BandVeryGood
	case mean >= 6.0:
		return BandGood
	case mean >= 5.0:
		return BandSatisfactory
	default:
		return BandNeedsWork
	}
}

// FeedbackAnalysis is the aggregate view of the class feedback file.
type FeedbackAnalysis struct {
	ColumnOrder []string
	Themes      map[string][]TokenCount
	Stats       []ColumnStats
}

// AnalyzeFeedback builds per-column frequency tables and numeric summaries.
func AnalyzeFeedback(table *model.FeedbackTable) *FeedbackAnalysis {
	fa := &FeedbackAnalysis{Themes: make(map[string][]TokenCount)}
	for _, col := range table.TextColumns {
		fa.ColumnOrder = append(fa.ColumnOrder, col.Name)
		fa.Themes[col.Name] = WordFrequencies(col.Values, topFeedbackTokens)
	}
	fa.Stats = SummarizeNumeric(table.NumericColumns)
	return fa
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
