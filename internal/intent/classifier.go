// Package intent maps a chat message to the structured-data category it
// requests, using one ordered rule table.
package intent

import (
	"strings"

	"school-chatbot/internal/lexicon"
	"school-chatbot/internal/timeparse"
)

// Label is a closed set of intent categories.
type Label string

const (
	LabelAverage            Label = "average"
	LabelAttendance         Label = "attendance"
	LabelSubjectPerformance Label = "subject_performance"
	LabelMarks              Label = "marks"
	LabelStrongestWeakest   Label = "strongest_weakest"
	LabelAdvisor            Label = "advisor"
	LabelNone               Label = "none"
)

// RulesVersion identifies the canonical intent table.
const RulesVersion = "intent/2025.2"

// Subject is a canonical school subject and the spellings that refer to it.
type Subject struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Result is the classification of one message.
type Result struct {
	Label   Label    `json:"label"`
	Subject *Subject `json:"subject,omitempty"`
	Phrase  string   `json:"phrase,omitempty"`
}

// Weakest reports whether a strongest/weakest request asks for the weakest
// subject. Requests naming neither default to strongest.
func (r Result) Weakest() bool {
	return strings.Contains(r.Phrase, "weak") || strings.Contains(r.Phrase, "worst")
}

var subjects = []Subject{
	{Name: "Mathematics", Aliases: []string{"math", "maths", "mathematics"}},
	{Name: "Science", Aliases: []string{"science"}},
	{Name: "English", Aliases: []string{"english"}},
	{Name: "Hindi", Aliases: []string{"hindi"}},
	{Name: "History", Aliases: []string{"history"}},
	{Name: "Geography", Aliases: []string{"geography"}},
	{Name: "Physics", Aliases: []string{"physics"}},
	{Name: "Chemistry", Aliases: []string{"chemistry"}},
	{Name: "Biology", Aliases: []string{"biology"}},
	{Name: "Computer Science", Aliases: []string{"computer science", "computer", "computers"}},
	{Name: "Economics", Aliases: []string{"economics"}},
	{Name: "Social Studies", Aliases: []string{"social studies", "social science", "sst"}},
}

var subjectTable = func() *lexicon.Table[string] {
	entries := make([]lexicon.Entry[string], len(subjects))
	for i, s := range subjects {
		entries[i] = lexicon.Entry[string]{Label: s.Name, Rule: lexicon.Phrases(s.Aliases...)}
	}
	return lexicon.NewTable("subjects/"+RulesVersion, entries...)
}()

var (
	averagePhrases = []string{
		"average", "averages", "avg", "mean score", "overall score", "overall marks",
	}
	attendancePhrases = []string{
		"attendance", "my attendance", "attendance percentage", "percentage",
		"attend", "attended", "attending",
		"present", "absent", "absence", "absences", "was i present", "was i absent",
		"how many days absent", "how many days present", "days absent", "days present",
	}
	performanceCues = lexicon.Phrases(
		"perform", "performing", "performed", "performance",
		"doing", "progress", "improve", "improving", "improvement",
		"weak", "strong", "good at", "better", "struggling", "how am i", "how is my",
	)
	marksPhrases = []string{
		"mark", "marks", "score", "scores", "grade", "grades", "result", "results",
		"exam result", "exam results", "exam score", "exam scores",
		"test result", "test results", "test score", "test scores",
		"academic record", "academic records", "report card",
		"mere marks", "marks batao", "marks kya hai",
	}
	strongestWeakestPhrases = []string{
		"strongest", "weakest", "strongest subject", "weakest subject",
		"best subject", "worst subject",
	}
	advisorPhrases = []string{
		"how am i performing", "how is my performance", "how am i doing",
		"how is my progress", "analyze my progress", "analyze my performance",
		"analyze my academic performance", "performance analysis", "progress report",
		"suggest improvements", "suggestions", "suggest",
		"how can i improve", "improve my studies", "help me improve",
		"study advice", "study plan", "study better",
		"weak subjects", "strong subjects",
		"feedback", "guidance", "parent advice", "academic advice",
	}
)

// subjectPerformance matches a named subject together with a performance verb.
func subjectPerformance(text string) bool {
	if _, _, ok := subjectTable.First(text); !ok {
		return false
	}
	_, ok := performanceCues.Match(text)
	return ok
}

var table = lexicon.NewTable(RulesVersion,
	lexicon.Entry[Label]{Label: LabelAverage, Rule: lexicon.Phrases(averagePhrases...)},
	lexicon.Entry[Label]{Label: LabelAttendance, Rule: lexicon.Any(
		lexicon.Phrases(attendancePhrases...),
		lexicon.Func{Name: "temporal follow-up", Fn: timeparse.IsBareFollowUp},
	)},
	lexicon.Entry[Label]{Label: LabelSubjectPerformance, Rule: lexicon.Func{Name: "subject performance", Fn: subjectPerformance}},
	lexicon.Entry[Label]{Label: LabelMarks, Rule: lexicon.Phrases(marksPhrases...)},
	lexicon.Entry[Label]{Label: LabelStrongestWeakest, Rule: lexicon.Phrases(strongestWeakestPhrases...)},
	lexicon.Entry[Label]{Label: LabelAdvisor, Rule: lexicon.Phrases(advisorPhrases...)},
)

// Classify returns the first matching intent in fixed precedence: average,
// attendance, subject performance, marks, strongest/weakest, advisor.
func Classify(msg string) Result {
	label, phrase, ok := table.First(msg)
	if !ok {
		return Result{Label: LabelNone}
	}
	r := Result{Label: label, Phrase: phrase}
	if label == LabelSubjectPerformance {
		r.Subject = FindSubject(msg)
	}
	return r
}

// FindSubject returns the first school subject named in msg, or nil.
func FindSubject(msg string) *Subject {
	name, _, ok := subjectTable.First(msg)
	if !ok {
		return nil
	}
	for i := range subjects {
		if subjects[i].Name == name {
			s := subjects[i]
			return &s
		}
	}
	return nil
}

// Table exposes the intent rule table for consistency checks.
func Table() *lexicon.Table[Label] {
	return table
}

// SubjectTable exposes the subject alias table.
func SubjectTable() *lexicon.Table[string] {
	return subjectTable
}

// StudentScoped reports whether answering the label needs a student identity.
func (l Label) StudentScoped() bool {
	return l != LabelNone
}
