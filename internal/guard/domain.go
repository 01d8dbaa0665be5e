package guard

import (
	"fmt"

	"school-chatbot/internal/lexicon"
	"school-chatbot/internal/timeparse"
)

// DomainRulesVersion identifies the canonical education-domain lexicon.
const DomainRulesVersion = "domain/2025.2"

var domainPhrases = []string{
	// records
	"mark", "marks", "score", "scores", "scored", "result", "results",
	"grade", "grades", "graded", "average", "percentage", "report card", "academic", "academics",
	"academic record", "academic records",
	// attendance
	"attendance", "attend", "attended", "attending", "present", "absent", "absence", "absences",
	// school life
	"subject", "subjects", "exam", "exams", "test", "tests", "class", "school", "homework",
	"teacher", "semester", "term",
	// performance and advice
	"performance", "performing", "progress", "progress report", "improve", "improvement",
	"study", "studies", "studying", "feedback", "suggest", "suggestion", "suggestions",
	"advice", "guidance", "strongest", "weakest", "strong subjects", "weak subjects",
	"how am i doing",
	// subjects
	"math", "maths", "mathematics", "science", "english", "history", "geography",
	"physics", "chemistry", "biology", "hindi", "computer", "computers", "economics",
	"social studies",
}

var domainRule = lexicon.Any(
	lexicon.Phrases(domainPhrases...),
	lexicon.Func{Name: "temporal follow-up", Fn: timeparse.IsBareFollowUp},
)

// InDomain reports whether msg carries at least one education-domain cue.
func InDomain(msg string) bool {
	_, ok := domainRule.Match(msg)
	return ok
}

// OffDomainReply is the fixed redirect for messages outside the school domain.
func OffDomainReply(officePhone string) string {
	reply := "I can help only with school-related topics such as academics, attendance, exams, and results."
	if officePhone == "" {
		return reply + "\nFor other matters, please contact the school office."
	}
	return reply + fmt.Sprintf("\nFor other matters, please contact the school office at %s.", officePhone)
}
