// Package safety implements the lexical content-safety screen that runs before
// any other stage of the chat pipeline.
package safety

import (
	"fmt"

	"school-chatbot/internal/lexicon"
)

// Category is the taxonomy bucket of a safety verdict.
type Category string

const (
	CategorySystem   Category = "SYSTEM"
	CategoryViolence Category = "VIOLENCE"
	CategoryIllegal  Category = "ILLEGAL"
	CategoryAbuse    Category = "ABUSE"
	CategoryOK       Category = "OK"
)

// RulesVersion identifies the canonical lexicon below.
const RulesVersion = "safety/2025.2"

// Verdict is the result of screening one message. Exactly one category is set.
type Verdict struct {
	Allowed   bool     `json:"allowed"`
	Category  Category `json:"category"`
	Rationale string   `json:"rationale,omitempty"`
}

var (
	systemPhrases = []string{
		"ignore rules", "ignore previous instructions", "ignore your instructions",
		"bypass", "jailbreak", "system prompt", "developer message",
		"pretend you are admin", "act as admin",
		"password", "passwords", "otp", "credit card", "bank details",
	}
	violencePhrases = []string{
		"kill", "kills", "killing", "murder", "attack", "fight",
		"weapon", "weapons", "gun", "guns", "knife", "bomb",
		"terror", "terrorist", "suicide", "die", "death",
	}
	illegalPhrases = []string{
		"hack", "hacking", "crack", "phish", "phishing",
		"steal", "theft", "fraud", "scam",
		"drugs", "alcohol", "smoke", "cigarette", "weed",
	}
	abusePhrases = []string{
		"abuse", "abusive", "harass", "harassment",
		"hate", "hateful", "racist", "sexist",
		"bully", "bullying",
		"idiot", "stupid", "moron", "dumb",
	}
)

// rules is evaluated in fixed priority: SYSTEM, VIOLENCE, ILLEGAL, ABUSE.
var rules = lexicon.NewTable(RulesVersion,
	lexicon.Entry[Category]{Label: CategorySystem, Rule: lexicon.Phrases(systemPhrases...)},
	lexicon.Entry[Category]{Label: CategoryViolence, Rule: lexicon.Phrases(violencePhrases...)},
	lexicon.Entry[Category]{Label: CategoryIllegal, Rule: lexicon.Phrases(illegalPhrases...)},
	lexicon.Entry[Category]{Label: CategoryAbuse, Rule: lexicon.Phrases(abusePhrases...)},
)

// Screen returns the safety verdict for msg. It never fails.
func Screen(msg string) Verdict {
	category, phrase, ok := rules.First(msg)
	if !ok {
		return Verdict{Allowed: true, Category: CategoryOK}
	}
	return Verdict{
		Allowed:   false,
		Category:  category,
		Rationale: fmt.Sprintf("matched %q in %s lexicon", phrase, category),
	}
}

// Table exposes the rule table for consistency checks.
func Table() *lexicon.Table[Category] {
	return rules
}

// Redirect returns the fixed reply body for a blocked message.
func Redirect(category Category) string {
	switch category {
	case CategorySystem:
		return "I can't help with requests about system access, credentials or private financial details. " +
			"I can answer questions about marks, attendance and academic progress."
	case CategoryViolence:
		return "Your message mentions harm or violence, so I can't continue with it. " +
			"If anyone is in danger, please contact a teacher, the school office or emergency services right away."
	case CategoryIllegal:
		return "I can't help with anything unsafe or against the rules. " +
			"I'm happy to help with marks, attendance and study questions."
	case CategoryAbuse:
		return "Let's keep our conversation respectful. " +
			"I'm here to help with school topics like marks, attendance and exams."
	default:
		return "Your message cannot be processed due to safety policies. " +
			"Please contact the school office for further assistance."
	}
}
