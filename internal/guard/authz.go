// Package guard holds the hard-deny authorization checks and the school-domain
// scope check that run after the safety screen.
package guard

import "school-chatbot/internal/lexicon"

// DenyReason names which authorization check rejected a message.
type DenyReason string

const (
	ReasonNone          DenyReason = ""
	ReasonCrossIdentity DenyReason = "cross_identity"
	ReasonMutation      DenyReason = "mutation"
)

// AuthzRulesVersion identifies the canonical authorization lexicon.
const AuthzRulesVersion = "authz/2025.2"

const (
	crossIdentityReply = "You are not authorized to view another student's academic data. " +
		"You can only ask about your own records."
	mutationReply = "You are not authorized to modify academic records. " +
		"Please contact the school office if you believe a record is incorrect."
)

// Decision is the authorization outcome for one message.
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
	Phrase  string     `json:"phrase,omitempty"`
	Reply   string     `json:"-"`
}

var (
	crossIdentityPhrases = []string{
		"another student", "another student's", "other student", "other students",
		"other student's", "student id", "student ids", "roll number",
		"friend", "friends", "friend's", "classmate", "classmates", "classmate's",
		"someone else", "someone else's", "somebody else", "somebody else's",
	}
	mutationPhrases = []string{
		"update", "updates", "updated", "updating",
		"delete", "deletes", "deleted", "deleting",
		"change", "changes", "changed", "changing",
		"edit", "edits", "edited", "editing",
		"modify", "modifies", "modified", "modifying",
		"remove", "removes", "removed", "removing",
		"correct", "corrects", "corrected", "correcting",
		"alter", "alters", "altered", "altering",
	}
)

var authzRules = lexicon.NewTable(AuthzRulesVersion,
	lexicon.Entry[DenyReason]{Label: ReasonCrossIdentity, Rule: lexicon.Phrases(crossIdentityPhrases...)},
	lexicon.Entry[DenyReason]{Label: ReasonMutation, Rule: lexicon.Phrases(mutationPhrases...)},
)

// Authorize applies both hard-deny checks. Cross-identity is checked first.
func Authorize(msg string) Decision {
	reason, phrase, ok := authzRules.First(msg)
	if !ok {
		return Decision{Allowed: true}
	}
	d := Decision{Allowed: false, Reason: reason, Phrase: phrase}
	switch reason {
	case ReasonCrossIdentity:
		d.Reply = crossIdentityReply
	case ReasonMutation:
		d.Reply = mutationReply
	}
	return d
}

// AuthzTable exposes the rule table for consistency checks.
func AuthzTable() *lexicon.Table[DenyReason] {
	return authzRules
}
