// Package tone wraps final reply text for the audience it is addressed to.
package tone

import (
	"strings"

	"school-chatbot/internal/safety"
)

const (
	RoleParent  = "parent"
	RoleStudent = "student"
)

// EmptyBody replaces a blank reply body.
const EmptyBody = "We are unable to process your request at the moment. Please try again later."

var softening = map[string]string{
	RoleParent: "We understand this may be a sensitive matter. " +
		"Our staff are available to discuss any concerns about your child's wellbeing.",
	RoleStudent: "If something is bothering you, please talk to your class teacher or school counsellor. " +
		"You are not alone.",
	"": "If you need support, please reach out to the school office.",
}

// Adapt wraps body with the salutation and sign-off for role. When category
// names a blocked safety category, a role-specific softening clause is added.
// Adapt never fails: a blank body becomes a generic apology and an unknown
// role gets a neutral wrapper.
func Adapt(role, body string, category safety.Category) string {
	body = strings.TrimSpace(body)
	if body == "" {
		body = EmptyBody
	}

	role = strings.ToLower(strings.TrimSpace(role))
	if category != "" && category != safety.CategoryOK {
		clause, ok := softening[role]
		if !ok {
			clause = softening[""]
		}
		body += "\n\n" + clause
	}

	switch role {
	case RoleParent:
		return "Dear Parent,\n\n" +
			body + "\n\n" +
			"If you require further assistance, please feel free to contact the school office.\n\n" +
			"Regards,\n" +
			"School Administration"
	case RoleStudent:
		return "Hello!\n\n" +
			body + "\n\n" +
			"Keep learning, stay curious, and do your best!"
	default:
		return body + "\n\n" + "School Support Team"
	}
}
