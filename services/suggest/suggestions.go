package suggest

import "github.com/finsolve/knowledge-gateway/models"

// roleSuggestions maps roles to starter questions tailored to the content
// they can actually see. Static; configured alongside the role graph.
var roleSuggestions = map[models.RoleID][]string{
	"hr_employee": {
		"What is the leave policy?",
		"Explain the hiring process",
		"What benefits are provided to employees?",
	},
	"finance_employee": {
		"Summarize the quarterly financial report",
		"What is the revenue growth?",
		"Explain financial performance",
	},
	"engineering_employee": {
		"Explain engineering guidelines",
		"What are the development standards?",
		"Describe system architecture",
	},
	"marketing_employee": {
		"Summarize the latest campaign results",
		"What is the customer acquisition cost?",
	},
	"employee": {
		"What is in the employee handbook?",
		"Explain company policies",
		"Leave and attendance rules",
	},
	"admin": {
		"Give an overview of financial performance",
		"Summarize HR and employee status",
		"Overall company performance",
	},
}

// ForRole returns starter questions for the role. Unknown roles get the
// generic employee set so the UI always has something to show; suggestions
// carry no authorization weight.
func ForRole(roleID models.RoleID) []string {
	if s, ok := roleSuggestions[roleID]; ok {
		return append([]string(nil), s...)
	}
	return append([]string(nil), roleSuggestions["employee"]...)
}
