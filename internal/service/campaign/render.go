package campaign

import (
	"regexp"

	"github.com/ignite/leadflow/internal/domain"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// renderVars returns the substitution variables for a lead. Built-in keys
// take precedence over custom fields of the same name.
func renderVars(c *domain.Campaign, l domain.Lead) map[string]string {
	vars := make(map[string]string, len(l.CustomFields)+8)
	for k, v := range l.CustomFields {
		vars[k] = v
	}
	vars["firstName"] = l.FirstName
	vars["lastName"] = l.LastName
	vars["fullName"] = l.FullName()
	vars["email"] = l.Email
	vars["phone"] = l.Phone
	vars["company"] = l.Company
	vars["source"] = l.Source
	vars["campaignName"] = c.Name
	return vars
}

// render substitutes {{key}} placeholders. Unknown keys are left intact.
func render(tpl string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}
