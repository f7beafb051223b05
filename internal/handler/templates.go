package handler

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"crmweb/internal/domain"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		// Math functions
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},

		// Date/Time functions
		"year": func() int {
			return time.Now().Year()
		},
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},

		// String functions
		"lower": func(s string) string {
			return strings.ToLower(s)
		},
		"upper": func(s string) string {
			return strings.ToUpper(s)
		},
		"title": func(v interface{}) string {
			s := fmt.Sprint(v)
			return cases.Title(language.English).String(s)
		},
		"truncate": func(s string, length int) string {
			if len(s) <= length {
				return s
			}
			return s[:length] + "..."
		},

		// Conditional/Logic functions
		"ternary": func(condition bool, trueVal, falseVal interface{}) interface{} {
			if condition {
				return trueVal
			}
			return falseVal
		},
		"default": func(defaultVal, val interface{}) interface{} {
			if val == nil || val == "" || val == 0 {
				return defaultVal
			}
			return val
		},

		// Form helpers
		"csrfField": func(token string) template.HTML {
			return template.HTML(fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, template.HTMLEscapeString(token)))
		},
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},

		// Status badge helper for contacts and companies.
		// Accepts interface{} to handle the domain.Status string type.
		"statusColor": func(status interface{}) string {
			switch fmt.Sprint(status) {
			case "Active":
				return "badge badge-active"
			case "Inactive":
				return "badge badge-inactive"
			case "Prospect":
				return "badge badge-prospect"
			default:
				return "badge"
			}
		},

		// Revenue formatting for company lists
		"formatRevenue": func(revenue *float64) string {
			if revenue == nil {
				return "N/A"
			}
			return fmt.Sprintf("$%.2f", *revenue)
		},

		// Option lists for form selects
		"statuses": func() []domain.Status {
			return domain.Statuses()
		},
		"companySizes": func() []domain.CompanySize {
			return domain.CompanySizes()
		},
	}
}
