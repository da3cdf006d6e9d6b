// Package template expands {{token}} placeholders in channel body templates.
package template

import "strings"

// Render replaces every {{key}} occurrence with the mapped value. Unknown
// tokens stay verbatim so partially configured templates keep working.
func Render(template string, variables map[string]string) string {
	if template == "" || len(variables) == 0 {
		return template
	}

	out := template
	for key, value := range variables {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
