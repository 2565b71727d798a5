package factoring

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExecutiveName deriva el nombre del ejecutivo desde su correo: "kevin.tupac@x.cl" → "Kevin Tupac".
func ExecutiveName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = strings.Join(strings.Fields(strings.ReplaceAll(local, ".", " ")), " ")
	return cases.Title(language.Spanish).String(local)
}
