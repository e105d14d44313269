package websearch

import (
	"strings"

	"clinic-agent/internal/intent"
)

const validationRules = `RÈGLES STRICTES:
1. Coordonnées UNIQUEMENT si trouvées sur des sources officielles.
2. Téléphones au format +41/+33 seulement si vérifiés.
3. Emails contact@/info@ seulement s'ils figurent sur le site officiel.
4. Sites web en lien markdown complet [nom](https://url).
5. Ne jamais inventer une coordonnée manquante. Si rien n'est trouvé, ne pas en parler.`

const basePrompt = `Tu assistes un cabinet d'ophtalmologie situé à Genève, en Suisse. Réponds en français, de façon concise et factuelle. Les prix sont en CHF.
`

func systemPrompt(kind Enrichment, product bool) string {
	if product {
		return basePrompt + `Tu recherches des fournisseurs médicaux et techniques en Suisse et en Europe.
` + validationRules
	}
	mission := map[Enrichment]string{
		Complement:   "Mission: compléter des informations manquantes avec des sources vérifiables.",
		Supplement:   "Mission: enrichir avec des informations récentes et validées.",
		Verification: "Mission: vérifier et actualiser des informations existantes.",
	}[kind]
	return basePrompt + validationRules + "\n" + mission
}

func searchPrompt(query string, in intent.Intent, kind Enrichment, product bool) string {
	terms := append(append([]string{}, in.SearchTerms...), in.Synonyms...)
	if len(terms) == 0 {
		terms = strings.Fields(query)
	}

	var b strings.Builder
	switch {
	case product:
		b.WriteString("Recherche de fournisseurs spécialisés: ")
	case kind == Complement:
		b.WriteString("Recherche d'informations: ")
	case kind == Supplement:
		b.WriteString("Informations récentes en ophtalmologie sur: ")
	default:
		b.WriteString("Vérification d'informations: ")
	}
	b.WriteString(query)
	b.WriteString("\nTermes: ")
	b.WriteString(strings.Join(terms, ", "))
	return b.String()
}
