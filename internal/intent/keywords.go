package intent

import (
	"regexp"
	"strings"

	"clinic-agent/internal/textnorm"
)

// Keyword tables are matched against folded text (lowercase, no accents).
var (
	taskTokens = []string{"tache", "taches", "todo", "todos", "task", "tasks"}
	taskPhrases = []string{"a faire", "assigne", "assigner", "attribue", "to-do", "to do"}

	meetingKeywords = []string{
		"reunion", "meeting", "seance", "transcript", "compte rendu", "compte-rendu",
		"discute", "discussion", "decide", "decision", "colloque",
	}
	documentKeywords = []string{
		"document", "fichier", "pdf", "rapport", "protocole", "procedure",
		"facture", "contrat", "courrier", "lettre",
	}
	internetKeywords = []string{
		"prix", "tarif", "cout", "fournisseur", "coordonnees", "telephone",
		"adresse", "site web", "internet", "en ligne", "acheter", "produit",
		"actualite", "contact",
	}
	assistanceKeywords = []string{
		"aide-moi", "aide moi", "peux-tu", "peux tu", "comment utiliser",
		"que sais-tu faire", "help",
	}
	timeKeywords = []string{
		"aujourd'hui", "aujourdhui", "hier", "demain", "cette semaine",
		"semaine derniere", "ce mois", "mois dernier", "derniere", "dernier", "recent",
	}

	stopWords = map[string]bool{
		"le": true, "la": true, "les": true, "un": true, "une": true, "des": true,
		"du": true, "de": true, "et": true, "ou": true, "pour": true, "dans": true,
		"sur": true, "avec": true, "par": true, "que": true, "qui": true, "quoi": true,
		"est": true, "sont": true, "quel": true, "quelle": true, "quels": true,
		"quelles": true, "nous": true, "vous": true, "mon": true, "ton": true,
		"son": true, "mes": true, "tes": true, "ses": true, "notre": true,
		"votre": true, "leur": true, "cette": true, "ces": true, "cet": true,
		"comment": true, "pourquoi": true, "quand": true, "avoir": true,
		"etre": true, "fait": true, "faire": true, "tout": true, "tous": true,
		"plus": true, "moins": true, "tres": true, "aussi": true, "alors": true,
		"donc": true, "mais": true, "peux": true, "peut": true, "dire": true,
		"sais": true, "elle": true, "elles": true, "ils": true, "entre": true,
		"the": true, "what": true, "about": true, "with": true,
	}

	createPattern = regexp.MustCompile(`\b(cree|creer|creez|ajoute|ajouter|ajoutez|nouvelle|nouveau|create|add)\b`)
	updatePattern = regexp.MustCompile(`\b(modifie|modifier|change|changer|mets a jour|mettre a jour|update|termine|terminer|marque|complete|completer)\b`)
	deletePattern = regexp.MustCompile(`\b(supprime|supprimer|efface|effacer|retire|retirer|delete|remove)\b`)
	helpPattern   = regexp.MustCompile(`\b(aide|help|comment faire|explique)\b`)
)

// IsTaskRelated is the fast keyword pass that short-circuits classification.
func IsTaskRelated(message string) bool {
	for _, tok := range textnorm.Tokens(message) {
		for _, k := range taskTokens {
			if tok == k {
				return true
			}
		}
	}
	return textnorm.ContainsAny(message, taskPhrases...)
}

// ExtractTerms returns up to n significant words in order of appearance:
// longer than three characters, not stop words, deduplicated.
func ExtractTerms(message string, n int) []string {
	var out []string
	seen := map[string]bool{}
	for _, tok := range textnorm.Tokens(message) {
		if len([]rune(tok)) <= 3 || stopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == n {
			break
		}
	}
	return out
}

func detectAction(message string) *Action {
	f := textnorm.Fold(message)
	switch {
	case deletePattern.MatchString(f):
		return &Action{Type: ActionDelete}
	case createPattern.MatchString(f):
		return &Action{Type: ActionCreate}
	case updatePattern.MatchString(f):
		return &Action{Type: ActionUpdate}
	case helpPattern.MatchString(f):
		return &Action{Type: ActionHelp}
	}
	return nil
}

func detectTime(message string) string {
	f := textnorm.Fold(message)
	for _, k := range timeKeywords {
		if strings.Contains(f, k) {
			return k
		}
	}
	return ""
}
