package tasks

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"clinic-agent/internal/chat"
	"clinic-agent/internal/roster"
	"clinic-agent/internal/textnorm"
)

const maxDescriptionLen = 150

// Verb patterns run on folded text. The earliest match in the message wins.
var (
	createVerb   = regexp.MustCompile(`\b(cree[rz]?|creee|ajoute[rz]?|nouvelle tache|nouveau todo|create|add|assign\w*|(?:tache|action) pour|fai[st] une tache|rappelle[- ]moi)\b`)
	updateVerb   = regexp.MustCompile(`\b(modifie[rz]?|change[rz]?|renomme[rz]?|mets a jour|mettre a jour|update)\b`)
	completeVerb = regexp.MustCompile(`\b(termine[erz]?|terminee|marque[rz]?|complete[rz]?|finie?|cloture[rz]?|done)\b`)
)

// Description patterns run on the original text, in order.
var descriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:cr[ée]e[rz]?|cr[ée]{2}e|ajoute[rz]?)\s+(?:une|la|un|le)?\s*(?:nouvelle\s+|nouveau\s+)?(?:t[âa]che|todo|action)\s*(?::|-)?\s*(.+)`),
	regexp.MustCompile(`(?i)nouvel(?:le)?\s+(?:t[âa]che|todo|action)\s*(?::|-)?\s*(.+)`),
	regexp.MustCompile(`(?i)(?:rappelle|rappeler)[- ]moi\s+(?:de\s+|d')?(.+)`),
	regexp.MustCompile(`(?i)(?:il faut|je dois|on doit|n'oublie pas de)\s+(.+)`),
}

var (
	assignClause   = regexp.MustCompile(`(?i)[,;]?\s*(?:et\s+)?(?:l['’]\s*|la\s+)?(?:assign|attribu)\S*\s+(?:la\s+|cette\s+)?(?:t[âa]che\s+)?(?:à|a)\s+.*$`)
	assignName     = regexp.MustCompile(`(?i)(?:assign|attribu)\S*\s+(?:la\s+|cette\s+)?(?:t[âa]che\s+)?(?:à|a)\s+([\p{L}][\p{L}'.-]*(?:\s+[\p{L}][\p{L}'.-]*)?)`)
	forName        = regexp.MustCompile(`[Pp]our\s+(\p{Lu}[\p{L}'-]+(?:\s+\p{Lu}[\p{L}'-]+)?)`)
	ownerClause    = regexp.MustCompile(`(?i)[,;]?\s*(?:responsable|assign[ée]e?)\s*:\s*.*$`)
	ownerName      = regexp.MustCompile(`(?i)(?:responsable|assign[ée]e?)\s*:\s*([\p{L}][\p{L}'.-]*(?:\s+[\p{L}][\p{L}'.-]*)?)`)
	trailingFor    = regexp.MustCompile(`\s+[Pp]our\s+\p{Lu}[\p{L}'-]+(?:\s+\p{Lu}[\p{L}'-]+)?\s*$`)
	leadingFiller  = regexp.MustCompile(`(?i)^(?:(?:pour|de|afin de)\s+|d')`)
	taskWord       = regexp.MustCompile(`(?i)t[âa]che|todo`)
	uuidPattern    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	newDescription = regexp.MustCompile(`(?i)(?:\ben\b|\bpar\b|:)\s*[«"“]\s*(.+?)\s*[»"”]`)
)

// assignQuestions are the phrasings an assistant turn uses to ask for an
// assignee, folded.
var assignQuestions = []string{
	"qui devrais-je assigner",
	"a qui dois-je assigner",
	"a qui assigner",
	"assigner cette tache",
	"a qui voulez-vous assigner",
	"qui doit s'en occuper",
}

// DetectVerb finds the task operation a message asks for. Messages with no
// recognizable verb are treated as a listing request.
func DetectVerb(message string) Verb {
	f := textnorm.Fold(message)
	best, at := VerbList, -1
	for _, c := range []struct {
		v  Verb
		re *regexp.Regexp
	}{{VerbCreate, createVerb}, {VerbUpdate, updateVerb}, {VerbComplete, completeVerb}} {
		if loc := c.re.FindStringIndex(f); loc != nil && (at < 0 || loc[0] < at) {
			best, at = c.v, loc[0]
		}
	}
	return best
}

// ExtractDescription pulls the task text out of a creation request, without
// the assignment clause.
func ExtractDescription(message string) string {
	var desc string
	for _, re := range descriptionPatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			desc = m[1]
			break
		}
	}
	if desc == "" {
		desc = keywordScan(message)
	}
	return cleanDescription(desc)
}

func keywordScan(message string) string {
	if loc := taskWord.FindStringIndex(message); loc != nil {
		return message[loc[1]:]
	}
	return message
}

func cleanDescription(desc string) string {
	desc = assignClause.ReplaceAllString(desc, "")
	desc = ownerClause.ReplaceAllString(desc, "")
	desc = trailingFor.ReplaceAllString(desc, "")

	// "pour David: appeler le labo" keeps only what follows the name.
	if m := forName.FindStringSubmatchIndex(desc); m != nil && m[0] == 0 {
		rest := strings.TrimLeft(desc[m[1]:], " ")
		if strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, ",") || strings.HasPrefix(rest, "-") {
			desc = rest[1:]
		}
	}

	desc = strings.Trim(desc, " \t\n.,;:!?-\"'«»")
	desc = leadingFiller.ReplaceAllString(desc, "")
	desc = strings.Trim(desc, " \t\n.,;:!?-\"'«»")
	return MakeConcise(desc)
}

// MakeConcise caps a description: the first sentence if it fits, otherwise a
// truncation with an ellipsis.
func MakeConcise(desc string) string {
	desc = strings.Join(strings.Fields(desc), " ")
	if utf8.RuneCountInString(desc) <= maxDescriptionLen {
		return desc
	}
	if i := strings.Index(desc, ". "); i > 0 && utf8.RuneCountInString(desc[:i+1]) <= maxDescriptionLen {
		return desc[:i+1]
	}
	r := []rune(desc)
	return strings.TrimSpace(string(r[:maxDescriptionLen-3])) + "..."
}

// ExtractAssigneeName returns the free-text name a message assigns a task
// to, or "".
func ExtractAssigneeName(message string) string {
	for _, re := range []*regexp.Regexp{assignName, ownerName, forName} {
		if m := re.FindStringSubmatch(message); m != nil {
			return strings.Trim(m[1], " .,;:!?")
		}
	}
	return ""
}

// AwaitingAssignment reports whether message answers an assistant question
// asking who should own a task.
func AwaitingAssignment(message string, history []chat.Turn) bool {
	if !roster.LooksLikeName(message) || DetectVerb(message) == VerbCreate {
		return false
	}
	for _, t := range chat.LastAssistant(history, 3) {
		if textnorm.ContainsAny(t.Content, assignQuestions...) {
			return true
		}
	}
	return false
}

// previousCreateRequest finds the description of the latest earlier user
// turn that asked to create a task.
func previousCreateRequest(history []chat.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		if t.IsUser && DetectVerb(t.Content) == VerbCreate {
			if d := ExtractDescription(t.Content); d != "" {
				return d
			}
		}
	}
	return ""
}

// matchScore is the share of a description's tokens found in the message.
func matchScore(message, description string) float64 {
	desc := textnorm.Tokens(description)
	if len(desc) == 0 {
		return 0
	}
	msg := map[string]bool{}
	for _, t := range textnorm.Tokens(message) {
		msg[t] = true
	}
	hit := 0
	for _, t := range desc {
		if msg[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(desc))
}

// statusFromMessage maps "en attente" / "confirmée" / "terminée" to a status.
func statusFromMessage(message string) string {
	f := textnorm.Fold(message)
	switch {
	case strings.Contains(f, "en attente"):
		return "pending"
	case strings.Contains(f, "confirme"):
		return "confirmed"
	case completeVerb.MatchString(f):
		return "completed"
	}
	return ""
}
