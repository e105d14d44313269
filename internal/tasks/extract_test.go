package tasks

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestDetectVerb(t *testing.T) {
	cases := map[string]Verb{
		"Crée une tâche pour rappeler le fournisseur":      VerbCreate,
		"Ajoute une tâche: commander des gants":            VerbCreate,
		"Modifie la tâche du colloque":                     VerbUpdate,
		"Marque la tâche lentilles comme terminée":         VerbComplete,
		"Quelles tâches sont terminées ?":                  VerbList,
		"Quelles sont mes tâches ?":                        VerbList,
		"Crée une tâche pour compléter le dossier patient": VerbCreate,
		"Rappelle-moi d'appeler le labo, assigne à David":  VerbCreate,
		"Il faut appeler le labo, assigne à David":         VerbCreate,
		"Tâche pour Leïla: relancer le fournisseur":        VerbCreate,
		"Fais une tâche pour le colloque":                  VerbCreate,
		"Action pour David : signer le devis":              VerbCreate,
	}
	for msg, want := range cases {
		assert.Equal(t, want, DetectVerb(msg), msg)
	}
}

func TestExtractDescription(t *testing.T) {
	cases := map[string]string{
		"Crée une tâche pour rappeler le fournisseur, assigne à David": "rappeler le fournisseur",
		"Crée une tâche pour David: appeler le labo":                   "appeler le labo",
		"Nouvelle tâche - demander le devis":                           "demander le devis",
		"Rappelle-moi de vérifier le stock de lentilles":               "vérifier le stock de lentilles",
		"Ajoute une tâche préparer la salle pour Émilie":               "préparer la salle",
		"Nouvelle tâche : envoyer le devis, responsable : Leïla":       "envoyer le devis",
		"Créer une tâche appeler le labo et l'assigner à Emilie":       "appeler le labo",
		"Il faut appeler le labo, assigne à David":                     "appeler le labo",
	}
	for msg, want := range cases {
		assert.Equal(t, want, ExtractDescription(msg), msg)
	}
}

func TestExtractAssigneeName(t *testing.T) {
	assert.Equal(t, "David", ExtractAssigneeName("Crée une tâche pour rappeler le fournisseur, assigne à David"))
	assert.Equal(t, "Dr Tabibian", ExtractAssigneeName("Crée une tâche: vérifier le planning, attribue-la à Dr Tabibian"))
	assert.Equal(t, "Émilie", ExtractAssigneeName("Ajoute une tâche préparer la salle pour Émilie"))
	assert.Equal(t, "", ExtractAssigneeName("Crée une tâche pour commander des lentilles"))
}

func TestMakeConcise(t *testing.T) {
	assert.Equal(t, "appeler le labo", MakeConcise("  appeler   le labo "))

	first := "Appeler le laboratoire pour confirmer la livraison."
	long := first + " " + strings.Repeat("Puis vérifier chaque lot reçu. ", 6)
	assert.Equal(t, first, MakeConcise(long))

	noStop := strings.Repeat("mot ", 60)
	got := MakeConcise(noStop)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), maxDescriptionLen)
}

func TestMatchScore(t *testing.T) {
	assert.Equal(t, 1.0, matchScore("Marque commander des lentilles comme fait", "Commander des lentilles"))
	assert.Zero(t, matchScore("bonjour", "Commander des lentilles"))
	assert.Zero(t, matchScore("bonjour", ""))
}

func TestStatusFromMessage(t *testing.T) {
	assert.Equal(t, "pending", statusFromMessage("Remets la tâche en attente"))
	assert.Equal(t, "confirmed", statusFromMessage("La tâche est confirmée"))
	assert.Equal(t, "completed", statusFromMessage("C'est terminé"))
	assert.Equal(t, "", statusFromMessage("Change la description"))
}
