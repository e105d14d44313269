package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Pairs observed in real meetings. The first group must be caught at the
// default threshold, the second must not.
func TestIsDuplicateDefaultThreshold(t *testing.T) {
	existing := []string{
		"Commander des lentilles toriques pour le bloc",
		"Préparer le colloque budget annuel",
		"Relancer le laboratoire pour les résultats de Mme Favre",
	}

	dups := []string{
		"Commander des lentilles toriques pour le bloc.",
		"préparer le colloque BUDGET annuel",
		"Relancer le laboratoire pour les résultats de Mme Favre !",
	}
	for _, d := range dups {
		assert.True(t, IsDuplicate(d, existing, DefaultDedupThreshold), d)
	}

	distinct := []string{
		"Commander des lentilles souples pour le cabinet",
		"Préparer le colloque qualité",
		"Relancer le laboratoire",
		"Appeler le fournisseur de tonomètres",
	}
	for _, d := range distinct {
		assert.False(t, IsDuplicate(d, existing, DefaultDedupThreshold), d)
	}
}

func TestIsDuplicateThresholdIsConfigurable(t *testing.T) {
	existing := []string{"Relancer le laboratoire pour les résultats de Mme Favre"}
	assert.False(t, IsDuplicate("Relancer le laboratoire", existing, DefaultDedupThreshold))
	assert.True(t, IsDuplicate("Relancer le laboratoire", existing, 0.3))
}

func TestIsDuplicateNoHistory(t *testing.T) {
	assert.False(t, IsDuplicate("Commander des lentilles", nil, DefaultDedupThreshold))
}
