package models_test

import (
	"testing"

	"gatepay/internal/models"

	"github.com/stretchr/testify/assert"
)

var table = map[string]models.ErrorMapping{
	"81715": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldNumber},
	"81707": {Target: models.TargetCreditCard, Kind: models.KindInvalid, Field: models.FieldCVV},
}

func TestResult_ErrorsFor(t *testing.T) {
	res := models.NewResult(false, nil, models.WithErrors(
		models.MapError(table, "81715", "raw-number"),
		models.MapError(table, "81707", "raw-cvv"),
		models.MapError(table, "99999", "raw-unknown"),
	))

	cards := res.ErrorsFor(models.TargetCreditCard)
	assert.Len(t, cards, 2)
	assert.Len(t, cards[models.FieldNumber], 1)
	assert.Equal(t, models.KindInvalid, cards[models.FieldNumber][0].Kind)

	unknown := res.ErrorsForField(models.TargetUnknown, models.FieldUnknown)
	if assert.Len(t, unknown, 1) {
		assert.Equal(t, models.KindUnknown, unknown[0].Kind)
		assert.Equal(t, "raw-unknown", unknown[0].Raw)
	}

	assert.Len(t, res.Errors(), 3)
	assert.True(t, res.Failed())
	assert.True(t, res.HasErrors())
}

func TestResult_SuccessfulWithErrorsPanics(t *testing.T) {
	assert.Panics(t, func() {
		models.NewResult(true, nil, models.WithErrors(models.UnknownMapping.With(nil)))
	})
}

func TestMapError_Deterministic(t *testing.T) {
	for code := range table {
		assert.Equal(t, models.MapError(table, code, nil), models.MapError(table, code, nil))
	}
	assert.Equal(t, "unknown.unknown.unknown", models.MapError(table, "nope", nil).String())
}
