package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

func TestRecordClassification(t *testing.T) {
	record := models.Record{
		"area":  map[string]any{"denominacion": "Ingenierías"},
		"sede":  map[string]any{"denominacion": "Puno"},
		"turno": map[string]any{"denominacion": "Mañana"},
	}

	assert.Equal(t, "Ingenierías", record.Area())
	assert.Equal(t, "Puno", record.Site())
	assert.Equal(t, "Mañana", record.Shift())
}

func TestRecordClassificationFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		record models.Record
	}{
		{"missing keys", models.Record{}},
		{"nil record", nil},
		{"wrong shape", models.Record{"area": "flat", "sede": 42, "turno": []any{}}},
		{"empty denominacion", models.Record{
			"area":  map[string]any{"denominacion": ""},
			"sede":  map[string]any{"denominacion": ""},
			"turno": map[string]any{"denominacion": ""},
		}},
		{"denominacion wrong type", models.Record{
			"area":  map[string]any{"denominacion": 7},
			"sede":  map[string]any{"otro": "x"},
			"turno": map[string]any{"denominacion": nil},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, models.NoArea, tt.record.Area())
			assert.Equal(t, models.NoSite, tt.record.Site())
			assert.Equal(t, models.NoShift, tt.record.Shift())
		})
	}
}

func TestRecordQuantity(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected int
	}{
		{"json number", float64(25), 25},
		{"int", 7, 7},
		{"string", "12", 12},
		{"padded string", " 3 ", 3},
		{"garbage string", "many", 0},
		{"bool", true, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := models.Record{"cantidad": tt.value}
			assert.Equal(t, tt.expected, record.Quantity())
		})
	}

	assert.Equal(t, 0, models.Record{}.Quantity())
}

func TestRecordID(t *testing.T) {
	id, err := models.Record{"id": float64(12345)}.ID()
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	id, err = models.Record{"estudiante_id": "9876"}.ID()
	require.NoError(t, err)
	assert.Equal(t, "9876", id)

	// "id" takes precedence when both are present.
	id, err = models.Record{"id": float64(1), "estudiante_id": float64(2)}.ID()
	require.NoError(t, err)
	assert.Equal(t, "1", id)

	_, err = models.Record{"nombre": "x"}.ID()
	assert.ErrorIs(t, err, models.ErrMissingIdentifier)
}

func TestRecordFieldString(t *testing.T) {
	record := models.Record{"dni": " 70123456 ", "codigo": float64(42)}

	v, ok := record.FieldString("dni")
	assert.True(t, ok)
	assert.Equal(t, "70123456", v)

	v, ok = record.FieldString("codigo")
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	_, ok = record.FieldString("missing")
	assert.False(t, ok)
}

func TestRecordNested(t *testing.T) {
	record := models.Record{
		"estudiante": map[string]any{"nro_documento": "70123456"},
		"plano":      "valor",
	}

	nested, ok := record.Nested("estudiante")
	require.True(t, ok)
	doc, ok := nested.FieldString("nro_documento")
	assert.True(t, ok)
	assert.Equal(t, "70123456", doc)

	_, ok = record.Nested("plano")
	assert.False(t, ok)
	_, ok = record.Nested("missing")
	assert.False(t, ok)
}
