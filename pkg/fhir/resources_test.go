package fhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

func TestFromPatient(t *testing.T) {
	p := entity.Patient{
		ID:              "p-1",
		FirstName:       "Jane",
		LastName:        "Wanjiru",
		OtherNames:      "Akinyi",
		BirthDate:       time.Date(1994, 5, 12, 0, 0, 0, 0, time.UTC),
		Sex:             "female",
		Phone:           "+254700000001",
		InpatientNumber: "IP-42",
		FacilityCode:    "13023",
	}

	r := FromPatient(p)
	assert.Equal(t, "Patient", r.ResourceType)
	assert.Equal(t, "p-1", r.ID)
	require.Len(t, r.Name, 1)
	assert.Equal(t, "Wanjiru", r.Name[0].Family)
	assert.Equal(t, []string{"Jane", "Akinyi"}, r.Name[0].Given)
	assert.Equal(t, "1994-05-12", r.BirthDate)
	require.Len(t, r.Telecom, 1)
	assert.Equal(t, "+254700000001", r.Telecom[0].Value)
	require.Len(t, r.Identifier, 2)
	assert.Equal(t, Identifier{System: "inpatient-number", Value: "IP-42"}, r.Identifier[0])
	assert.Equal(t, Identifier{System: "kmhfl-code", Value: "13023"}, r.Identifier[1])
}

func TestFromObservationNumeric(t *testing.T) {
	weight := 64.5
	o := entity.Observation{
		ID:           "o-1",
		PatientID:    "p-1",
		Code:         CodeBodyWeight,
		Display:      "Body weight",
		ValueNumeric: &weight,
		Unit:         "kg",
		EffectiveAt:  time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}

	r := FromObservation(o)
	assert.Equal(t, "Observation", r.ResourceType)
	assert.Equal(t, "final", r.Status)
	assert.Equal(t, "Patient/p-1", r.Subject.Reference)
	require.NotNil(t, r.ValueQuantity)
	assert.Equal(t, 64.5, r.ValueQuantity.Value)
	assert.Equal(t, "kg", r.ValueQuantity.Unit)
	assert.Empty(t, r.ValueString)
	assert.Equal(t, "2024-03-01T10:30:00Z", r.EffectiveDateTime)
}

func TestFromObservationString(t *testing.T) {
	o := entity.Observation{
		ID:          "o-2",
		PatientID:   "p-1",
		Code:        CodeVDRL,
		Display:     "VDRL",
		ValueString: "non-reactive",
	}

	r := FromObservation(o)
	assert.Nil(t, r.ValueQuantity)
	assert.Equal(t, "non-reactive", r.ValueString)
}

func TestNewSearchBundleJSON(t *testing.T) {
	b := NewSearchBundle(FromPatient(entity.Patient{ID: "p-1", FirstName: "Jane", LastName: "Wanjiru"}))
	assert.Equal(t, 1, b.Total)

	raw, err := json.Marshal(NewSearchBundle())
	require.NoError(t, err)
	// front-end iterates bundle.entry; it must be [] rather than null
	assert.Contains(t, string(raw), `"entry":[]`)
}
