// Package fhir holds the subset of FHIR R4 resource shapes the browser
// front-end consumes: Patient, Observation and search Bundles.
package fhir

import (
	"time"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
)

// Observation codes recorded by the clinical forms.
const (
	CodeBodyWeight = "29463-7"
	CodeBodyHeight = "8302-2"
	CodeBMI        = "39156-5"
	CodeHIVStatus  = "55277-8"
	CodeVDRL       = "5292-8"
	CodeHemoglobin = "718-7"

	LOINCSystem = "http://loinc.org"
)

type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type"`
	Total        int           `json:"total"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	Resource interface{} `json:"resource"`
}

// NewSearchBundle wraps resources into a searchset Bundle. Entry is never
// null in the JSON output, matching what the front-end iterates over.
func NewSearchBundle(resources ...interface{}) Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, BundleEntry{Resource: r})
	}
	return Bundle{ResourceType: "Bundle", Type: "searchset", Total: len(entries), Entry: entries}
}

type HumanName struct {
	Family string   `json:"family"`
	Given  []string `json:"given"`
}

type ContactPoint struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

type Identifier struct {
	System string `json:"system,omitempty"`
	Value  string `json:"value"`
}

type Patient struct {
	ResourceType string         `json:"resourceType"`
	ID           string         `json:"id,omitempty"`
	Name         []HumanName    `json:"name"`
	BirthDate    string         `json:"birthDate,omitempty"`
	Gender       string         `json:"gender,omitempty"`
	Telecom      []ContactPoint `json:"telecom,omitempty"`
	Identifier   []Identifier   `json:"identifier,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding"`
	Text   string   `json:"text,omitempty"`
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type Reference struct {
	Reference string `json:"reference"`
}

type Observation struct {
	ResourceType      string          `json:"resourceType"`
	ID                string          `json:"id,omitempty"`
	Status            string          `json:"status"`
	Code              CodeableConcept `json:"code"`
	Subject           Reference       `json:"subject"`
	EffectiveDateTime string          `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity       `json:"valueQuantity,omitempty"`
	ValueString       string          `json:"valueString,omitempty"`
}

// FromPatient maps a patient record to its FHIR resource.
func FromPatient(p entity.Patient) Patient {
	out := Patient{
		ResourceType: "Patient",
		ID:           p.ID,
		Name: []HumanName{{
			Family: p.LastName,
			Given:  givenNames(p),
		}},
		Gender: p.Sex,
	}
	if !p.BirthDate.IsZero() {
		out.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	if p.Phone != "" {
		out.Telecom = []ContactPoint{{System: "phone", Value: p.Phone}}
	}
	if p.InpatientNumber != "" {
		out.Identifier = append(out.Identifier, Identifier{System: "inpatient-number", Value: p.InpatientNumber})
	}
	if p.FacilityCode != "" {
		out.Identifier = append(out.Identifier, Identifier{System: "kmhfl-code", Value: p.FacilityCode})
	}
	return out
}

func givenNames(p entity.Patient) []string {
	given := []string{p.FirstName}
	if p.OtherNames != "" {
		given = append(given, p.OtherNames)
	}
	return given
}

// FromObservation maps an observation record to its FHIR resource.
func FromObservation(o entity.Observation) Observation {
	out := Observation{
		ResourceType: "Observation",
		ID:           o.ID,
		Status:       "final",
		Code: CodeableConcept{
			Coding: []Coding{{System: LOINCSystem, Code: o.Code, Display: o.Display}},
			Text:   o.Display,
		},
		Subject: Reference{Reference: "Patient/" + o.PatientID},
	}
	if !o.EffectiveAt.IsZero() {
		out.EffectiveDateTime = o.EffectiveAt.UTC().Format(time.RFC3339)
	}
	if o.ValueNumeric != nil {
		out.ValueQuantity = &Quantity{Value: *o.ValueNumeric, Unit: o.Unit}
	} else {
		out.ValueString = o.ValueString
	}
	return out
}
