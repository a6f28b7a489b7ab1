package entity

import "time"

// Patient is a maternal health record subject.
type Patient struct {
	ID              string
	FirstName       string
	LastName        string
	OtherNames      string
	BirthDate       time.Time
	Sex             string
	Phone           string
	InpatientNumber string
	FacilityCode    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Observation is a single clinical measurement for a patient.
// Either ValueNumeric (with Unit) or ValueString is set, not both.
type Observation struct {
	ID           string
	PatientID    string
	Code         string
	Display      string
	ValueNumeric *float64
	ValueString  string
	Unit         string
	EffectiveAt  time.Time
	CreatedAt    time.Time
}

// Attachment is a document (scan report, referral letter) stored in
// object storage and linked to a patient.
type Attachment struct {
	ID          string
	PatientID   string
	URL         string
	ContentType string
	Title       string
	CreatedAt   time.Time
}
