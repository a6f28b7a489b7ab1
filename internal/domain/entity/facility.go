package entity

import "time"

// Facility is a health facility identified by its KMHFL code.
type Facility struct {
	KMHFLCode string
	Name      string
	County    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Practitioner links a NURSE user to a FHIR practitioner identity.
type Practitioner struct {
	ID        string
	UserID    string
	Names     string
	CreatedAt time.Time
}
