package models

// All returns every model owned by the scribe pipeline, in migration order
func All() []any {
	return []any{
		&Appointment{},
		&Recording{},
		&Transcript{},
		&ClinicalNote{},
	}
}
