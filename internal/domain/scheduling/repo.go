package scheduling

import "context"

// Repository persists doctors, patients and appointments. Every call takes
// its own connection and gives it back before returning.
type Repository interface {
	// Save stores a, creating its patient when no (name, age) match exists.
	// The doctor must already exist. The returned copy carries the patient
	// and appointment ids.
	Save(ctx context.Context, a Appointment) (Appointment, error)
	// SaveDoctor returns the stored doctor with d's (name, specialty),
	// creating it if needed.
	SaveDoctor(ctx context.Context, d Doctor) (Doctor, error)
	LoadAll(ctx context.Context) ([]Appointment, error)
	ListSpecialties(ctx context.Context) ([]string, error)
	ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error)
}
