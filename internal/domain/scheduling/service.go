package scheduling

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	validator AppointmentValidator
	log       zerolog.Logger
}

// NewService wires a repository and a booking policy. A nil policy means
// BaseValidator.
func NewService(repo Repository, v AppointmentValidator, logger zerolog.Logger) *Service {
	if v == nil {
		v = BaseValidator{}
	}
	return &Service{repo: repo, validator: v, log: logger}
}

// -- Doctors --

func (s *Service) RegisterDoctor(ctx context.Context, d Doctor) (Doctor, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Specialty = strings.TrimSpace(d.Specialty)
	if err := validateDoctor(d); err != nil {
		return Doctor{}, err
	}
	return s.repo.SaveDoctor(ctx, d)
}

func (s *Service) ListSpecialties(ctx context.Context) ([]string, error) {
	return s.repo.ListSpecialties(ctx)
}

func (s *Service) ListDoctorsBySpecialty(ctx context.Context, specialty string) ([]Doctor, error) {
	if specialty == "" {
		return nil, fmt.Errorf("%w: specialty is required", ErrInvalidDoctor)
	}
	return s.repo.ListDoctorsBySpecialty(ctx, specialty)
}

// -- Appointments --

// BookAppointment checks a against the stored appointments and saves it when
// the policy approves.
func (s *Service) BookAppointment(ctx context.Context, a Appointment) (Appointment, error) {
	a.Patient.Name = strings.TrimSpace(a.Patient.Name)
	if err := validateAppointment(a); err != nil {
		return Appointment{}, err
	}

	existing, err := s.repo.LoadAll(ctx)
	if err != nil {
		return Appointment{}, err
	}

	if !s.validator.IsValid(a, existing) {
		s.log.Info().
			Int64("doctor_id", a.Doctor.ID).
			Time("scheduled_at", a.ScheduledAt).
			Msg("appointment rejected")
		return Appointment{}, ErrAppointmentRejected
	}

	saved, err := s.repo.Save(ctx, a)
	if err != nil {
		return Appointment{}, err
	}

	s.log.Info().
		Int64("appointment_id", saved.ID).
		Int64("doctor_id", saved.Doctor.ID).
		Int64("patient_id", saved.Patient.ID).
		Msg("appointment booked")
	return saved, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.LoadAll(ctx)
}
