package scheduling

// AppointmentValidator decides whether a candidate appointment may be booked
// given the appointments already stored. Implementations must not modify
// either argument.
type AppointmentValidator interface {
	IsValid(candidate Appointment, existing []Appointment) bool
}

// BaseValidator approves everything.
type BaseValidator struct{}

func (BaseValidator) IsValid(Appointment, []Appointment) bool { return true }

// ValidatorFunc adapts a plain function to AppointmentValidator.
type ValidatorFunc func(candidate Appointment, existing []Appointment) bool

func (f ValidatorFunc) IsValid(candidate Appointment, existing []Appointment) bool {
	return f(candidate, existing)
}

// AllOf approves a candidate only when every policy does. With no policies
// it approves.
func AllOf(policies ...AppointmentValidator) AppointmentValidator {
	return ValidatorFunc(func(candidate Appointment, existing []Appointment) bool {
		for _, p := range policies {
			if !p.IsValid(candidate, existing) {
				return false
			}
		}
		return true
	})
}
