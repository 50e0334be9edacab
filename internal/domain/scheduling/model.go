package scheduling

import "time"

// Doctor is identified by the pair (Name, Specialty). ID is assigned by the
// store and is zero until the doctor has been saved.
type Doctor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required,max=200"`
	Specialty string `json:"specialty" validate:"required,max=200"`
}

// Patient is identified by the pair (Name, Age).
type Patient struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=200"`
	Age  int    `json:"age" validate:"gte=0,lte=150"`
}

// Appointment links a doctor and a patient at a point in time. Appointments
// have no natural key; two identical bookings are two rows.
type Appointment struct {
	ID          int64     `json:"id"`
	Doctor      Doctor    `json:"doctor" validate:"-"`
	Patient     Patient   `json:"patient"`
	ScheduledAt time.Time `json:"scheduled_at"`
}
