package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	MRN         string     `db:"mrn" json:"mrn"`
	FirstName   string     `db:"first_name" json:"firstName"`
	LastName    string     `db:"last_name" json:"lastName"`
	BirthDate   *time.Time `db:"birth_date" json:"birthDate,omitempty"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	PhoneMobile *string    `db:"phone_mobile" json:"phoneMobile,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// AgeAt returns the patient's age in whole years at the given time, or -1 if
// the birth date is unknown.
func (p *Patient) AgeAt(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	age := now.Year() - p.BirthDate.Year()
	// Birthday hasn't happened yet this year.
	anniversary := p.BirthDate.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Ref is the lightweight patient reference embedded in dashboard responses.
type Ref struct {
	ID       uuid.UUID `json:"id"`
	MRN      string    `json:"mrn"`
	FullName string    `json:"fullName"`
	Age      *int      `json:"age,omitempty"`
	Gender   *string   `json:"gender,omitempty"`
}

// NewRef builds a Ref from a Patient, computing age as of now.
func NewRef(p *Patient, now time.Time) Ref {
	ref := Ref{
		ID:       p.ID,
		MRN:      p.MRN,
		FullName: p.FullName(),
		Gender:   p.Gender,
	}
	if age := p.AgeAt(now); age >= 0 {
		ref.Age = &age
	}
	return ref
}
