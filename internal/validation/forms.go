package validation

import "time"

// UserForm is the raw sign-up input.
type UserForm struct {
	Name  string `json:"name" validate:"min=2,max=50"`
	Email string `json:"email" validate:"email"`
	Phone string `json:"phone" validate:"phone"`
}

// UserInput is a validated UserForm.
type UserInput struct {
	Name  string
	Email string
	Phone string
}

// PatientForm is the raw registration input. Consents must all be true.
type PatientForm struct {
	UserID                 string `json:"user_id" validate:"required"`
	Name                   string `json:"name" validate:"min=2,max=50"`
	Email                  string `json:"email" validate:"email"`
	Phone                  string `json:"phone" validate:"phone"`
	BirthDate              string `json:"birth_date" validate:"required,date"`
	Gender                 string `json:"gender" validate:"oneof=male female other"`
	Address                string `json:"address" validate:"min=5,max=500"`
	Occupation             string `json:"occupation" validate:"min=2,max=500"`
	EmergencyContactName   string `json:"emergency_contact_name" validate:"min=2,max=50"`
	EmergencyContactNumber string `json:"emergency_contact_number" validate:"phone"`
	PrimaryPhysician       string `json:"primary_physician" validate:"min=2"`
	InsuranceProvider      string `json:"insurance_provider" validate:"min=2,max=50"`
	InsurancePolicyNumber  string `json:"insurance_policy_number" validate:"min=2,max=50"`
	Allergies              string `json:"allergies"`
	CurrentMedication      string `json:"current_medication"`
	FamilyMedicalHistory   string `json:"family_medical_history"`
	PastMedicalHistory     string `json:"past_medical_history"`
	IdentificationType     string `json:"identification_type"`
	IdentificationNumber   string `json:"identification_number"`
	TreatmentConsent       bool   `json:"treatment_consent" validate:"eq=true"`
	DisclosureConsent      bool   `json:"disclosure_consent" validate:"eq=true"`
	PrivacyConsent         bool   `json:"privacy_consent" validate:"eq=true"`
}

// PatientInput is a validated PatientForm with coerced dates and optional fields.
type PatientInput struct {
	UserID                 string
	Name                   string
	Email                  string
	Phone                  string
	BirthDate              time.Time
	Gender                 string
	Address                string
	Occupation             string
	EmergencyContactName   string
	EmergencyContactNumber string
	PrimaryPhysician       string
	InsuranceProvider      string
	InsurancePolicyNumber  string
	Allergies              *string
	CurrentMedication      *string
	FamilyMedicalHistory   *string
	PastMedicalHistory     *string
	IdentificationType     *string
	IdentificationNumber   *string
	TreatmentConsent       bool
	DisclosureConsent      bool
	PrivacyConsent         bool
}

// AppointmentForm is the raw appointment input shared by every action.
type AppointmentForm struct {
	PrimaryPhysician   string `json:"primary_physician"`
	Schedule           string `json:"schedule"`
	Reason             string `json:"reason"`
	Note               string `json:"note"`
	CancellationReason string `json:"cancellation_reason"`
}

// AppointmentInput is an AppointmentForm validated against one action's schema.
type AppointmentInput struct {
	PrimaryPhysician   string
	Schedule           time.Time
	Reason             string
	Note               *string
	CancellationReason *string
}

type createSchema struct {
	PrimaryPhysician string `json:"primary_physician" validate:"min=2"`
	Schedule         string `json:"schedule" validate:"required,date"`
	Reason           string `json:"reason" validate:"min=2,max=500"`
}

type scheduleSchema struct {
	PrimaryPhysician string `json:"primary_physician" validate:"min=2"`
	Schedule         string `json:"schedule" validate:"required,date"`
}

type cancelSchema struct {
	PrimaryPhysician   string `json:"primary_physician" validate:"min=2"`
	Schedule           string `json:"schedule" validate:"required,date"`
	CancellationReason string `json:"cancellation_reason" validate:"min=2,max=500"`
}
