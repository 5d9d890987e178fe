// Package patients implements user sign-up and patient registration,
// including the optional identification document upload.
package patients

import "time"

// Patient is the medical profile attached to one user account.
type Patient struct {
	ID                        string    `json:"id"`
	UserID                    string    `json:"user_id"`
	Name                      string    `json:"name"`
	Email                     string    `json:"email"`
	Phone                     string    `json:"phone"`
	BirthDate                 time.Time `json:"birth_date"`
	Gender                    string    `json:"gender"`
	Address                   string    `json:"address"`
	Occupation                string    `json:"occupation"`
	EmergencyContactName      string    `json:"emergency_contact_name"`
	EmergencyContactNumber    string    `json:"emergency_contact_number"`
	PrimaryPhysician          string    `json:"primary_physician"`
	InsuranceProvider         string    `json:"insurance_provider"`
	InsurancePolicyNumber     string    `json:"insurance_policy_number"`
	Allergies                 *string   `json:"allergies"`
	CurrentMedication         *string   `json:"current_medication"`
	FamilyMedicalHistory      *string   `json:"family_medical_history"`
	PastMedicalHistory        *string   `json:"past_medical_history"`
	IdentificationType        *string   `json:"identification_type"`
	IdentificationNumber      *string   `json:"identification_number"`
	IdentificationDocumentID  *string   `json:"identification_document_id"`
	IdentificationDocumentURL *string   `json:"identification_document_url"`
	TreatmentConsent          bool      `json:"treatment_consent"`
	DisclosureConsent         bool      `json:"disclosure_consent"`
	PrivacyConsent            bool      `json:"privacy_consent"`
	CreatedAt                 time.Time `json:"created_at"`
}
