package validation

import (
	"fmt"
	"strings"
)

// ValidateUser checks a sign-up form and returns the normalized input.
func ValidateUser(form UserForm) (UserInput, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Phone = strings.TrimSpace(form.Phone)
	if err := check(form); err != nil {
		return UserInput{}, err
	}
	return UserInput{Name: form.Name, Email: form.Email, Phone: form.Phone}, nil
}

// ValidatePatient checks a registration form, coercing the birth date and
// turning blank optional fields into nil.
func ValidatePatient(form PatientForm) (PatientInput, error) {
	form.UserID = strings.TrimSpace(form.UserID)
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Phone = strings.TrimSpace(form.Phone)
	form.BirthDate = strings.TrimSpace(form.BirthDate)
	form.Gender = strings.ToLower(strings.TrimSpace(form.Gender))
	form.Address = strings.TrimSpace(form.Address)
	form.Occupation = strings.TrimSpace(form.Occupation)
	form.EmergencyContactName = strings.TrimSpace(form.EmergencyContactName)
	form.EmergencyContactNumber = strings.TrimSpace(form.EmergencyContactNumber)
	form.PrimaryPhysician = strings.TrimSpace(form.PrimaryPhysician)
	form.InsuranceProvider = strings.TrimSpace(form.InsuranceProvider)
	form.InsurancePolicyNumber = strings.TrimSpace(form.InsurancePolicyNumber)
	if err := check(form); err != nil {
		return PatientInput{}, err
	}
	birth, err := ParseDate(form.BirthDate)
	if err != nil {
		// unreachable once the "date" rule passed
		return PatientInput{}, &Error{Fields: map[string]string{"birth_date": "Invalid birth date"}}
	}
	return PatientInput{
		UserID:                 form.UserID,
		Name:                   form.Name,
		Email:                  form.Email,
		Phone:                  form.Phone,
		BirthDate:              birth,
		Gender:                 form.Gender,
		Address:                form.Address,
		Occupation:             form.Occupation,
		EmergencyContactName:   form.EmergencyContactName,
		EmergencyContactNumber: form.EmergencyContactNumber,
		PrimaryPhysician:       form.PrimaryPhysician,
		InsuranceProvider:      form.InsuranceProvider,
		InsurancePolicyNumber:  form.InsurancePolicyNumber,
		Allergies:              optional(form.Allergies),
		CurrentMedication:      optional(form.CurrentMedication),
		FamilyMedicalHistory:   optional(form.FamilyMedicalHistory),
		PastMedicalHistory:     optional(form.PastMedicalHistory),
		IdentificationType:     optional(form.IdentificationType),
		IdentificationNumber:   optional(form.IdentificationNumber),
		TreatmentConsent:       form.TreatmentConsent,
		DisclosureConsent:      form.DisclosureConsent,
		PrivacyConsent:         form.PrivacyConsent,
	}, nil
}

// ValidateAppointment checks form against the schema for action. Fields the
// schema does not require are carried through when present.
func ValidateAppointment(action Action, form AppointmentForm) (AppointmentInput, error) {
	form.PrimaryPhysician = strings.TrimSpace(form.PrimaryPhysician)
	form.Schedule = strings.TrimSpace(form.Schedule)
	form.Reason = strings.TrimSpace(form.Reason)
	form.Note = strings.TrimSpace(form.Note)
	form.CancellationReason = strings.TrimSpace(form.CancellationReason)

	var err error
	switch action {
	case ActionCreate:
		err = check(createSchema{
			PrimaryPhysician: form.PrimaryPhysician,
			Schedule:         form.Schedule,
			Reason:           form.Reason,
		})
	case ActionSchedule:
		err = check(scheduleSchema{
			PrimaryPhysician: form.PrimaryPhysician,
			Schedule:         form.Schedule,
		})
	case ActionCancel:
		err = check(cancelSchema{
			PrimaryPhysician:   form.PrimaryPhysician,
			Schedule:           form.Schedule,
			CancellationReason: form.CancellationReason,
		})
	default:
		return AppointmentInput{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if err != nil {
		return AppointmentInput{}, err
	}

	schedule, err := ParseDate(form.Schedule)
	if err != nil {
		return AppointmentInput{}, &Error{Fields: map[string]string{"schedule": "Invalid schedule date"}}
	}
	return AppointmentInput{
		PrimaryPhysician:   form.PrimaryPhysician,
		Schedule:           schedule,
		Reason:             form.Reason,
		Note:               optional(form.Note),
		CancellationReason: optional(form.CancellationReason),
	}, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
