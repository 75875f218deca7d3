package mockapi

import (
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
)

// SeedAccount is a sign-in created by Seed.
type SeedAccount struct {
	Email    string
	Password string
	Role     string
}

// SeedAccounts are the accounts Seed creates, one per role.
var SeedAccounts = []SeedAccount{
	{Email: "root@clinic.test", Password: "root-password", Role: rbac.RoleRoot},
	{Email: "admin@clinic.test", Password: "admin-password", Role: rbac.RoleAdmin},
	{Email: "doctor@clinic.test", Password: "doctor-password", Role: rbac.RoleUser},
}

// Seed fills the store with a small clinic: one doctor per role, patients
// with medicines and vaccines, upcoming and past appointments, questions
// and content pages.
func Seed(s *Store, hasher PasswordHasher, patients int) error {
	var doctorIDs []int64
	for i, acc := range SeedAccounts {
		hash, err := hasher.Hash(acc.Password)
		if err != nil {
			return fmt.Errorf("failed to hash seed password: %w", err)
		}
		id, err := s.CreateDoctor(model.CreateDoctorRequest{
			Email:     acc.Email,
			FirstName: []string{"Rhea", "Aditya", "Mira"}[i],
			LastName:  []string{"Shah", "Rao", "Patel"}[i],
			Role:      acc.Role,
			Specialty: []string{"Administration", "General practice", "Pediatrics"}[i],
		}, hash)
		if err != nil {
			return err
		}
		doctorIDs = append(doctorIDs, id)
	}

	firstNames := []string{"Asha", "Ben", "Chen", "Dara", "Eli", "Farah", "Gus", "Hana"}
	lastNames := []string{"Iyer", "Jones", "Kim", "Lopez", "Moreau", "Nakamura"}
	now := s.now()
	for i := 0; i < patients; i++ {
		doctor := doctorIDs[i%len(doctorIDs)]
		pid, err := s.CreatePatient(model.CreatePatientRequest{
			FirstName: firstNames[i%len(firstNames)],
			LastName:  lastNames[i%len(lastNames)],
			Email:     fmt.Sprintf("patient%d@mail.test", i+1),
			DoctorID:  &doctor,
		})
		if err != nil {
			return err
		}
		if _, err := s.ReplaceMedicines(pid, []model.Medicine{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: model.Ptr("twice a day")},
		}); err != nil {
			return err
		}
		if _, err := s.ReplaceVaccines(pid, []model.VaccineHistory{
			{Vaccine: "MMR", Date: now.AddDate(-5, 0, 0).Format("2006-01-02"), Dose: model.Ptr("1")},
		}); err != nil {
			return err
		}

		if _, err := s.CreateAppointment(model.CreateAppointmentRequest{
			DoctorID:  doctor,
			PatientID: pid,
			Date:      now.Add(time.Duration(i+1) * 24 * time.Hour),
		}); err != nil {
			return err
		}
		// Past appointments cannot be created through the API.
		s.mu.Lock()
		past := s.id()
		s.appointments[past] = &model.Appointment{
			ID:        past,
			DoctorID:  doctor,
			PatientID: pid,
			Date:      now.Add(-time.Duration(i+1) * 24 * time.Hour).UTC(),
			CreatedAt: now.UTC(),
		}
		s.mu.Unlock()

		if _, err := s.AddQuestion(model.Question{
			PatientID: pid,
			Title:     "Follow-up",
			Body:      "Should I continue the current medication?",
		}); err != nil {
			return err
		}
	}

	authors := []int64{doctorIDs[0], doctorIDs[1], doctorIDs[1]}
	for i, c := range []model.CreateContentRequest{
		{ID: "clinic-opening-hours", Type: model.ContentNews, Title: "New opening hours", Body: "We are now open on Saturdays.", Published: true},
		{ID: "flu-season", Type: model.ContentArticle, Title: "Getting ready for flu season", Body: "Vaccination is available.", Published: true},
		{ID: "draft-article", Type: model.ContentArticle, Title: "Draft", Body: ""},
	} {
		if _, err := s.CreateContent(c, authors[i]); err != nil {
			return err
		}
		s.mu.Lock()
		s.contents[c.ID].CreatedAt = now.Add(-time.Duration(i) * time.Hour).UTC()
		s.mu.Unlock()
	}
	return nil
}
