package mockapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/resources"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// listQuery is the parsed query of a list request. Limit 0 means unpaged.
type listQuery struct {
	Limit     int
	Offset    int
	Type      string
	Search    string
	DoctorID  *int64
	PatientID *int64
	// OwnerID is the caller's id when the list was asked with owner=me.
	OwnerID   *int64
}

func (q listQuery) matches(fields ...string) bool {
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func page[T any](items []T, q listQuery) []T {
	if q.Offset >= len(items) {
		return []T{}
	}
	items = items[q.Offset:]
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items
}

type doctorRecord struct {
	model.Doctor
	PasswordHash string
}

type image struct {
	ContentType string
	Data        []byte
}

// Store is the in-memory backing store of the mock API. Every method returns
// copies.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID       int64
	doctors      map[int64]*doctorRecord
	patients     map[int64]*model.Patient
	medicines    map[int64][]model.Medicine
	vaccines     map[int64][]model.VaccineHistory
	appointments map[int64]*model.Appointment
	questions    map[int64]*model.Question
	contents     map[string]*model.Content
	images       map[string]image
}

func NewStore() *Store {
	return &Store{
		now:          time.Now,
		doctors:      make(map[int64]*doctorRecord),
		patients:     make(map[int64]*model.Patient),
		medicines:    make(map[int64][]model.Medicine),
		vaccines:     make(map[int64][]model.VaccineHistory),
		appointments: make(map[int64]*model.Appointment),
		questions:    make(map[int64]*model.Question),
		contents:     make(map[string]*model.Content),
		images:       make(map[string]image),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func notFound(resource string) error {
	return apperrors.FromStatus(http.StatusNotFound, resource+" not found")
}

func conflict(msg string) error {
	return apperrors.FromStatus(http.StatusConflict, msg)
}

func unprocessable(msg string) error {
	return apperrors.FromStatus(http.StatusUnprocessableEntity, msg)
}

// ---- doctors ----

func (s *Store) CreateDoctor(req model.CreateDoctorRequest, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(req.Email))
	for _, d := range s.doctors {
		if d.Email == email {
			return 0, conflict("email already in use")
		}
	}
	id := s.id()
	s.doctors[id] = &doctorRecord{
		Doctor: model.Doctor{
			ID:        id,
			Email:     email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      req.Role,
			Specialty: req.Specialty,
			CreatedAt: s.now().UTC(),
		},
		PasswordHash: hash,
	}
	return id, nil
}

func (s *Store) doctorByEmail(email string) (doctorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, d := range s.doctors {
		if d.Email == email {
			return *d, true
		}
	}
	return doctorRecord{}, false
}

func (s *Store) Doctor(id int64) (model.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return model.Doctor{}, notFound("doctor")
	}
	return d.Doctor, nil
}

func (s *Store) ListDoctors(q listQuery) []model.Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Doctor
	for _, id := range sortedIDs(s.doctors) {
		d := s.doctors[id]
		if q.Type != "" && d.Role != q.Type {
			continue
		}
		if !q.matches(d.FirstName, d.LastName, d.Email) {
			continue
		}
		out = append(out, d.Doctor)
	}
	return page(out, q)
}

func (s *Store) UpdateDoctor(id int64, req model.UpdateDoctorRequest, hash *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[id]
	if !ok {
		return notFound("doctor")
	}
	if req.FirstName != nil {
		d.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		d.LastName = *req.LastName
	}
	if req.Role != nil {
		d.Role = *req.Role
	}
	if req.Specialty != nil {
		d.Specialty = *req.Specialty
	}
	if hash != nil {
		d.PasswordHash = *hash
	}
	return nil
}

func (s *Store) DeleteDoctor(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return notFound("doctor")
	}
	delete(s.doctors, id)
	return nil
}

// ---- patients ----

func (s *Store) CreatePatient(req model.CreatePatientRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.DoctorID != nil {
		if _, ok := s.doctors[*req.DoctorID]; !ok {
			return 0, unprocessable("unknown doctor")
		}
	}
	id := s.id()
	s.patients[id] = &model.Patient{
		ID:        id,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		DoctorID:  req.DoctorID,
		BirthDate: req.BirthDate,
		CreatedAt: s.now().UTC(),
	}
	return id, nil
}

func (s *Store) Patient(id int64) (model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return model.Patient{}, notFound("patient")
	}
	out := *p
	out.Medicines = append([]model.Medicine(nil), s.medicines[id]...)
	out.Vaccines = append([]model.VaccineHistory(nil), s.vaccines[id]...)
	return out, nil
}

func (s *Store) ListPatients(q listQuery) []model.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Patient
	for _, id := range sortedIDs(s.patients) {
		p := s.patients[id]
		if q.DoctorID != nil && (p.DoctorID == nil || *p.DoctorID != *q.DoctorID) {
			continue
		}
		if !q.matches(p.FirstName, p.LastName, p.Email, fmt.Sprint(p.ID)) {
			continue
		}
		out = append(out, *p)
	}
	return page(out, q)
}

func (s *Store) UpdatePatient(id int64, req model.UpdatePatientRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return notFound("patient")
	}
	if req.DoctorID != nil {
		if _, ok := s.doctors[*req.DoctorID]; !ok {
			return unprocessable("unknown doctor")
		}
		p.DoctorID = req.DoctorID
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	return nil
}

func (s *Store) DeletePatient(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return notFound("patient")
	}
	delete(s.patients, id)
	delete(s.medicines, id)
	delete(s.vaccines, id)
	return nil
}

func (s *Store) Medicines(patientID int64) ([]model.Medicine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, notFound("patient")
	}
	return append([]model.Medicine{}, s.medicines[patientID]...), nil
}

// ReplaceMedicines stores items as the patient's whole list. Rows with ID 0
// get a new ID.
func (s *Store) ReplaceMedicines(patientID int64, items []model.Medicine) ([]model.Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, notFound("patient")
	}
	out := make([]model.Medicine, len(items))
	for i, m := range items {
		if m.ID == 0 {
			m.ID = s.id()
		}
		out[i] = m
	}
	s.medicines[patientID] = out
	return append([]model.Medicine{}, out...), nil
}

func (s *Store) Vaccines(patientID int64) ([]model.VaccineHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, notFound("patient")
	}
	return append([]model.VaccineHistory{}, s.vaccines[patientID]...), nil
}

func (s *Store) ReplaceVaccines(patientID int64, items []model.VaccineHistory) ([]model.VaccineHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok {
		return nil, notFound("patient")
	}
	out := make([]model.VaccineHistory, len(items))
	for i, v := range items {
		if v.ID == 0 {
			v.ID = s.id()
		}
		out[i] = v
	}
	s.vaccines[patientID] = out
	return append([]model.VaccineHistory{}, out...), nil
}

// ---- appointments ----

func (s *Store) checkLinks(doctorID, patientID int64) error {
	if _, ok := s.doctors[doctorID]; !ok {
		return unprocessable("unknown doctor")
	}
	if _, ok := s.patients[patientID]; !ok {
		return unprocessable("unknown patient")
	}
	return nil
}

func (s *Store) CreateAppointment(req model.CreateAppointmentRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLinks(req.DoctorID, req.PatientID); err != nil {
		return 0, err
	}
	if !req.Date.After(s.now()) {
		return 0, unprocessable("appointment date must be in the future")
	}
	id := s.id()
	s.appointments[id] = &model.Appointment{
		ID:        id,
		DoctorID:  req.DoctorID,
		PatientID: req.PatientID,
		Date:      req.Date.UTC(),
		Note:      req.Note,
		CreatedAt: s.now().UTC(),
	}
	return id, nil
}

func (s *Store) Appointment(id int64) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appointments[id]
	if !ok {
		return model.Appointment{}, notFound("appointment")
	}
	return *a, nil
}

func (s *Store) ListAppointments(q listQuery) []model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []model.Appointment
	for _, id := range sortedIDs(s.appointments) {
		a := s.appointments[id]
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		switch q.Type {
		case resources.AppointmentsHistory:
			if !a.IsHistory(now) {
				continue
			}
		case resources.AppointmentsUpcoming:
			if a.IsHistory(now) {
				continue
			}
		}
		out = append(out, *a)
	}
	return page(out, q)
}

func (s *Store) UpdateAppointment(id int64, req model.UpdateAppointmentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return notFound("appointment")
	}
	next := *a
	if req.DoctorID != nil {
		next.DoctorID = *req.DoctorID
	}
	if req.PatientID != nil {
		next.PatientID = *req.PatientID
	}
	if err := s.checkLinks(next.DoctorID, next.PatientID); err != nil {
		return err
	}
	if req.Date != nil {
		if req.Date.IsZero() || !req.Date.After(s.now()) {
			return unprocessable("appointment date must be in the future")
		}
		next.Date = req.Date.UTC()
	}
	if req.Note != nil {
		next.Note = *req.Note
	}
	if req.ApprovedAt != nil {
		if a.Approved() {
			return conflict("appointment is already approved")
		}
		if a.IsHistory(s.now()) {
			return unprocessable("appointment is in the past")
		}
		at := req.ApprovedAt.UTC()
		next.ApprovedAt = &at
	}
	*a = next
	return nil
}

func (s *Store) DeleteAppointment(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.appointments[id]; !ok {
		return notFound("appointment")
	}
	delete(s.appointments, id)
	return nil
}

// ---- questions ----

// AddQuestion stores a question as the patient app would.
func (s *Store) AddQuestion(q model.Question) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[q.PatientID]; !ok {
		return 0, unprocessable("unknown patient")
	}
	q.ID = s.id()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now().UTC()
	}
	s.questions[q.ID] = &q
	return q.ID, nil
}

func (s *Store) Question(id int64) (model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return model.Question{}, notFound("question")
	}
	return *q, nil
}

func (s *Store) ListQuestions(q listQuery) []model.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Question
	for _, id := range sortedIDs(s.questions) {
		item := s.questions[id]
		if q.PatientID != nil && item.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && (item.DoctorID == nil || *item.DoctorID != *q.DoctorID) {
			continue
		}
		if q.OwnerID != nil && !s.ownsQuestion(*q.OwnerID, item) {
			continue
		}
		switch q.Type {
		case resources.QuestionsAnswered:
			if !item.Answered() {
				continue
			}
		case resources.QuestionsUnanswered:
			if item.Answered() {
				continue
			}
		}
		out = append(out, *item)
	}
	return page(out, q)
}

// ownsQuestion reports whether doctor answered q or treats its patient. Must
// be called with mu held.
func (s *Store) ownsQuestion(doctor int64, q *model.Question) bool {
	if q.DoctorID != nil && *q.DoctorID == doctor {
		return true
	}
	p, ok := s.patients[q.PatientID]
	return ok && p.DoctorID != nil && *p.DoctorID == doctor
}

func (s *Store) AnswerQuestion(id, doctorID int64, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return notFound("question")
	}
	q.Answer = &answer
	q.DoctorID = &doctorID
	return nil
}

func (s *Store) DeleteQuestion(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return notFound("question")
	}
	delete(s.questions, id)
	return nil
}

// ---- contents ----

func (s *Store) CreateContent(req model.CreateContentRequest, authorID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slug := strings.TrimSpace(req.ID)
	if _, ok := s.contents[slug]; ok {
		return "", conflict("content id already in use")
	}
	s.contents[slug] = &model.Content{
		ID:        slug,
		Type:      req.Type,
		Title:     req.Title,
		Body:      req.Body,
		Published: req.Published,
		AuthorID:  authorID,
		CreatedAt: s.now().UTC(),
	}
	return slug, nil
}

func (s *Store) Content(id string) (model.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[id]
	if !ok {
		return model.Content{}, notFound("content")
	}
	return *c, nil
}

func (s *Store) ListContents(q listQuery) []model.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Content, 0, len(s.contents))
	for _, c := range s.contents {
		if q.Type != "" && string(c.Type) != q.Type {
			continue
		}
		if q.OwnerID != nil && c.AuthorID != *q.OwnerID {
			continue
		}
		if !q.matches(c.ID, c.Title) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, q)
}

func (s *Store) UpdateContent(id string, req model.UpdateContentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return notFound("content")
	}
	if req.Type != nil {
		c.Type = *req.Type
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Body != nil {
		c.Body = *req.Body
	}
	if req.Published != nil {
		c.Published = *req.Published
	}
	return nil
}

func (s *Store) DeleteContent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contents[id]; !ok {
		return notFound("content")
	}
	delete(s.contents, id)
	return nil
}

func (s *Store) SaveImage(name, contentType string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[name] = image{ContentType: contentType, Data: data}
}

func (s *Store) Image(name string) (image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[name]
	return img, ok
}
