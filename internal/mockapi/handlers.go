package mockapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// maxImageSize bounds uploads.
const maxImageSize = 5 << 20

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func parseOptionalID(c *gin.Context, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &id, nil
}

func parseListQuery(c *gin.Context) (listQuery, bool) {
	var q listQuery
	var err error
	if raw := c.Query("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil || q.Limit < 0 {
			badRequest(c, "invalid limit")
			return q, false
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if q.Offset, err = strconv.Atoi(raw); err != nil || q.Offset < 0 {
			badRequest(c, "invalid offset")
			return q, false
		}
	}
	q.Type = c.Query("type")
	q.Search = strings.TrimSpace(c.Query("search"))
	if q.DoctorID, err = parseOptionalID(c, "doctorId"); err != nil {
		badRequest(c, err.Error())
		return q, false
	}
	if q.PatientID, err = parseOptionalID(c, "patientId"); err != nil {
		badRequest(c, err.Error())
		return q, false
	}
	switch owner := strings.TrimSpace(c.Query("owner")); owner {
	case "":
	case paging.OwnerSelf:
		id := subjectID(c)
		q.OwnerID = &id
	default:
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(fmt.Sprintf("unknown owner %q", owner)))
		return q, false
	}
	return q, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
			return false
		}
		badRequest(c, err.Error())
		return false
	}
	return true
}

// ---- auth ----

func (s *Server) login(c *gin.Context) {
	var req model.Credentials
	if !bindJSON(c, &req) {
		return
	}
	doctor, ok := s.store.doctorByEmail(req.Email)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, NewErrorResponse("no account with this email"))
		return
	}
	if err := s.hasher.Compare(doctor.PasswordHash, req.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, NewErrorResponse("invalid email or password"))
		return
	}
	token, exp, err := s.tokens.Issue(doctor.ID, doctor.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	maxAge := int(exp.Sub(s.store.now()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, maxAge, "/", "", false, true)
	c.JSON(http.StatusOK, model.LoginResponse{Token: token})
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) userData(c *gin.Context) {
	c.JSON(http.StatusOK, model.Identity{SubjectID: subjectID(c), Role: role(c)})
}

// ---- doctors ----

func (s *Server) listDoctors(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.ListDoctors(q))
}

func (s *Server) getDoctor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := s.store.Doctor(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) createDoctor(c *gin.Context) {
	var req model.CreateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
		return
	}
	id, err := s.store.CreateDoctor(req, hash)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, model.CreatedID{ID: id})
}

// updateDoctor lets a doctor change their own password and name; anything
// else needs update-doctor.
func (s *Server) updateDoctor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.UpdateDoctorRequest
	if !bindJSON(c, &req) {
		return
	}
	self := id == subjectID(c) && req.Role == nil
	if !self && !rbac.Check(role(c), rbac.UpdateDoctor) {
		c.AbortWithStatusJSON(http.StatusForbidden, NewErrorResponse("permission denied"))
		return
	}
	var hash *string
	if req.Password != nil {
		h, err := s.hasher.Hash(*req.Password)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
			return
		}
		hash = &h
	}
	if err := s.store.UpdateDoctor(id, req, hash); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteDoctor(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if id == subjectID(c) {
		c.AbortWithStatusJSON(http.StatusConflict, NewErrorResponse("cannot delete your own account"))
		return
	}
	if err := s.store.DeleteDoctor(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- patients ----

func (s *Server) listPatients(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.ListPatients(q))
}

func (s *Server) getPatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := s.store.Patient(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) createPatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := s.store.CreatePatient(req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, model.CreatedID{ID: id})
}

func (s *Server) updatePatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.store.UpdatePatient(id, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deletePatient(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeletePatient(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listMedicines(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	items, err := s.store.Medicines(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) saveMedicines(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var items []model.Medicine
	if !bindJSON(c, &items) {
		return
	}
	for _, m := range items {
		if err := s.validate.Struct(m); err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
			return
		}
	}
	saved, err := s.store.ReplaceMedicines(id, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (s *Server) listVaccines(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	items, err := s.store.Vaccines(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) saveVaccines(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var items []model.VaccineHistory
	if !bindJSON(c, &items) {
		return
	}
	for _, v := range items {
		if err := s.validate.Struct(v); err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, NewErrorResponse(err.Error()))
			return
		}
	}
	saved, err := s.store.ReplaceVaccines(id, items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// ---- appointments ----

func (s *Server) listAppointments(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.ListAppointments(q))
}

func (s *Server) getAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := s.store.Appointment(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) createAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := s.store.CreateAppointment(req)
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, model.CreatedID{ID: id})
}

func (s *Server) updateAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ApprovedAt != nil && !rbac.Check(role(c), rbac.ApproveAppointment) {
		c.AbortWithStatusJSON(http.StatusForbidden, NewErrorResponse("permission denied"))
		return
	}
	if err := s.store.UpdateAppointment(id, req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteAppointment(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteAppointment(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- questions ----

func (s *Server) listQuestions(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.ListQuestions(q))
}

func (s *Server) getQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	q, err := s.store.Question(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (s *Server) answerQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req model.AnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.store.AnswerQuestion(id, subjectID(c), req.Answer); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteQuestion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.store.DeleteQuestion(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- contents ----

func (s *Server) listContents(c *gin.Context) {
	q, ok := parseListQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.store.ListContents(q))
}

func (s *Server) getContent(c *gin.Context) {
	item, err := s.store.Content(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) createContent(c *gin.Context) {
	var req model.CreateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	id, err := s.store.CreateContent(req, subjectID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, model.CreatedSlug{ID: id})
}

func (s *Server) updateContent(c *gin.Context) {
	var req model.UpdateContentRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.store.UpdateContent(c.Param("id"), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteContent(c *gin.Context) {
	if err := s.store.DeleteContent(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- images ----

func (s *Server) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}
	if fh.Size > maxImageSize {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, NewErrorResponse("image too large"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		respondError(c, err)
		return
	}
	ctype := http.DetectContentType(data)
	if !strings.HasPrefix(ctype, "image/") {
		respondError(c, apperrors.FromStatus(http.StatusUnprocessableEntity, "file is not an image"))
		return
	}
	name := uuid.New().String() + strings.ToLower(filepath.Ext(fh.Filename))
	s.store.SaveImage(name, ctype, data)
	created(c, model.UploadedImage{PublicURL: strings.TrimRight(s.cfg.ImageBase, "/") + "/" + name})
}

func (s *Server) serveImage(c *gin.Context) {
	img, ok := s.store.Image(c.Param("name"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, NewErrorResponse("image not found"))
		return
	}
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
