// Package app wires the console together: transport, session gate, route
// history, resource services and the list views built on them.
package app

import (
	"context"
	"fmt"

	"github.com/jwalitptl/clinic-admin/config"
	"github.com/jwalitptl/clinic-admin/internal/apiclient"
	"github.com/jwalitptl/clinic-admin/internal/console"
	"github.com/jwalitptl/clinic-admin/internal/listview"
	"github.com/jwalitptl/clinic-admin/internal/localfilter"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/resources"
	"github.com/jwalitptl/clinic-admin/internal/rowedit"
	"github.com/jwalitptl/clinic-admin/internal/session"
	"github.com/jwalitptl/clinic-admin/pkg/logger"
	"github.com/jwalitptl/clinic-admin/pkg/metrics"
)

type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Metrics  *metrics.Metrics
	Notifier notify.Notifier

	Client  *apiclient.Client
	Gate    *session.Gate
	History *console.History

	Doctors      *resources.Doctors
	Patients     *resources.Patients
	Appointments *resources.Appointments
	Questions    *resources.Questions
	Contents     *resources.Contents

	PatientIndex *localfilter.PatientIndex
}

// New builds the console. A nil notifier discards notifications and nil
// metrics are left unregistered.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, notifier notify.Notifier, m *metrics.Metrics) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if m == nil {
		m = metrics.NewNop()
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	}, log.With("component", "apiclient"), m)
	if err != nil {
		return nil, err
	}

	tokens, err := NewTokenStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	history := console.NewHistory(console.SplashRoute)
	gate := session.NewGate(client, history, notifier, tokens, log, m, session.Config{
		RetryDelay: cfg.Session.RetryDelay,
	})
	client.OnUnauthorized(gate.HandleUnauthorized)

	patients := resources.NewPatients(client)
	return &App{
		Config:       cfg,
		Log:          log,
		Metrics:      m,
		Notifier:     notifier,
		Client:       client,
		Gate:         gate,
		History:      history,
		Doctors:      resources.NewDoctors(client),
		Patients:     patients,
		Appointments: resources.NewAppointments(client),
		Questions:    resources.NewQuestions(client),
		Contents:     resources.NewContents(client),
		PatientIndex: localfilter.NewPatientIndex(patients.All, cfg.List.PatientCacheTTL),
	}, nil
}

// NewTokenStore returns the store named by cfg.TokenStore.
func NewTokenStore(ctx context.Context, cfg config.SessionConfig) (session.TokenStore, error) {
	switch cfg.TokenStore {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		return session.DialRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
	case "file", "":
		return session.NewFileStore(cfg.TokenPath), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

func newView[T any](a *App, name string, load listview.Loader[T], spec paging.FilterSpec, opts ...listview.Option) *listview.View[T] {
	opts = append([]listview.Option{
		listview.WithFilterSpec(spec),
		listview.WithNotifier(a.Notifier),
		listview.WithLogger(a.Log),
		listview.WithMetrics(a.Metrics),
	}, opts...)
	return listview.New(name, load, a.Config.List.DefaultPageSize, opts...)
}

func (a *App) DoctorsView(opts ...listview.Option) *listview.View[model.Doctor] {
	return newView[model.Doctor](a, "doctors", a.Doctors.List, a.Doctors.Spec(), opts...)
}

func (a *App) PatientsView(opts ...listview.Option) *listview.View[model.Patient] {
	return newView[model.Patient](a, "patients", a.Patients.List, a.Patients.Spec(), opts...)
}

func (a *App) AppointmentsView(opts ...listview.Option) *listview.View[model.Appointment] {
	return newView[model.Appointment](a, "appointments", a.Appointments.List, a.Appointments.Spec(), opts...)
}

func (a *App) QuestionsView(opts ...listview.Option) *listview.View[model.Question] {
	return newView[model.Question](a, "questions", a.Questions.List, a.Questions.Spec(), opts...)
}

func (a *App) ContentsView(opts ...listview.Option) *listview.View[model.Content] {
	return newView[model.Content](a, "contents", a.Contents.List, a.Contents.Spec(), opts...)
}

// Approver approves appointments shown in view.
func (a *App) Approver(view rowedit.Refresher) *rowedit.Approver {
	return rowedit.NewApprover(a.Appointments.Approve, view, a.Notifier)
}

// AppointmentEditor edits appointments shown in view.
func (a *App) AppointmentEditor(view rowedit.Refresher) *rowedit.Editor[model.AppointmentDraft] {
	return rowedit.NewEditor[model.AppointmentDraft](a.Appointments.SaveDraft, view, a.Notifier)
}

// Medicines loads a patient's medicines into an editable collection.
func (a *App) Medicines(ctx context.Context, patientID int64) (*rowedit.Collection[model.Medicine], error) {
	items, err := a.Patients.Medicines(ctx, patientID)
	if err != nil {
		return nil, err
	}
	save := func(ctx context.Context, batch []model.Medicine) ([]model.Medicine, error) {
		return a.Patients.SaveMedicines(ctx, patientID, batch)
	}
	return rowedit.NewCollection[model.Medicine](items, save, a.Notifier), nil
}

// Vaccines loads a patient's vaccination history into an editable collection.
func (a *App) Vaccines(ctx context.Context, patientID int64) (*rowedit.Collection[model.VaccineHistory], error) {
	items, err := a.Patients.Vaccines(ctx, patientID)
	if err != nil {
		return nil, err
	}
	save := func(ctx context.Context, batch []model.VaccineHistory) ([]model.VaccineHistory, error) {
		return a.Patients.SaveVaccines(ctx, patientID, batch)
	}
	return rowedit.NewCollection[model.VaccineHistory](items, save, a.Notifier), nil
}
