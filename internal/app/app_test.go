package app

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-admin/config"
	"github.com/jwalitptl/clinic-admin/internal/console"
	"github.com/jwalitptl/clinic-admin/internal/listview"
	"github.com/jwalitptl/clinic-admin/internal/mockapi"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	"github.com/jwalitptl/clinic-admin/internal/resources"
	"github.com/jwalitptl/clinic-admin/internal/rowedit"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	app    *App
	server *mockapi.Server
	notes  *notify.Recorder
}

func newFixture(t *testing.T, patients int) *fixture {
	t.Helper()
	srv := mockapi.NewServer(config.MockAPIConfig{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		ImageBase: "http://images.test/static",
	}, mockapi.Options{Hasher: mockapi.NewBcryptHasher(bcrypt.MinCost)})
	require.NoError(t, mockapi.Seed(srv.Store(), mockapi.NewBcryptHasher(bcrypt.MinCost), patients))
	ts := httptest.NewServer(srv.Engine())
	t.Cleanup(ts.Close)

	cfg := &config.Config{
		API:     config.APIConfig{BaseURL: ts.URL + mockapi.APIPrefix, Timeout: 5 * time.Second},
		Session: config.SessionConfig{RetryDelay: 10 * time.Millisecond, TokenStore: "memory"},
		List:    config.ListConfig{DefaultPageSize: 10, PatientCacheTTL: time.Minute},
	}
	rec := &notify.Recorder{}
	a, err := New(context.Background(), cfg, nil, rec, nil)
	require.NoError(t, err)
	return &fixture{app: a, server: srv, notes: rec}
}

func (f *fixture) login(t *testing.T, role string) {
	t.Helper()
	for _, acc := range mockapi.SeedAccounts {
		if acc.Role == role {
			outcome, err := f.app.Gate.Login(context.Background(), model.Credentials{Email: acc.Email, Password: acc.Password})
			require.NoError(t, err)
			require.Equal(t, "success", outcome.String())
			return
		}
	}
	t.Fatalf("no account for role %s", role)
}

func TestBootSignedOut(t *testing.T) {
	f := newFixture(t, 1)
	state, err := f.app.Gate.Boot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SignedOut, state)
	assert.Empty(t, f.notes.All())
	assert.Equal(t, []console.Route{{Path: console.LoginRoute, Title: "Sign in"}}, console.Routes(f.app.Gate))
}

func TestLoginNavigatesHomeWithReplace(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.app.Gate.Boot(context.Background())
	require.NoError(t, err)

	f.app.History.Navigate(console.LoginRoute, true)
	f.login(t, rbac.RoleAdmin)

	assert.Equal(t, model.SignedIn, f.app.Gate.State())
	assert.Equal(t, console.HomeRoute, f.app.History.Current())
	_, ok := f.app.History.Back()
	assert.False(t, ok)
	assert.True(t, console.Allowed(f.app.Gate, console.PatientsRoute))
	assert.False(t, console.Allowed(f.app.Gate, console.DoctorsRoute))
}

func TestPaginationOverAPI(t *testing.T) {
	f := newFixture(t, 25)
	f.login(t, rbac.RoleUser)
	ctx := context.Background()

	view := f.app.PatientsView()
	require.NoError(t, view.Refresh(ctx))
	s := view.Snapshot()
	assert.Len(t, s.Items, 10)
	assert.True(t, s.HasNextPage)
	assert.Equal(t, paging.TotalUnknown, s.Total)

	require.NoError(t, view.SetPage(ctx, 2))
	s = view.Snapshot()
	assert.Len(t, s.Items, 5)
	assert.False(t, s.HasNextPage)
	assert.Equal(t, 25, s.Total)
}

func TestExpiredSessionSignsOut(t *testing.T) {
	f := newFixture(t, 3)
	f.login(t, rbac.RoleAdmin)

	f.app.Client.ResetSession()
	f.app.Client.SetToken("expired")

	view := f.app.AppointmentsView()
	err := view.Refresh(context.Background())
	assert.Equal(t, apperrors.ClassUnauthorized, apperrors.Classify(err))
	assert.Equal(t, model.SignedOut, f.app.Gate.State())
	assert.Equal(t, console.LoginRoute, f.app.History.Current())

	last, ok := f.notes.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)
}

func TestApproveOverAPI(t *testing.T) {
	f := newFixture(t, 2)
	f.login(t, rbac.RoleAdmin)
	ctx := context.Background()

	view := f.app.AppointmentsView(listview.WithFilters(paging.Filters{Type: resources.AppointmentsUpcoming}))
	require.NoError(t, view.Refresh(ctx))
	items := view.Snapshot().Items
	require.NotEmpty(t, items)

	approver := f.app.Approver(view)
	require.NoError(t, approver.Approve(ctx, items[0]))

	got, err := f.app.Appointments.Get(ctx, items[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Approved())

	err = approver.Approve(ctx, got)
	assert.Equal(t, apperrors.ClassPrecondition, apperrors.Classify(err))
}

func TestDeleteOverAPI(t *testing.T) {
	f := newFixture(t, 2)
	f.login(t, rbac.RoleAdmin)
	ctx := context.Background()

	view := f.app.PatientsView()
	require.NoError(t, view.Refresh(ctx))
	id := view.Snapshot().Items[0].ID
	del := rowedit.NewDeleter[int64](f.app.Patients.Delete, view, f.app.Notifier)

	assert.Error(t, del.Delete(ctx, id, "delet"))
	assert.Len(t, view.Snapshot().Items, 2)

	require.NoError(t, del.Delete(ctx, id, rowedit.ConfirmToken))
	assert.Len(t, view.Snapshot().Items, 1)
}

func TestMedicinesCollectionOverAPI(t *testing.T) {
	f := newFixture(t, 1)
	f.login(t, rbac.RoleUser)
	ctx := context.Background()
	all, err := f.app.Patients.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	pid := all[0].ID

	meds, err := f.app.Medicines(ctx, pid)
	require.NoError(t, err)
	require.Len(t, meds.Rows(), 1)

	key := meds.AddDraft(model.Medicine{})
	assert.Error(t, meds.Save(ctx))

	require.NoError(t, meds.CommitEdit(key, model.Medicine{Name: " Amoxicillin ", Dosage: "250mg", Note: model.Ptr("  ")}))
	require.NoError(t, meds.Save(ctx))

	saved, err := f.app.Patients.Medicines(ctx, pid)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "Amoxicillin", saved[1].Name)
	assert.Nil(t, saved[1].Note)
	assert.NotZero(t, saved[1].ID)
}

func TestPatientSearch(t *testing.T) {
	f := newFixture(t, 8)
	f.login(t, rbac.RoleUser)
	ctx := context.Background()

	found, err := f.app.PatientIndex.Search(ctx, "^asha")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Asha", found[0].FirstName)

	found, err = f.app.PatientIndex.Search(ctx, "([")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestUploadImageOverAPI(t *testing.T) {
	f := newFixture(t, 0)
	f.login(t, rbac.RoleAdmin)

	png := "\x89PNG\r\n\x1a\n" + string(make([]byte, 16))
	url, err := f.app.Contents.UploadImage(context.Background(), "banner.png", strings.NewReader(png))
	require.NoError(t, err)
	assert.Contains(t, url, "http://images.test/static/")
}
