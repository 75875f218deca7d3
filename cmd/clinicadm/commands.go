package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwalitptl/clinic-admin/internal/console"
	"github.com/jwalitptl/clinic-admin/internal/listview"
	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/notify"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	"github.com/jwalitptl/clinic-admin/internal/rbac"
	"github.com/jwalitptl/clinic-admin/internal/rowedit"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// int64Flag is an optional numeric flag.
type int64Flag struct {
	v   int64
	set bool
}

func (f *int64Flag) String() string { return fmt.Sprint(f.v) }

func (f *int64Flag) Set(s string) error {
	_, err := fmt.Sscan(s, &f.v)
	f.set = err == nil
	return err
}

func (f *int64Flag) ptr() *int64 {
	if !f.set {
		return nil
	}
	v := f.v
	return &v
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", os.Getenv("CLINICADM_PASSWORD"), "password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := c.app.Gate.Login(ctx, model.Credentials{Email: *email, Password: *password}); err != nil {
		return err
	}
	id, _ := c.app.Gate.Identity()
	return c.printJSON(id)
}

func (c *cli) logout(ctx context.Context, _ []string) error {
	c.app.Gate.Logout(ctx)
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func (c *cli) whoami(_ context.Context, _ []string) error {
	id, _ := c.app.Gate.Identity()
	return c.printJSON(struct {
		model.Identity
		Permissions []rbac.Permission `json:"permissions"`
	}{id, rbac.Grants(id.Role)})
}

func (c *cli) routes(_ context.Context, _ []string) error {
	return c.printJSON(console.Routes(c.app.Gate))
}

type listOutput[T any] struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"pageSize"`
	HasNextPage bool `json:"hasNextPage"`
	Total       int  `json:"total"`
	Items       []T  `json:"items"`
}

// showPage loads the requested page into view and prints it.
func showPage[T any](ctx context.Context, c *cli, view *listview.View[T], page, size int) error {
	var err error
	switch {
	case size != 0 && page != 0:
		if err = view.SetPageSize(ctx, size); err == nil {
			err = view.SetPage(ctx, page)
		}
	case size != 0:
		err = view.SetPageSize(ctx, size)
	case page != 0:
		err = view.SetPage(ctx, page)
	default:
		err = view.Refresh(ctx)
	}
	if err != nil {
		return err
	}
	s := view.Snapshot()
	return c.printJSON(listOutput[T]{
		Page:        s.Page,
		PageSize:    s.PageSize,
		HasNextPage: s.HasNextPage,
		Total:       s.Total,
		Items:       s.Items,
	})
}

func (c *cli) list(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	resource := args[0]
	fs := newFlagSet("list")
	page := fs.Int("page", 0, "page index, zero based")
	size := fs.Int("size", 0, "page size")
	typ := fs.String("type", "", "type filter")
	search := fs.String("search", "", "search filter")
	owner := fs.String("owner", "", `"me" lists only your own rows`)
	var doctor, patient int64Flag
	fs.Var(&doctor, "doctor", "doctor id")
	fs.Var(&patient, "patient", "patient id")
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	filters := listview.WithFilters(paging.Filters{
		Type:      *typ,
		Search:    *search,
		Owner:     *owner,
		DoctorID:  doctor.ptr(),
		PatientID: patient.ptr(),
	})

	switch resource {
	case "doctors":
		return showPage(ctx, c, c.app.DoctorsView(filters), *page, *size)
	case "patients":
		return showPage(ctx, c, c.app.PatientsView(filters), *page, *size)
	case "appointments":
		return showPage(ctx, c, c.app.AppointmentsView(filters), *page, *size)
	case "questions":
		return showPage(ctx, c, c.app.QuestionsView(filters), *page, *size)
	case "contents":
		return showPage(ctx, c, c.app.ContentsView(filters), *page, *size)
	}
	return errUsage
}

func (c *cli) search(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	q := fs.String("q", "", "pattern")
	if err := parse(fs, args); err != nil {
		return err
	}
	found, err := c.app.PatientIndex.Search(ctx, *q)
	if err != nil {
		return err
	}
	return c.printJSON(found)
}

func (c *cli) approve(ctx context.Context, args []string) error {
	fs := newFlagSet("approve")
	id := fs.Int64("id", 0, "appointment id")
	if err := parse(fs, args); err != nil {
		return err
	}
	appt, err := c.app.Appointments.Get(ctx, *id)
	if err != nil {
		return err
	}
	return c.app.Approver(nil).Approve(ctx, appt)
}

func (c *cli) delete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errUsage
	}
	resource := args[0]
	fs := newFlagSet("delete")
	id := fs.String("id", "", "id")
	confirm := fs.String("confirm", "", `type "delete" to confirm`)
	if err := parse(fs, args[1:]); err != nil {
		return err
	}
	n := c.app.Notifier

	if resource == "contents" {
		return rowedit.NewDeleter[string](c.app.Contents.Delete, nil, n).Delete(ctx, *id, *confirm)
	}
	var numeric int64
	if _, err := fmt.Sscan(*id, &numeric); err != nil {
		return apperrors.Precondition("id must be a number")
	}
	var del rowedit.DeleteFunc[int64]
	switch resource {
	case "doctors":
		del = c.app.Doctors.Delete
	case "patients":
		del = c.app.Patients.Delete
	case "appointments":
		del = c.app.Appointments.Delete
	case "questions":
		del = c.app.Questions.Delete
	default:
		return errUsage
	}
	return rowedit.NewDeleter[int64](del, nil, n).Delete(ctx, numeric, *confirm)
}

func (c *cli) answer(ctx context.Context, args []string) error {
	fs := newFlagSet("answer")
	id := fs.Int64("id", 0, "question id")
	text := fs.String("text", "", "answer")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := c.app.Questions.Answer(ctx, *id, *text); err != nil {
		return err
	}
	c.app.Notifier.Notify(notify.Success, "Answer sent")
	return nil
}

// splitRow splits "a|b|c|d" into exactly n trimmed fields.
func splitRow(s string, n int) []string {
	parts := strings.SplitN(s, "|", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func medicineFromRow(s string) model.Medicine {
	f := splitRow(s, 4)
	return model.Medicine{Name: f[0], Dosage: f[1], Frequency: &f[2], Note: &f[3]}
}

func vaccineFromRow(s string) model.VaccineHistory {
	f := splitRow(s, 4)
	return model.VaccineHistory{Vaccine: f[0], Date: f[1], Dose: &f[2], Note: &f[3]}
}

// editCollection applies -add and -remove to col and saves when anything
// changed.
func editCollection[T rowedit.Item[T]](ctx context.Context, col *rowedit.Collection[T], add string, remove int64, fromRow func(string) T) error {
	changed := false
	if remove != 0 {
		if err := col.Remove(rowedit.Saved(remove)); err != nil {
			return err
		}
		changed = true
	}
	if add != "" {
		row := fromRow(add)
		key := col.AddDraft(row)
		if err := col.CommitEdit(key, row); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return nil
	}
	return col.Save(ctx)
}

func (c *cli) medicines(ctx context.Context, args []string) error {
	fs := newFlagSet("medicines")
	patient := fs.Int64("patient", 0, "patient id")
	add := fs.String("add", "", "name|dosage|frequency|note")
	remove := fs.Int64("remove", 0, "row id to remove")
	if err := parse(fs, args); err != nil {
		return err
	}
	col, err := c.app.Medicines(ctx, *patient)
	if err != nil {
		return err
	}
	if err := editCollection(ctx, col, *add, *remove, medicineFromRow); err != nil {
		return err
	}
	return c.printJSON(col.Values())
}

func (c *cli) vaccines(ctx context.Context, args []string) error {
	fs := newFlagSet("vaccines")
	patient := fs.Int64("patient", 0, "patient id")
	add := fs.String("add", "", "vaccine|date|dose|note")
	remove := fs.Int64("remove", 0, "row id to remove")
	if err := parse(fs, args); err != nil {
		return err
	}
	col, err := c.app.Vaccines(ctx, *patient)
	if err != nil {
		return err
	}
	if err := editCollection(ctx, col, *add, *remove, vaccineFromRow); err != nil {
		return err
	}
	return c.printJSON(col.Values())
}

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := newFlagSet("upload")
	path := fs.String("file", "", "image file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *path == "" {
		return errUsage
	}
	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	url, err := c.app.Contents.UploadImage(ctx, filepath.Base(*path), f)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, url)
	return nil
}

func (c *cli) passwd(ctx context.Context, args []string) error {
	fs := newFlagSet("passwd")
	id := fs.Int64("id", 0, "doctor id")
	password := fs.String("password", "", "new password")
	confirm := fs.String("confirm", "", "repeat the new password")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == 0 {
		self, _ := c.app.Gate.Identity()
		*id = self.SubjectID
	}
	if err := c.app.Doctors.ChangePassword(ctx, *id, *password, *confirm); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "password changed")
	return nil
}
