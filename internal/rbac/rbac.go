// Package rbac holds the static role grants of the console.
package rbac

import "sort"

// Permission is a capability checked by route guards and the mock API.
type Permission string

const (
	CreateDoctor Permission = "create-doctor"
	UpdateDoctor Permission = "update-doctor"
	DeleteDoctor Permission = "delete-doctor"

	ReadPatient   Permission = "read-patient"
	CreatePatient Permission = "create-patient"
	UpdatePatient Permission = "update-patient"
	DeletePatient Permission = "delete-patient"

	ReadAppointment    Permission = "read-appointment"
	CreateAppointment  Permission = "create-appointment"
	UpdateAppointment  Permission = "update-appointment"
	ApproveAppointment Permission = "approve-appointment"
	DeleteAppointment  Permission = "delete-appointment"

	ReadQuestion   Permission = "read-question"
	AnswerQuestion Permission = "answer-question"
	DeleteQuestion Permission = "delete-question"

	ReadContent   Permission = "read-content"
	CreateContent Permission = "create-content"
	UpdateContent Permission = "update-content"
	DeleteContent Permission = "delete-content"
	UploadImage   Permission = "upload-image"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleRoot  = "root"
)

type grantSet map[Permission]struct{}

var userGrants = []Permission{
	ReadPatient,
	UpdatePatient,
	ReadAppointment,
	CreateAppointment,
	UpdateAppointment,
	ReadQuestion,
	AnswerQuestion,
	ReadContent,
}

var adminGrants = []Permission{
	CreatePatient,
	DeletePatient,
	ApproveAppointment,
	DeleteAppointment,
	DeleteQuestion,
	CreateContent,
	UpdateContent,
	DeleteContent,
	UploadImage,
}

var rootGrants = []Permission{
	CreateDoctor,
	UpdateDoctor,
	DeleteDoctor,
}

// roleGrants is built once; each role extends the one below it.
var roleGrants = func() map[string]grantSet {
	user := newGrantSet(nil, userGrants)
	admin := newGrantSet(user, adminGrants)
	root := newGrantSet(admin, rootGrants)
	return map[string]grantSet{
		RoleUser:  user,
		RoleAdmin: admin,
		RoleRoot:  root,
	}
}()

func newGrantSet(base grantSet, extra []Permission) grantSet {
	s := make(grantSet, len(base)+len(extra))
	for p := range base {
		s[p] = struct{}{}
	}
	for _, p := range extra {
		s[p] = struct{}{}
	}
	return s
}

// Check reports whether role holds p. Unknown roles hold nothing.
func Check(role string, p Permission) bool {
	grants, ok := roleGrants[role]
	if !ok {
		return false
	}
	_, ok = grants[p]
	return ok
}

// Grants returns the sorted permissions of role.
func Grants(role string) []Permission {
	grants := roleGrants[role]
	out := make([]Permission, 0, len(grants))
	for p := range grants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Roles lists the known roles from least to most privileged.
func Roles() []string {
	return []string{RoleUser, RoleAdmin, RoleRoot}
}

// All lists every permission.
func All() []Permission {
	return Grants(RoleRoot)
}

// ValidRole reports whether role is known.
func ValidRole(role string) bool {
	_, ok := roleGrants[role]
	return ok
}
