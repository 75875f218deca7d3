package paging

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

// Key is a filter query parameter understood by list endpoints.
type Key string

const (
	KeyType      Key = "type"
	KeySearch    Key = "search"
	KeyDoctorID  Key = "doctorId"
	KeyPatientID Key = "patientId"
	KeyOwner     Key = "owner"
)

// OwnerSelf restricts a list to rows owned by the signed-in doctor.
const OwnerSelf = "me"

// Filters holds every filter a list view can set. Each resource recognizes a
// subset of them, declared by its FilterSpec.
type Filters struct {
	Type      string
	Search    string
	Owner     string
	DoctorID  *int64
	PatientID *int64
}

// Equal compares by value.
func (f Filters) Equal(o Filters) bool {
	return f.Signature() == o.Signature()
}

// Signature is a stable textual form of the filters.
func (f Filters) Signature() string {
	return FilterSpec{Keys: allKeys}.Query(f).Encode()
}

func (f Filters) value(k Key) (string, bool) {
	switch k {
	case KeyType:
		v := strings.TrimSpace(f.Type)
		return v, v != ""
	case KeySearch:
		v := strings.TrimSpace(f.Search)
		return v, v != ""
	case KeyOwner:
		v := strings.TrimSpace(f.Owner)
		return v, v != ""
	case KeyDoctorID:
		if f.DoctorID == nil {
			return "", false
		}
		return strconv.FormatInt(*f.DoctorID, 10), true
	case KeyPatientID:
		if f.PatientID == nil {
			return "", false
		}
		return strconv.FormatInt(*f.PatientID, 10), true
	}
	return "", false
}

var allKeys = []Key{KeyType, KeySearch, KeyOwner, KeyDoctorID, KeyPatientID}

// FilterSpec declares the filter keys one resource's list endpoint accepts,
// and for Type the allowed values.
type FilterSpec struct {
	Keys  []Key
	Types []string
}

// Accepts reports whether k is recognized.
func (s FilterSpec) Accepts(k Key) bool {
	for _, key := range s.Keys {
		if key == k {
			return true
		}
	}
	return false
}

// ValidType reports whether t is allowed as the type filter. Empty always is.
func (s FilterSpec) ValidType(t string) bool {
	if t == "" || len(s.Types) == 0 {
		return true
	}
	for _, v := range s.Types {
		if v == t {
			return true
		}
	}
	return false
}

// Validate rejects a type or owner the resource does not know. Filters the
// resource does not accept are ignored, as Query drops them.
func (s FilterSpec) Validate(f Filters) error {
	if s.Accepts(KeyType) && !s.ValidType(strings.TrimSpace(f.Type)) {
		return apperrors.Precondition(fmt.Sprintf("unknown type %q, expected one of %v", f.Type, s.Types))
	}
	if s.Accepts(KeyOwner) {
		if o := strings.TrimSpace(f.Owner); o != "" && o != OwnerSelf {
			return apperrors.Precondition(fmt.Sprintf("unknown owner %q, expected %q", f.Owner, OwnerSelf))
		}
	}
	return nil
}

// Query maps the recognized, non-empty filters to query parameters.
func (s FilterSpec) Query(f Filters) url.Values {
	q := url.Values{}
	keys := append([]Key(nil), s.Keys...)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if v, ok := f.value(k); ok {
			q.Set(string(k), v)
		}
	}
	return q
}
