package record

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// Kind is one of the entity categories managed by the console.
type Kind string

const (
	Class   Kind = "class"
	Teacher Kind = "teacher"
	Student Kind = "student"
	Subject Kind = "subject"
)

// Kinds lists every kind in dashboard order.
var Kinds = []Kind{Class, Student, Teacher, Subject}

var ErrUnknownKind = errors.New("unknown entity kind")

// Envelope styles of the backend list responses.
const (
	// {"success": true, "data": [...], "message": "..."}
	EnvelopeSuccessData = "success/data"
	// {"status": "success", "subjects": [...], "message": "..."}
	EnvelopeStatusSubjects = "status/subjects"
)

// KindSpec is the fixed per-kind lookup table.
type KindSpec struct {
	Kind    Kind
	Plural  string
	Label   string
	IDField string
	// AltIDFields are tried after IDField for titles and row keys.
	AltIDFields []string

	FetchPath  string
	DeletePath string // ":id" is substituted; a "?code=" style query is kept as such
	CreatePath string
	UpdatePath string

	Envelope    string
	ListField   string // field of the envelope carrying the records
	MirrorKey   string // "" when the kind has no local mirror
	EditableID  bool
	RenameNeeds []string // request fields required when the identifier changes

	// DegradeOnDeleteFailure removes the record locally even when the backend did not confirm the delete.
	DegradeOnDeleteFailure bool
	// DormantDelete means card deletes only touch local view state unless remote deletes are enabled.
	DormantDelete bool
}

// IDFields returns IDField followed by the alternates.
func (s KindSpec) IDFields() []string {
	return append([]string{s.IDField}, s.AltIDFields...)
}

// DeleteURLPath resolves the delete endpoint for id.
func (s KindSpec) DeleteURLPath(id string) string {
	return substituteID(s.DeletePath, id)
}

// UpdateURLPath resolves the update endpoint for id.
func (s KindSpec) UpdateURLPath(id string) string {
	return substituteID(s.UpdatePath, id)
}

func substituteID(p, id string) string {
	if strings.Contains(p, "=:id") {
		return strings.Replace(p, ":id", url.QueryEscape(id), 1)
	}
	return strings.Replace(p, ":id", url.PathEscape(id), 1)
}

var specs = map[Kind]KindSpec{
	Class: {
		Kind:                   Class,
		Plural:                 "classes",
		Label:                  "Class",
		IDField:                "c_id",
		AltIDFields:            []string{"classId"},
		FetchPath:              "/admin/getallclass",
		DeletePath:             "/admin/class/:id",
		CreatePath:             "/admin/addclass",
		UpdatePath:             "/admin/class/:id",
		Envelope:               EnvelopeSuccessData,
		ListField:              "data",
		MirrorKey:              "classes",
		DegradeOnDeleteFailure: true,
	},
	Teacher: {
		Kind:                   Teacher,
		Plural:                 "teachers",
		Label:                  "Teacher",
		IDField:                "id",
		AltIDFields:            []string{"t_id"},
		FetchPath:              "/admin/getallteacher",
		DeletePath:             "/admin/teacher/:id",
		CreatePath:             "/admin/teacher/register",
		UpdatePath:             "/admin/teacher/:id",
		Envelope:               EnvelopeSuccessData,
		ListField:              "data",
		MirrorKey:              "teachers",
		EditableID:             true,
		RenameNeeds:            []string{"password"},
		DegradeOnDeleteFailure: true,
	},
	Student: {
		Kind:                   Student,
		Plural:                 "students",
		Label:                  "Student",
		IDField:                "s_id",
		AltIDFields:            []string{"id"},
		FetchPath:              "/admin/getallstudents",
		DeletePath:             "/admin/student/:id",
		CreatePath:             "/admin/student/register",
		UpdatePath:             "/admin/student/:id",
		Envelope:               EnvelopeSuccessData,
		ListField:              "data",
		MirrorKey:              "students",
		DegradeOnDeleteFailure: true,
	},
	Subject: {
		Kind:          Subject,
		Plural:        "subjects",
		Label:         "Subject",
		IDField:       "code",
		FetchPath:     "/admin/getall",
		DeletePath:    "/admin/subdelete?code=:id",
		CreatePath:    "/admin/subcreate",
		UpdatePath:    "/admin/subupdate?code=:id",
		Envelope:      EnvelopeStatusSubjects,
		ListField:     "subjects",
		EditableID:    true,
		DormantDelete: true,
	},
}

// Spec returns the lookup table entry of kind; the zero KindSpec for unknown kinds.
func Spec(kind Kind) KindSpec {
	return specs[kind]
}

// ParseKind accepts singular or plural names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, spec := range specs {
		if s == string(k) || s == spec.Plural {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "%q", s)
}
