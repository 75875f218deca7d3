package resources

import (
	"context"
	"strings"

	"github.com/jwalitptl/clinic-admin/internal/model"
	"github.com/jwalitptl/clinic-admin/internal/paging"
	apperrors "github.com/jwalitptl/clinic-admin/pkg/errors"
)

const QuestionsEndpoint = "/questions"

// Question list types.
const (
	QuestionsAnswered   = "answered"
	QuestionsUnanswered = "unanswered"
)

var QuestionFilters = paging.FilterSpec{
	Keys:  []paging.Key{paging.KeyType, paging.KeyOwner, paging.KeyDoctorID, paging.KeyPatientID},
	Types: []string{QuestionsAnswered, QuestionsUnanswered},
}

type Questions struct {
	*Resource[model.Question, int64]
}

func NewQuestions(api API) *Questions {
	return &Questions{newResource[model.Question, int64](api, QuestionsEndpoint, QuestionFilters)}
}

func (q *Questions) Answer(ctx context.Context, id int64, answer string) error {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return apperrors.Precondition("answer is required")
	}
	return q.api.Post(ctx, q.path(id, "answer"), model.AnswerRequest{Answer: answer}, nil)
}
