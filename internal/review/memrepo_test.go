package review

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/study"
)

type studyKey struct {
	review uuid.UUID
	id     int64
}

// memRepo keeps documents rather than live aggregates so every lookup sees
// only what was saved.
type memRepo struct {
	reviews   map[uuid.UUID]SystematicStudy
	questions map[uuid.UUID]question.Document
	studies   map[studyKey]study.Document
	protocols map[uuid.UUID]protocol.Protocol

	studySaves int
	failSaves  error
	failFind   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		reviews:   make(map[uuid.UUID]SystematicStudy),
		questions: make(map[uuid.UUID]question.Document),
		studies:   make(map[studyKey]study.Document),
		protocols: make(map[uuid.UUID]protocol.Protocol),
	}
}

func (m *memRepo) FindReview(id uuid.UUID) (*SystematicStudy, error) {
	s, ok := m.reviews[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindSystematicStudy, ID: id.String()}
	}
	return &s, nil
}

func (m *memRepo) ListReviews() ([]SystematicStudy, error) {
	out := []SystematicStudy{}
	for _, s := range m.reviews {
		out = append(out, s)
	}
	return out, nil
}

func (m *memRepo) SaveReview(s SystematicStudy) error {
	m.reviews[s.ID] = s
	return nil
}

func (m *memRepo) FindQuestion(reviewID, questionID uuid.UUID) (question.Question, error) {
	if m.failFind != nil {
		return nil, m.failFind
	}
	doc, ok := m.questions[questionID]
	if !ok || doc.ReviewID != reviewID {
		return nil, &NotFoundError{Kind: KindQuestion, ID: questionID.String()}
	}
	return question.FromDocument(doc)
}

func (m *memRepo) ListQuestions(reviewID uuid.UUID) ([]question.Question, error) {
	out := []question.Question{}
	for _, doc := range m.questions {
		if doc.ReviewID != reviewID {
			continue
		}
		q, err := question.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (m *memRepo) SaveQuestions(qs ...question.Question) error {
	for _, q := range qs {
		m.questions[q.ID()] = question.ToDocument(q)
	}
	return nil
}

func (m *memRepo) FindStudy(reviewID uuid.UUID, studyID int64) (*study.Review, error) {
	doc, ok := m.studies[studyKey{reviewID, studyID}]
	if !ok {
		return nil, &NotFoundError{Kind: KindStudy, ID: fmt.Sprint(studyID)}
	}
	return study.FromDocument(doc)
}

func (m *memRepo) ListStudies(reviewID uuid.UUID) ([]*study.Review, error) {
	var out []*study.Review
	for k, doc := range m.studies {
		if k.review != reviewID {
			continue
		}
		r, err := study.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudyID() < out[j].StudyID() })
	return out, nil
}

func (m *memRepo) SaveStudies(studies ...*study.Review) error {
	if m.failSaves != nil {
		return m.failSaves
	}
	m.studySaves++
	for _, r := range studies {
		m.studies[studyKey{r.ReviewID(), r.StudyID()}] = r.ToDocument()
	}
	return nil
}

func (m *memRepo) MaxStudyID(reviewID uuid.UUID) (int64, error) {
	var max int64
	for k := range m.studies {
		if k.review == reviewID && k.id > max {
			max = k.id
		}
	}
	return max, nil
}

func (m *memRepo) FindProtocol(reviewID uuid.UUID) (*protocol.Protocol, error) {
	p, ok := m.protocols[reviewID]
	if !ok {
		return nil, &NotFoundError{Kind: KindProtocol, ID: reviewID.String()}
	}
	return &p, nil
}

func (m *memRepo) SaveProtocol(p *protocol.Protocol) error {
	m.protocols[p.ReviewID] = *p
	return nil
}

var errDisk = errors.New("disk full")
