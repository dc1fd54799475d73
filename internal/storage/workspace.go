package storage

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/study"
)

// Paths locates the JSONL files of a workspace.
type Paths struct {
	Reviews   string
	Studies   string
	Questions string
	Protocols string
}

// Workspace implements review.Repository on top of JSONL files. Every write
// rewrites one file, so a call such as SaveStudies is a single write.
type Workspace struct {
	paths Paths
}

var _ review.Repository = (*Workspace)(nil)

// NewWorkspace returns a Workspace reading and writing the given files.
func NewWorkspace(paths Paths) *Workspace {
	return &Workspace{paths: paths}
}

// Paths returns the files the workspace uses.
func (w *Workspace) Paths() Paths { return w.paths }

func (w *Workspace) FindReview(id uuid.UUID) (*review.SystematicStudy, error) {
	all, err := ReadReviews(w.paths.Reviews)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, &review.NotFoundError{Kind: review.KindSystematicStudy, ID: id.String()}
}

func (w *Workspace) ListReviews() ([]review.SystematicStudy, error) {
	all, err := ReadReviews(w.paths.Reviews)
	if err != nil {
		return nil, err
	}
	if all == nil {
		all = []review.SystematicStudy{}
	}
	return all, nil
}

// SaveReview appends a new systematic study or replaces an existing one.
func (w *Workspace) SaveReview(s review.SystematicStudy) error {
	all, err := ReadReviews(w.paths.Reviews)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == s.ID {
			all[i] = s
			return WriteReviews(w.paths.Reviews, all)
		}
	}
	return AppendReview(w.paths.Reviews, s)
}

func (w *Workspace) FindQuestion(reviewID, questionID uuid.UUID) (question.Question, error) {
	docs, err := ReadQuestions(w.paths.Questions)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ID == questionID && doc.ReviewID == reviewID {
			q, err := question.FromDocument(doc)
			if err != nil {
				return nil, fmt.Errorf("loading question %s: %w", questionID, err)
			}
			return q, nil
		}
	}
	return nil, &review.NotFoundError{Kind: review.KindQuestion, ID: questionID.String()}
}

// ListQuestions returns the questions of a systematic study ordered by code.
func (w *Workspace) ListQuestions(reviewID uuid.UUID) ([]question.Question, error) {
	docs, err := ReadQuestions(w.paths.Questions)
	if err != nil {
		return nil, err
	}
	qs := []question.Question{}
	for _, doc := range docs {
		if doc.ReviewID != reviewID {
			continue
		}
		q, err := question.FromDocument(doc)
		if err != nil {
			return nil, fmt.Errorf("loading question %s: %w", doc.ID, err)
		}
		qs = append(qs, q)
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Code() < qs[j].Code() })
	return qs, nil
}

func (w *Workspace) SaveQuestions(qs ...question.Question) error {
	docs, err := ReadQuestions(w.paths.Questions)
	if err != nil {
		return err
	}
	index := make(map[uuid.UUID]int, len(docs))
	for i, doc := range docs {
		index[doc.ID] = i
	}
	for _, q := range qs {
		doc := question.ToDocument(q)
		if i, ok := index[doc.ID]; ok {
			docs[i] = doc
			continue
		}
		index[doc.ID] = len(docs)
		docs = append(docs, doc)
	}
	return WriteQuestions(w.paths.Questions, docs)
}

func (w *Workspace) FindStudy(reviewID uuid.UUID, studyID int64) (*study.Review, error) {
	docs, err := ReadStudies(w.paths.Studies)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if doc.ReviewID == reviewID && doc.StudyID == studyID {
			return study.FromDocument(doc)
		}
	}
	return nil, &review.NotFoundError{Kind: review.KindStudy, ID: fmt.Sprintf("%d", studyID)}
}

// ListStudies returns the study reviews of a systematic study ordered by id.
func (w *Workspace) ListStudies(reviewID uuid.UUID) ([]*study.Review, error) {
	docs, err := ReadStudies(w.paths.Studies)
	if err != nil {
		return nil, err
	}
	out := []*study.Review{}
	for _, doc := range docs {
		if doc.ReviewID != reviewID {
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

type studyKey struct {
	review uuid.UUID
	id     int64
}

// SaveStudies inserts new study reviews and replaces existing ones with a
// single rewrite of the studies file.
func (w *Workspace) SaveStudies(studies ...*study.Review) error {
	if len(studies) == 0 {
		return nil
	}
	docs, err := ReadStudies(w.paths.Studies)
	if err != nil {
		return err
	}
	index := make(map[studyKey]int, len(docs))
	for i, doc := range docs {
		index[studyKey{doc.ReviewID, doc.StudyID}] = i
	}
	for _, r := range studies {
		doc := r.ToDocument()
		k := studyKey{doc.ReviewID, doc.StudyID}
		if i, ok := index[k]; ok {
			docs[i] = doc
			continue
		}
		index[k] = len(docs)
		docs = append(docs, doc)
	}
	return WriteStudies(w.paths.Studies, docs)
}

func (w *Workspace) MaxStudyID(reviewID uuid.UUID) (int64, error) {
	docs, err := ReadStudies(w.paths.Studies)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, doc := range docs {
		if doc.ReviewID == reviewID && doc.StudyID > max {
			max = doc.StudyID
		}
	}
	return max, nil
}

func (w *Workspace) FindProtocol(reviewID uuid.UUID) (*protocol.Protocol, error) {
	all, err := ReadProtocols(w.paths.Protocols)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ReviewID == reviewID {
			return &all[i], nil
		}
	}
	return nil, &review.NotFoundError{Kind: review.KindProtocol, ID: reviewID.String()}
}

func (w *Workspace) SaveProtocol(p *protocol.Protocol) error {
	all, err := ReadProtocols(w.paths.Protocols)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ReviewID == p.ReviewID {
			all[i] = *p
			return WriteProtocols(w.paths.Protocols, all)
		}
	}
	return WriteProtocols(w.paths.Protocols, append(all, *p))
}
