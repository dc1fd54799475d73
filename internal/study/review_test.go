package study

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/question"
)

func testRecord() Record {
	return Record{
		Type:    Article,
		Title:   "Non-cooperative Games",
		Authors: "Nash, John",
		Year:    1951,
		Venue:   "Annals of Mathematics",
	}
}

func newTestReview(t *testing.T, reviewID uuid.UUID, id int64, sources ...string) *Review {
	t.Helper()
	r, err := NewReview(reviewID, id, testRecord(), sources...)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	return r
}

func pickList(t *testing.T, reviewID uuid.UUID, ctx question.Context, options ...string) *question.PickList {
	t.Helper()
	q, err := question.NewPickList(question.Header{
		ID: uuid.New(), ReviewID: reviewID, Code: "Q", Description: "Design?", Context: ctx,
	}, options)
	if err != nil {
		t.Fatalf("NewPickList() error = %v", err)
	}
	return q
}

func TestNewReview_Defaults(t *testing.T) {
	r := newTestReview(t, uuid.New(), 1, "Scopus", " ", "Scopus")

	if r.SelectionStatus() != SelectionUnclassified {
		t.Errorf("SelectionStatus() = %s", r.SelectionStatus())
	}
	if r.ExtractionStatus() != ExtractionUnclassified {
		t.Errorf("ExtractionStatus() = %s", r.ExtractionStatus())
	}
	if r.ReadingPriority() != PriorityLow {
		t.Errorf("ReadingPriority() = %s", r.ReadingPriority())
	}
	if r.Comments() != "" {
		t.Errorf("Comments() = %q, want empty", r.Comments())
	}
	if got := r.SearchSources(); !reflect.DeepEqual(got, []string{"Scopus"}) {
		t.Errorf("SearchSources() = %v, want [Scopus]", got)
	}
	if len(r.FormAnswers()) != 0 || len(r.QualityAnswers()) != 0 {
		t.Error("new review should have no answers")
	}
}

func TestNewReview_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		reviewID uuid.UUID
		id       int64
		mutate   func(*Record)
	}{
		{"nil review", uuid.Nil, 1, func(*Record) {}},
		{"zero id", uuid.New(), 0, func(*Record) {}},
		{"unknown type", uuid.New(), 1, func(r *Record) { r.Type = "PATENT" }},
		{"blank title", uuid.New(), 1, func(r *Record) { r.Title = " " }},
		{"blank authors", uuid.New(), 1, func(r *Record) { r.Authors = "" }},
		{"blank venue", uuid.New(), 1, func(r *Record) { r.Venue = "" }},
		{"short year", uuid.New(), 1, func(r *Record) { r.Year = 51 }},
		{"bad doi", uuid.New(), 1, func(r *Record) { r.DOI = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord()
			tt.mutate(&rec)
			if _, err := NewReview(tt.reviewID, tt.id, rec); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("NewReview() error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

func TestRecordIsCopied(t *testing.T) {
	rec := testRecord()
	rec.Keywords = []string{"games"}
	r, err := NewReview(uuid.New(), 1, rec)
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	got := r.Record()
	got.Keywords[0] = "changed"
	if r.Record().Keywords[0] != "games" {
		t.Error("Record() exposed internal keyword slice")
	}
}

func TestStatusesAreIndependentAndFree(t *testing.T) {
	r := newTestReview(t, uuid.New(), 1)

	steps := []SelectionStatus{SelectionIncluded, SelectionExcluded, SelectionDuplicated, SelectionUnclassified, SelectionIncluded}
	for _, s := range steps {
		if err := r.SetSelectionStatus(s); err != nil {
			t.Fatalf("SetSelectionStatus(%s) error = %v", s, err)
		}
		if r.SelectionStatus() != s {
			t.Errorf("SelectionStatus() = %s, want %s", r.SelectionStatus(), s)
		}
	}
	if err := r.SetExtractionStatus(ExtractionExcluded); err != nil {
		t.Fatalf("SetExtractionStatus() error = %v", err)
	}
	if err := r.SetReadingPriority(PriorityHigh); err != nil {
		t.Fatalf("SetReadingPriority() error = %v", err)
	}
	if r.SelectionStatus() != SelectionIncluded || r.ExtractionStatus() != ExtractionExcluded || r.ReadingPriority() != PriorityHigh {
		t.Errorf("statuses = %s/%s/%s", r.SelectionStatus(), r.ExtractionStatus(), r.ReadingPriority())
	}

	if err := r.SetSelectionStatus("maybe"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SetSelectionStatus(maybe) error = %v, want ErrInvalidStatus", err)
	}
	if r.SelectionStatus() != SelectionIncluded {
		t.Error("failed SetSelectionStatus changed the status")
	}
	if err := r.SetReadingPriority("urgent"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("SetReadingPriority(urgent) error = %v, want ErrInvalidStatus", err)
	}
}

func TestParseStatusesCaseInsensitive(t *testing.T) {
	if s, err := ParseSelectionStatus("included"); err != nil || s != SelectionIncluded {
		t.Errorf("ParseSelectionStatus(included) = %s, %v", s, err)
	}
	if s, err := ParseExtractionStatus(" Excluded "); err != nil || s != ExtractionExcluded {
		t.Errorf("ParseExtractionStatus(Excluded) = %s, %v", s, err)
	}
	if p, err := ParseReadingPriority("medium"); err != nil || p != PriorityMedium {
		t.Errorf("ParseReadingPriority(medium) = %s, %v", p, err)
	}
}

func TestAnswer_RoutesByContext(t *testing.T) {
	reviewID := uuid.New()
	r := newTestReview(t, reviewID, 1)
	form := pickList(t, reviewID, question.ContextForm, "RCT", "Cohort")
	rob := pickList(t, reviewID, question.ContextRoB, "Low", "High")

	if err := r.Answer(form, question.Choice("RCT")); err != nil {
		t.Fatalf("Answer(form) error = %v", err)
	}
	if err := r.Answer(rob, question.Choice("High")); err != nil {
		t.Fatalf("Answer(rob) error = %v", err)
	}

	if a, ok := r.FormAnswer(form.ID()); !ok || a.Value != question.Choice("RCT") {
		t.Errorf("FormAnswer() = %+v, %v", a, ok)
	}
	if _, ok := r.FormAnswer(rob.ID()); ok {
		t.Error("quality question leaked into form answers")
	}
	if a, ok := r.QualityAnswer(rob.ID()); !ok || a.Value != question.Choice("High") {
		t.Errorf("QualityAnswer() = %+v, %v", a, ok)
	}
}

func TestAnswer_ReplacesPrevious(t *testing.T) {
	reviewID := uuid.New()
	r := newTestReview(t, reviewID, 1)
	q := pickList(t, reviewID, question.ContextForm, "RCT", "Cohort")

	_ = r.AnswerFormQuestion(q, question.Choice("RCT"))
	if err := r.AnswerFormQuestion(q, question.Choice("Cohort")); err != nil {
		t.Fatalf("AnswerFormQuestion() error = %v", err)
	}
	if got := r.FormAnswers(); len(got) != 1 || got[0].Value != question.Choice("Cohort") {
		t.Errorf("FormAnswers() = %+v, want single Cohort answer", got)
	}
}

func TestAnswer_InvalidPickDoesNotMutate(t *testing.T) {
	reviewID := uuid.New()
	r := newTestReview(t, reviewID, 1)
	q := pickList(t, reviewID, question.ContextForm, "RCT", "Cohort")
	if err := r.AnswerFormQuestion(q, question.Choice("RCT")); err != nil {
		t.Fatalf("AnswerFormQuestion() error = %v", err)
	}

	err := r.AnswerFormQuestion(q, question.Choice("Survey"))
	if !errors.Is(err, question.ErrInvalidValue) {
		t.Fatalf("AnswerFormQuestion(Survey) error = %v, want ErrInvalidValue", err)
	}
	if a, _ := r.FormAnswer(q.ID()); a.Value != question.Choice("RCT") {
		t.Errorf("answer changed to %v after a rejected value", a.Value)
	}

	fresh := pickList(t, reviewID, question.ContextForm, "A")
	_ = r.AnswerFormQuestion(fresh, question.Choice("B"))
	if _, ok := r.FormAnswer(fresh.ID()); ok {
		t.Error("rejected answer was stored")
	}
}

func TestAnswer_WrongQuestion(t *testing.T) {
	reviewID := uuid.New()
	r := newTestReview(t, reviewID, 1)

	foreign := pickList(t, uuid.New(), question.ContextForm, "A")
	if err := r.AnswerFormQuestion(foreign, question.Choice("A")); !errors.Is(err, ErrWrongQuestion) {
		t.Errorf("foreign question error = %v, want ErrWrongQuestion", err)
	}

	rob := pickList(t, reviewID, question.ContextRoB, "A")
	if err := r.AnswerFormQuestion(rob, question.Choice("A")); !errors.Is(err, ErrWrongQuestion) {
		t.Errorf("context mismatch error = %v, want ErrWrongQuestion", err)
	}
	if err := r.AnswerQualityQuestion(nil, question.Choice("A")); !errors.Is(err, ErrWrongQuestion) {
		t.Errorf("nil question error = %v, want ErrWrongQuestion", err)
	}
}

func TestMarkAsDuplicate(t *testing.T) {
	reviewID := uuid.New()
	a := newTestReview(t, reviewID, 1, "Scopus", "ACM")
	b := newTestReview(t, reviewID, 2, "IEEE", "Scopus")

	res, err := MarkAsDuplicate(a, b)
	if err != nil {
		t.Fatalf("MarkAsDuplicate() error = %v", err)
	}
	if res.UpdatedStudyID != 2 || res.DuplicatedStudyID != 1 || res.ReviewID != reviewID {
		t.Errorf("result = %+v", res)
	}
	if a.SelectionStatus() != SelectionDuplicated {
		t.Errorf("duplicate status = %s, want DUPLICATED", a.SelectionStatus())
	}
	want := []string{"IEEE", "Scopus", "ACM"}
	if got := b.SearchSources(); !reflect.DeepEqual(got, want) {
		t.Errorf("target sources = %v, want %v", got, want)
	}
	if b.SelectionStatus() != SelectionUnclassified {
		t.Errorf("target status = %s, want unchanged", b.SelectionStatus())
	}

	if _, err := MarkAsDuplicate(a, b); err != nil {
		t.Fatalf("second MarkAsDuplicate() error = %v", err)
	}
	if got := b.SearchSources(); !reflect.DeepEqual(got, want) {
		t.Errorf("target sources after repeat = %v, want %v", got, want)
	}
}

func TestMarkAsDuplicate_Rejected(t *testing.T) {
	reviewID := uuid.New()
	a := newTestReview(t, reviewID, 1, "Scopus")
	other := newTestReview(t, uuid.New(), 2, "ACM")

	if _, err := MarkAsDuplicate(a, a); err == nil {
		t.Error("MarkAsDuplicate(a, a) should fail")
	}
	if _, err := MarkAsDuplicate(a, other); err == nil {
		t.Error("MarkAsDuplicate across reviews should fail")
	}
	if _, err := MarkAsDuplicate(a, nil); err == nil {
		t.Error("MarkAsDuplicate(a, nil) should fail")
	}
	if a.SelectionStatus() != SelectionUnclassified || !reflect.DeepEqual(other.SearchSources(), []string{"ACM"}) {
		t.Error("rejected MarkAsDuplicate mutated a review")
	}
}

func TestCriteriaAndFullText(t *testing.T) {
	r := newTestReview(t, uuid.New(), 1)
	r.AddCriteria("IC1", "EC2", "IC1")
	r.RemoveCriteria("EC2")
	if got := r.Criteria(); !reflect.DeepEqual(got, []string{"IC1"}) {
		t.Errorf("Criteria() = %v, want [IC1]", got)
	}

	r.AttachFullText("/papers/nash.pdf", "https://doi.org/10.2307/1969529")
	if r.FullTextPath() != "/papers/nash.pdf" || r.Record().DOI != "https://doi.org/10.2307/1969529" {
		t.Errorf("after attach: path %q doi %q", r.FullTextPath(), r.Record().DOI)
	}
	r.AttachFullText("/papers/other.pdf", "https://doi.org/10.1000/other")
	if r.Record().DOI != "https://doi.org/10.2307/1969529" {
		t.Error("AttachFullText replaced an existing DOI")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	reviewID := uuid.New()
	r := newTestReview(t, reviewID, 3, "Scopus")
	q := pickList(t, reviewID, question.ContextRoB, "Low", "High")
	_ = r.Answer(q, question.Choice("Low"))
	_ = r.SetSelectionStatus(SelectionIncluded)
	_ = r.SetReadingPriority(PriorityMedium)
	r.SetComments("check table 2")
	r.AddCriteria("IC1")

	back, err := FromDocument(r.ToDocument())
	if err != nil {
		t.Fatalf("FromDocument() error = %v", err)
	}
	if !reflect.DeepEqual(back.ToDocument(), r.ToDocument()) {
		t.Errorf("round trip = %+v, want %+v", back.ToDocument(), r.ToDocument())
	}

	doc := r.ToDocument()
	doc.SelectionStatus = ""
	doc.ReadingPriority = ""
	back, err = FromDocument(doc)
	if err != nil {
		t.Fatalf("FromDocument(no statuses) error = %v", err)
	}
	if back.SelectionStatus() != SelectionUnclassified || back.ReadingPriority() != PriorityLow {
		t.Errorf("defaults = %s/%s", back.SelectionStatus(), back.ReadingPriority())
	}
}
