package review

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/bibtex"
	"github.com/matsen/slr/internal/importer"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/study"
)

const twoArticles = `
@article{nash1951,
  title = {Non-cooperative Games},
  author = {Nash, John},
  year = {1951},
  journal = {Annals of Mathematics}
}
@inproceedings{beck2002,
  title = {Test Driven Development},
  author = {Beck, Kent},
  year = {2002},
  booktitle = {XP Conference},
  doi = {10.1000/tdd.2002}
}
`

func setupService(t *testing.T) (*Service, *memRepo, uuid.UUID) {
	t.Helper()
	repo := newMemRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	ss, err := svc.CreateReview("TDD review", "Effects of TDD", "alice")
	if err != nil {
		t.Fatalf("CreateReview() error = %v", err)
	}
	return svc, repo, ss.ID
}

func importTwo(t *testing.T, svc *Service, reviewID uuid.UUID) []*study.Review {
	t.Helper()
	reviews, err := svc.Import(reviewID, FormatBibTeX, []byte(twoArticles), "Scopus")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	return reviews
}

func TestCreateReview(t *testing.T) {
	svc, _, id := setupService(t)
	ss, err := svc.Review(id)
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if ss.Title != "TDD review" || ss.Owner != "alice" || !ss.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("Review() = %+v", ss)
	}

	if _, err := svc.CreateReview(" ", "d", ""); !errors.Is(err, ErrInvalidReview) {
		t.Errorf("CreateReview(blank title) error = %v, want ErrInvalidReview", err)
	}
	if _, err := svc.CreateReview("t", "", ""); !errors.Is(err, ErrInvalidReview) {
		t.Errorf("CreateReview(blank description) error = %v, want ErrInvalidReview", err)
	}
	if _, err := svc.Review(uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Review(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestImport_SavesOnceWithSequentialIDs(t *testing.T) {
	svc, repo, id := setupService(t)

	reviews := importTwo(t, svc, id)
	if len(reviews) != 2 || reviews[0].StudyID() != 1 || reviews[1].StudyID() != 2 {
		t.Fatalf("Import() ids = %d studies", len(reviews))
	}
	if repo.studySaves != 1 {
		t.Errorf("studySaves = %d, want 1", repo.studySaves)
	}
	if got := reviews[1].Record().DOI; got != "https://doi.org/10.1000/tdd.2002" {
		t.Errorf("DOI = %q", got)
	}

	// A second import continues the sequence.
	more := importTwo(t, svc, id)
	if more[0].StudyID() != 3 {
		t.Errorf("second import first id = %d, want 3", more[0].StudyID())
	}

	// A fresh service seeds its allocator from storage.
	fresh := NewService(repo)
	again, err := fresh.Import(id, FormatBibTeX, []byte(twoArticles), "ACM")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if again[0].StudyID() != 5 {
		t.Errorf("fresh service first id = %d, want 5", again[0].StudyID())
	}
}

func TestImport_AbortsOnBadEntry(t *testing.T) {
	svc, repo, id := setupService(t)
	bad := twoArticles + `@article{broken, title = {No year}, author = {A}, journal = {J}}`

	_, err := svc.Import(id, FormatBibTeX, []byte(bad), "Scopus")
	var ee *importer.EntryError
	if !errors.As(err, &ee) || ee.Key != "broken" || !errors.Is(err, bibtex.ErrMissingField) {
		t.Fatalf("Import() error = %v, want EntryError for broken", err)
	}
	if len(repo.studies) != 0 || repo.studySaves != 0 {
		t.Errorf("failed import stored %d studies", len(repo.studies))
	}

	reviews := importTwo(t, svc, id)
	if reviews[0].StudyID() != 1 {
		t.Errorf("ids after failed import start at %d, want 1", reviews[0].StudyID())
	}
}

func TestImport_SaveFailureReleasesIDs(t *testing.T) {
	svc, repo, id := setupService(t)
	repo.failSaves = errDisk
	if _, err := svc.Import(id, FormatBibTeX, []byte(twoArticles), "Scopus"); !errors.Is(err, errDisk) {
		t.Fatalf("Import() error = %v, want errDisk", err)
	}
	repo.failSaves = nil
	if reviews := importTwo(t, svc, id); reviews[0].StudyID() != 1 {
		t.Errorf("first id after failed save = %d, want 1", reviews[0].StudyID())
	}
}

func TestImport_Errors(t *testing.T) {
	svc, _, id := setupService(t)
	if _, err := svc.Import(uuid.New(), FormatBibTeX, []byte(twoArticles), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Import(unknown review) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Import(id, FormatBibTeX, []byte("  \n"), "x"); !errors.Is(err, bibtex.ErrInputFormat) {
		t.Errorf("Import(blank) error = %v, want ErrInputFormat", err)
	}
	if _, err := svc.Import(id, Format("ris"), []byte(twoArticles), "x"); err == nil {
		t.Error("Import(unknown format) should fail")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"bibtex", FormatBibTeX, true},
		{"BIB", FormatBibTeX, true},
		{" Paperpile ", FormatPaperpile, true},
		{"ris", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestPreviewImport(t *testing.T) {
	svc, repo, _ := setupService(t)
	bad := twoArticles + `@misc{nope, title = {T}}`
	res, err := svc.PreviewImport(FormatBibTeX, []byte(bad))
	if err != nil {
		t.Fatalf("PreviewImport() error = %v", err)
	}
	if res.Valid != 2 || res.Invalid != 1 {
		t.Errorf("PreviewImport() valid %d invalid %d, want 2 and 1", res.Valid, res.Invalid)
	}
	if len(repo.studies) != 0 {
		t.Error("PreviewImport() stored studies")
	}
}

func TestAddStudy(t *testing.T) {
	svc, _, id := setupService(t)
	importTwo(t, svc, id)

	rec := study.Record{
		Type: study.Book, Title: "Refactoring", Authors: "Fowler, Martin",
		Year: 1999, Venue: "Addison-Wesley", DOI: "10.5555/311424",
	}
	r, err := svc.AddStudy(id, rec, "Manual")
	if err != nil {
		t.Fatalf("AddStudy() error = %v", err)
	}
	if r.StudyID() != 3 || r.Record().DOI != "https://doi.org/10.5555/311424" {
		t.Errorf("AddStudy() = id %d doi %q", r.StudyID(), r.Record().DOI)
	}

	rec.Year = 99
	if _, err := svc.AddStudy(id, rec); !errors.Is(err, study.ErrInvalidRecord) {
		t.Errorf("AddStudy(bad year) error = %v, want ErrInvalidRecord", err)
	}
	rec.Year = 1999
	rec.DOI = "not a doi"
	if _, err := svc.AddStudy(id, rec); !errors.Is(err, study.ErrInvalidDOI) {
		t.Errorf("AddStudy(bad doi) error = %v, want ErrInvalidDOI", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)

	r, err := svc.UpdateStatus(id, 1, StatusChange{Selection: "included", Priority: "HIGH"})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if r.SelectionStatus() != study.SelectionIncluded || r.ReadingPriority() != study.PriorityHigh {
		t.Errorf("UpdateStatus() = %s/%s", r.SelectionStatus(), r.ReadingPriority())
	}
	if r.ExtractionStatus() != study.ExtractionUnclassified {
		t.Errorf("extraction status changed to %s", r.ExtractionStatus())
	}

	stored, _ := repo.FindStudy(id, 1)
	if stored.SelectionStatus() != study.SelectionIncluded {
		t.Errorf("stored selection = %s", stored.SelectionStatus())
	}

	if _, err := svc.UpdateStatus(id, 1, StatusChange{Selection: "MAYBE"}); !errors.Is(err, study.ErrInvalidStatus) {
		t.Errorf("UpdateStatus(MAYBE) error = %v, want ErrInvalidStatus", err)
	}
	if _, err := svc.UpdateStatus(id, 1, StatusChange{}); err == nil {
		t.Error("UpdateStatus(no change) should fail")
	}
	if _, err := svc.UpdateStatus(id, 42, StatusChange{Selection: "EXCLUDED"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(unknown study) error = %v, want ErrNotFound", err)
	}
}

func TestMarkDuplicate(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)
	if _, err := svc.Import(id, FormatBibTeX, []byte(twoArticles), "ACM"); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	saves := repo.studySaves

	// Study 3 (ACM) duplicates study 1 (Scopus).
	res, err := svc.MarkDuplicate(id, 3, 1)
	if err != nil {
		t.Fatalf("MarkDuplicate() error = %v", err)
	}
	if res.UpdatedStudyID != 1 || res.DuplicatedStudyID != 3 || res.ReviewID != id {
		t.Errorf("MarkDuplicate() = %+v", res)
	}
	if repo.studySaves != saves+1 {
		t.Errorf("MarkDuplicate() used %d writes, want 1", repo.studySaves-saves)
	}

	target, _ := repo.FindStudy(id, 1)
	dup, _ := repo.FindStudy(id, 3)
	if dup.SelectionStatus() != study.SelectionDuplicated {
		t.Errorf("duplicate selection = %s", dup.SelectionStatus())
	}
	if got := target.SearchSources(); len(got) != 2 || got[0] != "Scopus" || got[1] != "ACM" {
		t.Errorf("target sources = %v, want [Scopus ACM]", got)
	}

	if _, err := svc.MarkDuplicate(id, 3, 1); err != nil {
		t.Fatalf("repeated MarkDuplicate() error = %v", err)
	}
	target, _ = repo.FindStudy(id, 1)
	if got := target.SearchSources(); len(got) != 2 {
		t.Errorf("repeated MarkDuplicate() sources = %v", got)
	}

	if _, err := svc.MarkDuplicate(id, 3, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkDuplicate(unknown target) error = %v, want ErrNotFound", err)
	}
}

const questionsYAML = `
- code: Q1
  description: Which design was used?
  context: FORM
  type: PICK_LIST
  options: [RCT, Cohort, Case study]
- code: Q2
  description: Sample size adequacy
  context: FORM
  type: NUMBERED_SCALE
  lower: 1
  higher: 5
- code: Q3
  description: Notes
  context: form
  type: textual
- code: R1
  description: Risk of selection bias
  context: ROB
  type: LABELED_SCALE
  scales:
    - {name: Low, value: 1}
    - {name: High, value: 3}
`

func addQuestions(t *testing.T, svc *Service, id uuid.UUID) map[string]question.Question {
	t.Helper()
	qs, err := svc.AddQuestions(id, []byte(questionsYAML))
	if err != nil {
		t.Fatalf("AddQuestions() error = %v", err)
	}
	byCode := make(map[string]question.Question)
	for _, q := range qs {
		byCode[q.Code()] = q
	}
	return byCode
}

func TestAddQuestions(t *testing.T) {
	svc, repo, id := setupService(t)
	byCode := addQuestions(t, svc, id)
	if len(byCode) != 4 || byCode["R1"].Kind() != question.KindLabeledScale || byCode["Q3"].Context() != question.ContextForm {
		t.Fatalf("AddQuestions() = %v", byCode)
	}

	before := len(repo.questions)
	if _, err := svc.AddQuestions(id, []byte("- {code: Q1, description: again, context: FORM, type: TEXTUAL}")); !errors.Is(err, question.ErrInvalidQuestion) {
		t.Errorf("AddQuestions(duplicate code) error = %v, want ErrInvalidQuestion", err)
	}
	if _, err := svc.AddQuestions(id, []byte("- {code: Z, description: d, context: FORM, type: PICK_LIST}")); !errors.Is(err, question.ErrInvalidQuestion) {
		t.Errorf("AddQuestions(pick list without options) error = %v, want ErrInvalidQuestion", err)
	}
	if _, err := svc.AddQuestions(id, []byte("[]")); err == nil {
		t.Error("AddQuestions(empty) should fail")
	}
	if len(repo.questions) != before {
		t.Errorf("failed AddQuestions() stored questions")
	}
}

func item(q question.Question, kind string, answer string) AnswerItem {
	return AnswerItem{QuestionID: q.ID().String(), Type: kind, Answer: json.RawMessage(answer)}
}

func TestBatchAnswer_PartialFailure(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)
	qs := addQuestions(t, svc, id)
	saves := repo.studySaves

	items := []AnswerItem{
		item(qs["Q1"], "PICK_LIST", `"RCT"`),
		item(qs["Q2"], "PICK_LIST", `"3"`), // type mismatch
		item(qs["Q3"], "TEXTUAL", `"well reported"`),
		item(qs["R1"], "LABELED_SCALE", `{"name":"Low","value":1}`),
	}
	res, err := svc.BatchAnswer(id, 1, items)
	if err != nil {
		t.Fatalf("BatchAnswer() error = %v", err)
	}
	if res.TotalAnswered != 3 || len(res.Succeeded) != 3 || len(res.Failed) != 1 {
		t.Fatalf("BatchAnswer() = %+v, want 3 successes and 1 failure", res)
	}
	if res.Failed[0].QuestionID != qs["Q2"].ID().String() || res.Failed[0].Reason == "" {
		t.Errorf("failure = %+v", res.Failed[0])
	}
	if repo.studySaves != saves+1 {
		t.Errorf("BatchAnswer() used %d writes, want 1", repo.studySaves-saves)
	}

	stored, _ := repo.FindStudy(id, 1)
	if a, ok := stored.FormAnswer(qs["Q1"].ID()); !ok || a.Value != question.Choice("RCT") {
		t.Errorf("stored Q1 answer = %+v, %v", a, ok)
	}
	if _, ok := stored.FormAnswer(qs["Q2"].ID()); ok {
		t.Error("mismatched Q2 answer was stored")
	}
	if a, ok := stored.QualityAnswer(qs["R1"].ID()); !ok || a.Value != (question.Label{Name: "Low", Value: 1}) {
		t.Errorf("stored R1 answer = %+v, %v", a, ok)
	}
	if _, ok := stored.FormAnswer(qs["R1"].ID()); ok {
		t.Error("risk-of-bias answer stored as extraction answer")
	}
}

func TestBatchAnswer_ItemFailures(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)
	qs := addQuestions(t, svc, id)

	other, _ := svc.CreateReview("Other", "Other review", "")
	foreign, err := svc.AddQuestions(other.ID, []byte("- {code: F1, description: d, context: FORM, type: TEXTUAL}"))
	if err != nil {
		t.Fatalf("AddQuestions() error = %v", err)
	}

	items := []AnswerItem{
		{QuestionID: "not-a-uuid", Type: "TEXTUAL", Answer: json.RawMessage(`"x"`)},
		{QuestionID: uuid.NewString(), Type: "TEXTUAL", Answer: json.RawMessage(`"x"`)},
		item(foreign[0], "TEXTUAL", `"x"`),
		item(qs["Q1"], "PICK_LIST", `"Survey"`),
		item(qs["Q2"], "NUMBERED_SCALE", `9`),
		item(qs["Q2"], "NUMBERED_SCALE", `2.5`),
		item(qs["Q3"], "MULTIPLE_CHOICE", `"x"`),
		item(qs["Q1"], "pick_list", `"RCT"`),
		item(qs["Q3"], " TEXTUAL", `"x"`),
	}
	saves := repo.studySaves
	res, err := svc.BatchAnswer(id, 1, items)
	if err != nil {
		t.Fatalf("BatchAnswer() error = %v", err)
	}
	if res.TotalAnswered != 0 || len(res.Failed) != len(items) {
		t.Errorf("BatchAnswer() = %+v, want every item failed", res)
	}
	if repo.studySaves != saves {
		t.Error("BatchAnswer() with no successes wrote the study")
	}
	var me *question.AnswerTypeMismatchError
	if got := res.Failed[len(items)-2]; got.Reason != (&question.AnswerTypeMismatchError{QuestionID: qs["Q1"].ID(), Expected: question.KindPickList, Got: "pick_list"}).Error() {
		t.Errorf("lowercase type failure = %+v, want a type mismatch", got)
	}
	if _, err := svc.AnswerQuestion(id, 1, item(qs["Q1"], "Pick_List", `"RCT"`)); !errors.As(err, &me) {
		t.Errorf("AnswerQuestion(mixed-case type) error = %v, want AnswerTypeMismatchError", err)
	}
}

func TestBatchAnswer_PropagatesStorageErrors(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)
	qs := addQuestions(t, svc, id)

	repo.failFind = errDisk
	if _, err := svc.BatchAnswer(id, 1, []AnswerItem{item(qs["Q3"], "TEXTUAL", `"x"`)}); !errors.Is(err, errDisk) {
		t.Errorf("BatchAnswer(find failure) error = %v, want errDisk", err)
	}
	repo.failFind = nil

	repo.failSaves = errDisk
	if _, err := svc.BatchAnswer(id, 1, []AnswerItem{item(qs["Q3"], "TEXTUAL", `"x"`)}); !errors.Is(err, errDisk) {
		t.Errorf("BatchAnswer(save failure) error = %v, want errDisk", err)
	}
	if _, err := svc.BatchAnswer(id, 77, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("BatchAnswer(unknown study) error = %v, want ErrNotFound", err)
	}
}

func TestAnswerQuestion_FailsFast(t *testing.T) {
	svc, repo, id := setupService(t)
	importTwo(t, svc, id)
	qs := addQuestions(t, svc, id)

	_, err := svc.AnswerQuestion(id, 2, item(qs["Q1"], "PICK_LIST", `"Survey"`))
	if !errors.Is(err, question.ErrInvalidValue) {
		t.Fatalf("AnswerQuestion(outside options) error = %v, want ErrInvalidValue", err)
	}
	stored, _ := repo.FindStudy(id, 2)
	if len(stored.FormAnswers()) != 0 {
		t.Error("rejected answer mutated the study")
	}

	_, err = svc.AnswerQuestion(id, 2, item(qs["Q2"], "TEXTUAL", `"3"`))
	var me *question.AnswerTypeMismatchError
	if !errors.As(err, &me) || me.QuestionID != qs["Q2"].ID() {
		t.Errorf("AnswerQuestion(mismatch) error = %v", err)
	}

	r, err := svc.AnswerQuestion(id, 2, item(qs["Q2"], "NUMBERED_SCALE", `4`))
	if err != nil {
		t.Fatalf("AnswerQuestion() error = %v", err)
	}
	if a, _ := r.FormAnswer(qs["Q2"].ID()); a.Value != question.Number(4) {
		t.Errorf("answer = %+v", a)
	}
}

func TestApplyProtocol(t *testing.T) {
	svc, _, id := setupService(t)
	qs := addQuestions(t, svc, id)

	p, err := svc.Protocol(id)
	if err != nil {
		t.Fatalf("Protocol() error = %v", err)
	}
	if p.Goal != "" || p.ReviewID != id {
		t.Errorf("empty Protocol() = %+v", p)
	}

	data := []byte("goal: Measure TDD\nextraction_questions: [" + qs["Q1"].ID().String() + "]\nrob_questions: [" + qs["R1"].ID().String() + "]\n")
	p, err = svc.ApplyProtocol(id, data)
	if err != nil {
		t.Fatalf("ApplyProtocol() error = %v", err)
	}
	if p.Goal != "Measure TDD" || len(p.ExtractionQuestions) != 1 || len(p.RobQuestions) != 1 {
		t.Errorf("ApplyProtocol() = %+v", p)
	}

	p, _ = svc.Protocol(id)
	if p.Goal != "Measure TDD" {
		t.Errorf("stored goal = %q", p.Goal)
	}

	wrongContext := []byte("rob_questions: [" + qs["Q1"].ID().String() + "]\n")
	if _, err := svc.ApplyProtocol(id, wrongContext); !errors.Is(err, question.ErrInvalidQuestion) {
		t.Errorf("ApplyProtocol(form question as rob) error = %v, want ErrInvalidQuestion", err)
	}
	unknown := []byte("extraction_questions: [" + uuid.NewString() + "]\n")
	if _, err := svc.ApplyProtocol(id, unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("ApplyProtocol(unknown question) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.ApplyProtocol(id, []byte("goal: ''\n")); err == nil {
		t.Error("ApplyProtocol(blank goal) should fail")
	}
}
