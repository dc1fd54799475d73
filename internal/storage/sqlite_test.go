package storage

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/study"
)

// setupTestDB writes three studies to a workspace and builds the cache from them.
func setupTestDB(t *testing.T) (*DB, *Workspace, uuid.UUID) {
	t.Helper()

	tmpDir := t.TempDir()
	w := NewWorkspace(testPaths(tmpDir))
	rid := uuid.New()

	games := newStudy(t, rid, 1, "Non-cooperative Games", "Scopus")
	tdd := newStudy(t, rid, 2, "Test Driven Development in Practice", "ACM", "Scopus")
	soa, err := study.NewReview(rid, 3, study.Record{
		Type: study.InProceedings, Title: "Using SOA in Banking", Authors: "Smith, Jane and Doe, John",
		Year: 2010, Venue: "ICSE", Keywords: []string{"architecture"}, DOI: "https://doi.org/10.1000/soa",
	}, "IEEE")
	if err != nil {
		t.Fatalf("NewReview() error = %v", err)
	}
	if err := tdd.SetSelectionStatus(study.SelectionIncluded); err != nil {
		t.Fatal(err)
	}
	if err := w.SaveStudies(games, tdd, soa, newStudy(t, uuid.New(), 1, "Other review")); err != nil {
		t.Fatalf("SaveStudies() error = %v", err)
	}

	db, err := OpenDB(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n, err := db.RebuildFromJSONL(w.Paths().Studies)
	if err != nil {
		t.Fatalf("Failed to rebuild DB: %v", err)
	}
	if n != 4 {
		t.Fatalf("RebuildFromJSONL() = %d, want 4", n)
	}
	return db, w, rid
}

func ids(rs []*study.Review) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.StudyID()
	}
	return out
}

func TestDB_GetStudy(t *testing.T) {
	db, _, rid := setupTestDB(t)

	r, err := db.GetStudy(rid, 3)
	if err != nil {
		t.Fatalf("GetStudy() error = %v", err)
	}
	if r == nil || r.Record().DOI != "https://doi.org/10.1000/soa" || r.SearchSources()[0] != "IEEE" {
		t.Errorf("GetStudy() = %+v", r)
	}

	r, err = db.GetStudy(rid, 42)
	if err != nil || r != nil {
		t.Errorf("GetStudy(missing) = %v, %v, want nil, nil", r, err)
	}
}

func TestDB_ListStudies(t *testing.T) {
	db, _, rid := setupTestDB(t)

	tests := []struct {
		name   string
		filter StudyFilter
		want   []int64
	}{
		{"all", StudyFilter{}, []int64{1, 2, 3}},
		{"limit", StudyFilter{Limit: 2}, []int64{1, 2}},
		{"source", StudyFilter{Source: "Scopus"}, []int64{1, 2}},
		{"selection", StudyFilter{Selection: study.SelectionIncluded}, []int64{2}},
		{"full text title", StudyFilter{Query: "banking"}, []int64{3}},
		{"full text abstract", StudyFilter{Query: "equilibrium"}, []int64{1, 2}},
		{"full text keyword", StudyFilter{Query: "architecture"}, []int64{3}},
		{"phrase with hyphen", StudyFilter{Query: "test-driven"}, []int64{2}},
		{"every term must match", StudyFilter{Query: "driven practice"}, []int64{2}},
		{"operator word alone", StudyFilter{Query: "NOT"}, []int64{}},
		{"operator word as plain text", StudyFilter{Query: "OR"}, []int64{}},
		{"trailing operator word", StudyFilter{Query: "banking AND"}, []int64{3}},
		{"author prefix", StudyFilter{Author: "Smi"}, []int64{3}},
		{"years", StudyFilter{YearFrom: 2000, YearTo: 2020}, []int64{3}},
		{"doi", StudyFilter{DOI: "https://doi.org/10.1000/soa"}, []int64{3}},
		{"combined", StudyFilter{Query: "games", Source: "ACM"}, []int64{2}},
		{"combined empty", StudyFilter{Query: "banking", Source: "ACM"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListStudies(rid, tt.filter)
			if err != nil {
				t.Fatalf("ListStudies() error = %v", err)
			}
			gotIDs := ids(got)
			if len(gotIDs) != len(tt.want) {
				t.Fatalf("ListStudies() = %v, want %v", gotIDs, tt.want)
			}
			for i := range gotIDs {
				if gotIDs[i] != tt.want[i] {
					t.Errorf("ListStudies() = %v, want %v", gotIDs, tt.want)
				}
			}
		})
	}
}

func TestDB_Stats(t *testing.T) {
	db, _, rid := setupTestDB(t)
	st, err := db.Stats(rid)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if st.Total != 3 || st.Selection["INCLUDED"] != 1 || st.Selection["UNCLASSIFIED"] != 2 {
		t.Errorf("Stats().Selection = %v, total %d", st.Selection, st.Total)
	}
	if st.Sources["Scopus"] != 2 || st.Sources["IEEE"] != 1 {
		t.Errorf("Stats().Sources = %v", st.Sources)
	}
}

func TestDB_Sync(t *testing.T) {
	db, w, rid := setupTestDB(t)

	rebuilt, err := db.Sync(w.Paths().Studies)
	if err != nil || rebuilt {
		t.Fatalf("Sync(unchanged) = %v, %v, want false", rebuilt, err)
	}

	if err := w.SaveStudies(newStudy(t, rid, 4, "A New Study", "Manual")); err != nil {
		t.Fatalf("SaveStudies() error = %v", err)
	}
	rebuilt, err = db.Sync(w.Paths().Studies)
	if err != nil || !rebuilt {
		t.Fatalf("Sync(changed) = %v, %v, want true", rebuilt, err)
	}
	r, err := db.GetStudy(rid, 4)
	if err != nil || r == nil {
		t.Errorf("GetStudy(4) after Sync = %v, %v", r, err)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"games", `"games"`},
		{"  games  ", `"games"`},
		{"test-driven", `"test-driven"`},
		{"non cooperative", `"non" "cooperative"`},
		{"games AND", `"games" "AND"`},
		{"NOT", `"NOT"`},
		{`say "hi"`, `"say" """hi"""`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := prepareFTSQuery(tt.in); got != tt.want {
			t.Errorf("prepareFTSQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := prepareAuthorQuery("Nash, John"); got != `("Nash"* OR "John"*)` {
		t.Errorf("prepareAuthorQuery() = %q", got)
	}
}
