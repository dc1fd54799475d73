package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/storage"
	"github.com/matsen/slr/internal/study"
	"github.com/spf13/cobra"
)

var (
	addType     string
	addTitle    string
	addAuthors  string
	addYear     int
	addVenue    string
	addAbstract string
	addKeywords []string
	addDOI      string
	addSources  []string

	listAuthor     string
	listSource     string
	listSelection  string
	listExtraction string
	listPriority   string
	listYearFrom   int
	listYearTo     int
	listDOI        string
	listLimit      int
)

func init() {
	f := studyAddCmd.Flags()
	f.StringVar(&addType, "type", string(study.Article), "Study type (ARTICLE, INPROCEEDINGS, ...)")
	f.StringVar(&addTitle, "title", "", "Title (required)")
	f.StringVar(&addAuthors, "authors", "", "Authors, verbatim (required)")
	f.IntVar(&addYear, "year", 0, "Publication year (required)")
	f.StringVar(&addVenue, "venue", "", "Journal, booktitle, institution or publisher (required)")
	f.StringVar(&addAbstract, "abstract", "", "Abstract")
	f.StringSliceVar(&addKeywords, "keywords", nil, "Comma-separated keywords")
	f.StringVar(&addDOI, "doi", "", "DOI")
	f.StringSliceVar(&addSources, "source", nil, "Search source (repeatable)")
	for _, name := range []string{"title", "authors", "year", "venue"} {
		studyAddCmd.MarkFlagRequired(name)
	}

	for _, c := range []*cobra.Command{studyListCmd, studySearchCmd} {
		lf := c.Flags()
		lf.StringVar(&listAuthor, "author", "", "Filter by author (prefix match on names)")
		lf.StringVar(&listSource, "source", "", "Filter by search source")
		lf.StringVar(&listSelection, "selection", "", "Filter by selection status")
		lf.StringVar(&listExtraction, "extraction", "", "Filter by extraction status")
		lf.StringVar(&listPriority, "priority", "", "Filter by reading priority")
		lf.IntVar(&listYearFrom, "year-from", 0, "Earliest publication year")
		lf.IntVar(&listYearTo, "year-to", 0, "Latest publication year")
		lf.StringVar(&listDOI, "doi", "", "Filter by DOI")
		lf.IntVarP(&listLimit, "limit", "n", DefaultListLimit, "Maximum results")
	}

	studyCmd.AddCommand(studyAddCmd, studyGetCmd, studyListCmd, studySearchCmd)
	rootCmd.AddCommand(studyCmd)
}

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Work with the study reviews of the current review",
}

var studyAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a study by hand",
	Long: `Add a study by hand. The record is validated the same way as imported entries.

Example:
  slr study add --title "Non-cooperative games" --authors "John Nash" \
    --year 1951 --venue "Annals of Mathematics" --source Manual`,
	Args: cobra.NoArgs,
	RunE: runStudyAdd,
}

var studyGetCmd = &cobra.Command{
	Use:   "get <study-id>",
	Short: "Get one study review",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyGet,
}

var studyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List study reviews",
	Long: `List study reviews of the current review, optionally filtered.

Examples:
  slr study list --selection UNCLASSIFIED
  slr study list --source ACM --year-from 2010`,
	Args: cobra.NoArgs,
	RunE: runStudyList,
}

var studySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over title, abstract, authors and keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStudySearch,
}

func runStudyAdd(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()

	t := study.Type(strings.ToUpper(addType))
	rec := study.Record{
		Type:     t,
		Title:    addTitle,
		Authors:  addAuthors,
		Year:     addYear,
		Venue:    addVenue,
		Abstract: addAbstract,
		Keywords: addKeywords,
		DOI:      study.DOI(addDOI),
	}

	r, err := s.svc.AddStudy(id, rec, addSources...)
	exitOnError(err, "adding study")
	s.refreshCache()

	logger.Info("added study", "review", id, "study", r.StudyID())
	outputStudy(r)
	return nil
}

func runStudyGet(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()
	studyID := mustStudyID(args[0])

	r, err := s.svc.Study(id, studyID)
	exitOnError(err, "getting study")

	outputStudy(r)
	return nil
}

func runStudyList(cmd *cobra.Command, args []string) error {
	f, err := buildFilter("")
	exitOnError(err, "invalid filter")
	listStudies(f)
	return nil
}

func runStudySearch(cmd *cobra.Command, args []string) error {
	f, err := buildFilter(strings.Join(args, " "))
	exitOnError(err, "invalid filter")
	listStudies(f)
	return nil
}

// buildFilter parses the list flags into a storage filter.
func buildFilter(query string) (storage.StudyFilter, error) {
	f := storage.StudyFilter{
		Query:    query,
		Author:   listAuthor,
		Source:   listSource,
		YearFrom: listYearFrom,
		YearTo:   listYearTo,
		Limit:    listLimit,
	}

	var err error
	if listSelection != "" {
		if f.Selection, err = study.ParseSelectionStatus(listSelection); err != nil {
			return f, err
		}
	}
	if listExtraction != "" {
		if f.Extraction, err = study.ParseExtractionStatus(listExtraction); err != nil {
			return f, err
		}
	}
	if listPriority != "" {
		if f.Priority, err = study.ParseReadingPriority(listPriority); err != nil {
			return f, err
		}
	}
	if listDOI != "" {
		if f.DOI, err = study.ParseDOI(listDOI); err != nil {
			return f, err
		}
	}
	return f, nil
}

// findStudies lists the studies of an existing systematic study. An unknown
// review is a NotFoundError, not an empty listing.
func findStudies(svc *review.Service, db *storage.DB, id uuid.UUID, f storage.StudyFilter) ([]*study.Review, error) {
	if _, err := svc.Review(id); err != nil {
		return nil, err
	}
	return db.ListStudies(id, f)
}

func listStudies(f storage.StudyFilter) {
	s := openSession()
	id := s.reviewID()

	db := s.openDB()
	defer db.Close()

	reviews, err := findStudies(s.svc, db, id, f)
	if err != nil {
		db.Close()
		exitOnError(err, "listing studies")
	}

	if humanOutput {
		if len(reviews) == 0 {
			fmt.Println("No studies found")
			return
		}
		for _, r := range reviews {
			printStudyRow(r)
		}
		return
	}

	docs := make([]study.Document, len(reviews))
	for i, r := range reviews {
		docs[i] = r.ToDocument()
	}
	outputJSON(docs)
}

// outputStudy prints one study review in the selected format.
func outputStudy(r *study.Review) {
	if humanOutput {
		printStudyDetail(r)
	} else {
		outputJSON(r.ToDocument())
	}
}
