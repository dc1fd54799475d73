// Package protocol holds the review protocol of a systematic study and its
// PICOC scoping template.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	// ErrBlank is matched by every BlankFieldError.
	ErrBlank = errors.New("blank field")

	// ErrAbsent is returned when removing an element the protocol does not hold.
	ErrAbsent = errors.New("element not in protocol")
)

// BlankFieldError reports a protocol text that was provided but is blank.
type BlankFieldError struct {
	Message string
}

func (e *BlankFieldError) Error() string        { return e.Message }
func (e *BlankFieldError) Is(target error) bool { return target == ErrBlank }

func blank(format string, args ...interface{}) error {
	return &BlankFieldError{Message: fmt.Sprintf(format, args...)}
}

// CriterionType says whether an eligibility criterion includes or excludes studies.
type CriterionType string

const (
	Inclusion CriterionType = "INCLUSION"
	Exclusion CriterionType = "EXCLUSION"
)

// Criterion is one eligibility criterion.
type Criterion struct {
	Description string        `json:"description" yaml:"description"`
	Type        CriterionType `json:"type" yaml:"type"`
}

func (c Criterion) validate() (Criterion, error) {
	c.Description = strings.TrimSpace(c.Description)
	if c.Description == "" {
		return Criterion{}, blank("The criterion description must not be blank")
	}
	t := CriterionType(strings.ToUpper(strings.TrimSpace(string(c.Type))))
	if t != Inclusion && t != Exclusion {
		return Criterion{}, fmt.Errorf("unknown criterion type %q (want INCLUSION or EXCLUSION)", c.Type)
	}
	c.Type = t
	return c, nil
}

// Picoc scopes a review by population, intervention, control, outcome and
// an optional context.
type Picoc struct {
	Population   string  `json:"population" yaml:"population"`
	Intervention string  `json:"intervention" yaml:"intervention"`
	Control      string  `json:"control" yaml:"control"`
	Outcome      string  `json:"outcome" yaml:"outcome"`
	Context      *string `json:"context,omitempty" yaml:"context"`
}

// Validate checks that every component is non-blank.
func (p Picoc) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"population", p.Population},
		{"intervention", p.Intervention},
		{"control", p.Control},
		{"outcome", p.Outcome},
	} {
		if strings.TrimSpace(f.value) == "" {
			return blank("The %s described in the PICOC must not be blank!", f.name)
		}
	}
	if p.Context != nil && strings.TrimSpace(*p.Context) == "" {
		return blank("The context, when provided, must not be blank!")
	}
	return nil
}

// Protocol is the review protocol of one systematic study.
type Protocol struct {
	ReviewID uuid.UUID `json:"review_id"`

	Goal          string `json:"goal,omitempty"`
	Justification string `json:"justification,omitempty"`

	ResearchQuestions        []string `json:"research_questions"`
	Keywords                 []string `json:"keywords"`
	SearchString             string   `json:"search_string,omitempty"`
	InformationSources       []string `json:"information_sources"`
	SourcesSelectionCriteria string   `json:"sources_selection_criteria,omitempty"`
	SearchMethod             string   `json:"search_method,omitempty"`

	StudiesLanguages    []string `json:"studies_languages"`
	StudyTypeDefinition string   `json:"study_type_definition,omitempty"`

	SelectionProcess    string      `json:"selection_process,omitempty"`
	EligibilityCriteria []Criterion `json:"eligibility_criteria"`

	DataCollectionProcess       string `json:"data_collection_process,omitempty"`
	AnalysisAndSynthesisProcess string `json:"analysis_and_synthesis_process,omitempty"`

	ExtractionQuestions []uuid.UUID `json:"extraction_questions"`
	RobQuestions        []uuid.UUID `json:"rob_questions"`

	Picoc *Picoc `json:"picoc,omitempty"`
}

// New returns an empty protocol for a systematic study.
func New(reviewID uuid.UUID) *Protocol {
	return &Protocol{
		ReviewID:            reviewID,
		ResearchQuestions:   []string{},
		Keywords:            []string{},
		InformationSources:  []string{},
		StudiesLanguages:    []string{},
		EligibilityCriteria: []Criterion{},
		ExtractionQuestions: []uuid.UUID{},
		RobQuestions:        []uuid.UUID{},
	}
}

// Update is a partial protocol change. Nil fields are left untouched;
// provided text must be non-blank and provided lists replace the current ones.
type Update struct {
	Goal                        *string     `yaml:"goal"`
	Justification               *string     `yaml:"justification"`
	ResearchQuestions           []string    `yaml:"research_questions"`
	Keywords                    []string    `yaml:"keywords"`
	SearchString                *string     `yaml:"search_string"`
	InformationSources          []string    `yaml:"information_sources"`
	SourcesSelectionCriteria    *string     `yaml:"sources_selection_criteria"`
	SearchMethod                *string     `yaml:"search_method"`
	StudiesLanguages            []string    `yaml:"studies_languages"`
	StudyTypeDefinition         *string     `yaml:"study_type_definition"`
	SelectionProcess            *string     `yaml:"selection_process"`
	EligibilityCriteria         []Criterion `yaml:"eligibility_criteria"`
	DataCollectionProcess       *string     `yaml:"data_collection_process"`
	AnalysisAndSynthesisProcess *string     `yaml:"analysis_and_synthesis_process"`
	ExtractionQuestions         []string    `yaml:"extraction_questions"`
	RobQuestions                []string    `yaml:"rob_questions"`
	Picoc                       *Picoc      `yaml:"picoc"`
}

// ParseUpdate reads a YAML protocol file.
func ParseUpdate(data []byte) (Update, error) {
	var u Update
	if err := yaml.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("parsing protocol YAML: %w", err)
	}
	return u, nil
}

// Apply validates u in full and then merges it into p. On error p is unchanged.
func (p *Protocol) Apply(u Update) error {
	next := p.clone()

	texts := []struct {
		src     *string
		dst     *string
		message string
	}{
		{u.Goal, &next.Goal, "The goal cannot be an empty string"},
		{u.Justification, &next.Justification, "The justification cannot be an empty string"},
		{u.SearchString, &next.SearchString, "The search string must not be blank!"},
		{u.SourcesSelectionCriteria, &next.SourcesSelectionCriteria, "The sources selection criteria description must not be blank"},
		{u.SearchMethod, &next.SearchMethod, "The search method description must not be blank"},
		{u.StudyTypeDefinition, &next.StudyTypeDefinition, "The study type definition must not be blank"},
		{u.SelectionProcess, &next.SelectionProcess, "The selection process description must not be blank"},
		{u.DataCollectionProcess, &next.DataCollectionProcess, "The data collection process description must not be blank"},
		{u.AnalysisAndSynthesisProcess, &next.AnalysisAndSynthesisProcess, "The analysis and synthesis process description must not be blank"},
	}
	for _, t := range texts {
		if t.src == nil {
			continue
		}
		v := strings.TrimSpace(*t.src)
		if v == "" {
			return blank("%s", t.message)
		}
		*t.dst = v
	}

	lists := []struct {
		src  []string
		dst  *[]string
		name string
	}{
		{u.ResearchQuestions, &next.ResearchQuestions, "research question"},
		{u.Keywords, &next.Keywords, "keyword"},
		{u.InformationSources, &next.InformationSources, "information source"},
		{u.StudiesLanguages, &next.StudiesLanguages, "study language"},
	}
	for _, l := range lists {
		if l.src == nil {
			continue
		}
		set, err := toSet(l.src, l.name)
		if err != nil {
			return err
		}
		*l.dst = set
	}

	if u.EligibilityCriteria != nil {
		criteria := make([]Criterion, 0, len(u.EligibilityCriteria))
		for _, c := range u.EligibilityCriteria {
			vc, err := c.validate()
			if err != nil {
				return err
			}
			if !containsCriterion(criteria, vc) {
				criteria = append(criteria, vc)
			}
		}
		next.EligibilityCriteria = criteria
	}

	for _, q := range []struct {
		src []string
		dst *[]uuid.UUID
	}{
		{u.ExtractionQuestions, &next.ExtractionQuestions},
		{u.RobQuestions, &next.RobQuestions},
	} {
		if q.src == nil {
			continue
		}
		ids, err := parseIDs(q.src)
		if err != nil {
			return err
		}
		*q.dst = ids
	}

	if u.Picoc != nil {
		if err := u.Picoc.Validate(); err != nil {
			return err
		}
		pc := *u.Picoc
		next.Picoc = &pc
	}

	*p = *next
	return nil
}

// AddKeyword adds a keyword unless it is already present.
func (p *Protocol) AddKeyword(k string) error {
	return addTo(&p.Keywords, k, "keyword")
}

// RemoveKeyword removes a keyword, failing when it is absent.
func (p *Protocol) RemoveKeyword(k string) error {
	return removeFrom(&p.Keywords, k, "keyword")
}

// AddResearchQuestion adds a research question unless it is already present.
func (p *Protocol) AddResearchQuestion(q string) error {
	return addTo(&p.ResearchQuestions, q, "research question")
}

// RemoveResearchQuestion removes a research question, failing when it is absent.
func (p *Protocol) RemoveResearchQuestion(q string) error {
	return removeFrom(&p.ResearchQuestions, q, "research question")
}

// AddInformationSource adds an information source unless it is already present.
func (p *Protocol) AddInformationSource(s string) error {
	return addTo(&p.InformationSources, s, "information source")
}

// RemoveInformationSource removes an information source, failing when it is absent.
func (p *Protocol) RemoveInformationSource(s string) error {
	return removeFrom(&p.InformationSources, s, "information source")
}

func addTo(set *[]string, v, name string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return blank("The %s must not be blank", name)
	}
	for _, s := range *set {
		if s == v {
			return nil
		}
	}
	*set = append(*set, v)
	return nil
}

func removeFrom(set *[]string, v, name string) error {
	v = strings.TrimSpace(v)
	for i, s := range *set {
		if s == v {
			*set = append((*set)[:i], (*set)[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s %q", ErrAbsent, name, v)
}

func toSet(values []string, name string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if err := addTo(&out, v, name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func parseIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	seen := make(map[uuid.UUID]bool)
	for _, v := range values {
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("invalid question id %q: %w", v, err)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func containsCriterion(cs []Criterion, c Criterion) bool {
	for _, x := range cs {
		if x == c {
			return true
		}
	}
	return false
}

func (p *Protocol) clone() *Protocol {
	c := *p
	c.ResearchQuestions = append([]string{}, p.ResearchQuestions...)
	c.Keywords = append([]string{}, p.Keywords...)
	c.InformationSources = append([]string{}, p.InformationSources...)
	c.StudiesLanguages = append([]string{}, p.StudiesLanguages...)
	c.EligibilityCriteria = append([]Criterion{}, p.EligibilityCriteria...)
	c.ExtractionQuestions = append([]uuid.UUID{}, p.ExtractionQuestions...)
	c.RobQuestions = append([]uuid.UUID{}, p.RobQuestions...)
	if p.Picoc != nil {
		pc := *p.Picoc
		c.Picoc = &pc
	}
	return &c
}
