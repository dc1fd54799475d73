package main

import (
	"fmt"
	"strings"

	"github.com/matsen/slr/internal/protocol"
	"github.com/spf13/cobra"
)

var (
	protoAddKeywords    []string
	protoRemoveKeywords []string
	protoAddRQs         []string
	protoRemoveRQs      []string
	protoAddSources     []string
	protoRemoveSources  []string
)

func init() {
	f := protocolEditCmd.Flags()
	f.StringArrayVar(&protoAddKeywords, "add-keyword", nil, "Add a keyword (repeatable)")
	f.StringArrayVar(&protoRemoveKeywords, "remove-keyword", nil, "Remove a keyword (repeatable)")
	f.StringArrayVar(&protoAddRQs, "add-question", nil, "Add a research question (repeatable)")
	f.StringArrayVar(&protoRemoveRQs, "remove-question", nil, "Remove a research question (repeatable)")
	f.StringArrayVar(&protoAddSources, "add-source", nil, "Add an information source (repeatable)")
	f.StringArrayVar(&protoRemoveSources, "remove-source", nil, "Remove an information source (repeatable)")

	protocolCmd.AddCommand(protocolApplyCmd, protocolShowCmd, protocolEditCmd)
	rootCmd.AddCommand(protocolCmd)
}

var protocolCmd = &cobra.Command{
	Use:   "protocol",
	Short: "Manage the review protocol",
}

var protocolApplyCmd = &cobra.Command{
	Use:   "apply <file.yml>",
	Short: "Apply a YAML protocol file",
	Long: `Apply a YAML protocol file to the current review.

Fields present in the file replace the stored ones; absent fields are kept.
Text fields must not be blank. Extraction questions must be FORM questions
and rob_questions must be ROB questions of the same review.

Example protocol.yml:
  goal: Assess the effect of TDD on defect density
  keywords: [tdd, test-first]
  information_sources: [ACM, IEEE]
  eligibility_criteria:
    - description: Reports defect data
      type: INCLUSION
  picoc:
    population: professional developers
    intervention: test-driven development
    control: test-last development
    outcome: defect density`,
	Args: cobra.ExactArgs(1),
	RunE: runProtocolApply,
}

var protocolShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the review protocol",
	Args:  cobra.NoArgs,
	RunE:  runProtocolShow,
}

var protocolEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Add or remove keywords, research questions and information sources",
	Args:  cobra.NoArgs,
	RunE:  runProtocolEdit,
}

func runProtocolApply(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()

	p, err := s.svc.ApplyProtocol(id, readInput(args[0]))
	exitOnError(err, "applying protocol")

	logger.Info("applied protocol", "review", id)
	printProtocol(p)
	return nil
}

func runProtocolShow(cmd *cobra.Command, args []string) error {
	s := openSession()

	p, err := s.svc.Protocol(s.reviewID())
	exitOnError(err, "loading protocol")

	printProtocol(p)
	return nil
}

func runProtocolEdit(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()

	p, err := s.svc.Protocol(id)
	exitOnError(err, "loading protocol")

	edits := []struct {
		values []string
		apply  func(string) error
	}{
		{protoAddKeywords, p.AddKeyword},
		{protoRemoveKeywords, p.RemoveKeyword},
		{protoAddRQs, p.AddResearchQuestion},
		{protoRemoveRQs, p.RemoveResearchQuestion},
		{protoAddSources, p.AddInformationSource},
		{protoRemoveSources, p.RemoveInformationSource},
	}
	changed := false
	for _, e := range edits {
		for _, v := range e.values {
			exitOnError(e.apply(v), "editing protocol")
			changed = true
		}
	}
	if !changed {
		exitWithError(ExitError, "nothing to edit (use --add-keyword, --remove-source, ...)")
	}

	exitOnError(s.ws.SaveProtocol(p), "saving protocol")
	logger.Info("edited protocol", "review", id)
	printProtocol(p)
	return nil
}

func printProtocol(p *protocol.Protocol) {
	if !humanOutput {
		outputJSON(p)
		return
	}

	fmt.Printf("Protocol for review %s\n", p.ReviewID)
	fmt.Println(strings.Repeat("═", DetailTitleMaxLen))
	if p.Goal != "" {
		fmt.Printf("Goal:        %s\n", wrapText(p.Goal, TextWrapWidth, "             "))
	}
	if len(p.ResearchQuestions) > 0 {
		fmt.Println("Research questions:")
		for i, q := range p.ResearchQuestions {
			fmt.Printf("  RQ%d. %s\n", i+1, q)
		}
	}
	if len(p.Keywords) > 0 {
		fmt.Printf("Keywords:    %s\n", strings.Join(p.Keywords, ", "))
	}
	if p.SearchString != "" {
		fmt.Printf("Search:      %s\n", p.SearchString)
	}
	if len(p.InformationSources) > 0 {
		fmt.Printf("Sources:     %s\n", strings.Join(p.InformationSources, ", "))
	}
	for _, c := range p.EligibilityCriteria {
		fmt.Printf("  [%s] %s\n", c.Type, c.Description)
	}
	if p.Picoc != nil {
		fmt.Printf("Population:  %s\n", p.Picoc.Population)
		fmt.Printf("Interv.:     %s\n", p.Picoc.Intervention)
		fmt.Printf("Control:     %s\n", p.Picoc.Control)
		fmt.Printf("Outcome:     %s\n", p.Picoc.Outcome)
	}
	fmt.Printf("Questions:   %d extraction, %d risk of bias\n", len(p.ExtractionQuestions), len(p.RobQuestions))
}
