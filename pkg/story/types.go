// Package story implements the story assembler (C7): signature
// construction, structured description generation, and the pure
// orphan-promotion decision. Persistence (story/evidence/orphan rows) is
// the orchestrator's job via pkg/services — this package only decides
// what a story should say and whether accumulated evidence has crossed
// the threshold to become one.
package story

// DescribeInput carries everything the structured description prompt
// needs: the candidate's evidence and its resolved facets.
type DescribeInput struct {
	Title             string
	ActionType        string
	Direction         string
	ProductAreaRaw    string
	ComponentRaw      string
	Excerpts          []string
	ResolutionActions []string
	RootCauses        []string
}

// Description is the structured output of the description template
// (Summary / Impact / Evidence / User Story / Acceptance Criteria /
// Symptoms / Technical Notes / INVEST Check).
type Description struct {
	Summary            string
	Impact             string
	Evidence           string
	UserStory          string
	AcceptanceCriteria string
	Symptoms           string
	TechnicalNotes     string
	InvestCheck        string
}

// Render joins the description's sections into the story's persisted
// description text, in template order.
func (d Description) Render() string {
	sections := []struct {
		heading string
		body    string
	}{
		{"Summary", d.Summary},
		{"Impact", d.Impact},
		{"Evidence", d.Evidence},
		{"User Story", d.UserStory},
		{"Acceptance Criteria", d.AcceptanceCriteria},
		{"Symptoms", d.Symptoms},
		{"Technical Notes", d.TechnicalNotes},
		{"INVEST Check", d.InvestCheck},
	}
	out := ""
	for _, s := range sections {
		if s.body == "" {
			continue
		}
		out += "## " + s.heading + "\n" + s.body + "\n\n"
	}
	return out
}
