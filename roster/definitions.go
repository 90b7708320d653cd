// ABOUTME: The fixed roster of nine pipeline agents with display metadata and closed alias tables.
// ABOUTME: Builds the alias index once at init and panics if two slots claim the same identifier.
package roster

import "fmt"

// Definition describes one canonical agent slot. Definitions are fixed at
// compile time; the roster is never extended at runtime.
type Definition struct {
	ID          string
	DisplayName string
	Icon        string
	Aliases     []string
}

// definitions lists the roster in display order. Each alias list is the
// closed set of identifiers the external pipeline is known to emit for the
// slot; anything outside these lists does not resolve.
var definitions = []Definition{
	{
		ID: "cleaner", DisplayName: "Data Cleaner", Icon: "🧹",
		Aliases: []string{"data_cleaner", "Data Cleaner", "DataCleaner", "data-cleaner", "cleaner_agent", "CleanerAgent", "Cleaner"},
	},
	{
		ID: "planner", DisplayName: "Analysis Planner", Icon: "🧭",
		Aliases: []string{"analysis_planner", "Analysis Planner", "AnalysisPlanner", "planner_agent", "PlannerAgent", "Planner"},
	},
	{
		ID: "sql", DisplayName: "SQL Agent", Icon: "🗄",
		Aliases: []string{"sql_agent", "SQL Agent", "SQLAgent", "sql-agent", "sql_generator", "SQL Generator", "SQL"},
	},
	{
		ID: "insight", DisplayName: "Insight Agent", Icon: "💡",
		Aliases: []string{"insight_agent", "Insight Agent", "InsightAgent", "insights", "insight_generator", "Insight"},
	},
	{
		ID: "chart", DisplayName: "Chart Agent", Icon: "📊",
		Aliases: []string{"chart_agent", "Chart Agent", "ChartAgent", "visualization", "visualizer", "chart_generator", "Chart"},
	},
	{
		ID: "critique", DisplayName: "Critique Agent", Icon: "🧐",
		Aliases: []string{"critique_agent", "Critique Agent", "CritiqueAgent", "critic", "Critic", "Critique"},
	},
	{
		ID: "debate", DisplayName: "Debate Agent", Icon: "⚖",
		Aliases: []string{"debate_agent", "Debate Agent", "DebateAgent", "debater", "Debate"},
	},
	{
		ID: "narrative", DisplayName: "Narrative Agent", Icon: "📝",
		Aliases: []string{"narrative_agent", "Narrative Agent", "NarrativeAgent", "narrator", "storyteller", "Narrative"},
	},
	{
		ID: "report", DisplayName: "Report Agent", Icon: "📄",
		Aliases: []string{"report_agent", "Report Agent", "ReportAgent", "reporter", "report_generator", "Report"},
	},
}

var (
	canonical  map[string]int    // canonical id -> roster position
	aliasIndex map[string]string // alias -> canonical id
)

func init() {
	var err error
	canonical, aliasIndex, err = buildIndex(definitions)
	if err != nil {
		panic(err)
	}
}

// buildIndex derives the id and alias lookup tables and rejects any
// identifier claimed by more than one slot.
func buildIndex(defs []Definition) (map[string]int, map[string]string, error) {
	ids := make(map[string]int, len(defs))
	aliases := make(map[string]string)
	for i, d := range defs {
		if _, dup := ids[d.ID]; dup {
			return nil, nil, fmt.Errorf("roster: duplicate slot id %q", d.ID)
		}
		ids[d.ID] = i
	}
	for _, d := range defs {
		for _, a := range d.Aliases {
			if owner, ok := ids[a]; ok && defs[owner].ID != d.ID {
				return nil, nil, fmt.Errorf("roster: alias %q of %q shadows slot id", a, d.ID)
			}
			if owner, ok := aliases[a]; ok && owner != d.ID {
				return nil, nil, fmt.Errorf("roster: alias %q claimed by %q and %q", a, owner, d.ID)
			}
			aliases[a] = d.ID
		}
	}
	return ids, aliases, nil
}

// Definitions returns a copy of the roster definitions in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	for i, d := range definitions {
		d.Aliases = append([]string(nil), d.Aliases...)
		out[i] = d
	}
	return out
}

// Size returns the number of slots in the roster.
func Size() int {
	return len(definitions)
}

// Lookup returns the definition for a canonical id.
func Lookup(id string) (Definition, bool) {
	i, ok := canonical[id]
	if !ok {
		return Definition{}, false
	}
	return definitions[i], true
}
