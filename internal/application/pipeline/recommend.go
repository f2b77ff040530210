package pipeline

// stopWorkDirectives are prepended to the immediate actions, in this order,
// whenever the gate requires stopping work.
var stopWorkDirectives = []string{
	"STOP ALL WORK IMMEDIATELY",
	"Secure the area and prevent worker access",
	"Notify the safety supervisor",
	"Do not resume work until all hazards are mitigated",
}

// ComposeImmediateActions orders the action list: mandatory stop-work
// directives first, then the model's own actions, deduplicated by exact
// string equality.
func ComposeImmediateActions(stopWorkRequired bool, modelActions []string) []string {
	var out []string
	if stopWorkRequired {
		out = append(out, stopWorkDirectives...)
	}
	return dedupeAppend(out, modelActions)
}

// ComposeRecommendations merges the model's recommendations with those drawn
// from the most similar historical analyses, deduplicated by exact string
// equality, model recommendations first.
func ComposeRecommendations(modelRecs []string, matches []Match) []string {
	out := dedupeAppend(nil, modelRecs)
	for _, m := range matches {
		out = dedupeAppend(out, m.Record.Recommendations)
	}
	return out
}

func dedupeAppend(dst, src []string) []string {
	seen := make(map[string]bool, len(dst)+len(src))
	for _, s := range dst {
		seen[s] = true
	}
	for _, s := range src {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		dst = append(dst, s)
	}
	return dst
}
