package agents

// Name identifies one of the fixed evaluation agents. The set is closed:
// every agent the pipeline can run is declared in Registry below.
type Name string

const (
	Summary              Name = "summary_agent"
	InputPreprocessor    Name = "input_preprocessor"
	ContextEvaluator     Name = "context_evaluator"
	FactChecker          Name = "fact_checker"
	DepthAnalyzer        Name = "depth_analyzer"
	RelevanceAnalyzer    Name = "relevance_analyzer"
	StructureAnalyzer    Name = "structure_analyzer"
	HistoricalReflection Name = "historical_reflection"
	ReflectiveValidator  Name = "reflective_validator"
	HumanReasoning       Name = "human_reasoning"
	ScoreConsolidator    Name = "score_consolidator"
	ConsensusAgent       Name = "consensus_agent"
	Validator            Name = "validator"
)

// Phase distinguishes the independent-evaluation stage from the sequential
// consolidation stage.
type Phase int

const (
	Phase1 Phase = 1
	Phase2 Phase = 2
)

// Spec declares everything invocation and extraction need to know about one
// agent, so neither has to special-case on names.
type Spec struct {
	Name       Name
	Phase      Phase
	ScoreField string   // canonical score field in the model's JSON response
	AltFields  []string // field-name synonyms accumulated from observed model drift
	MinScore   float64
	MaxScore   float64
	// Critical agents must produce a real score: exhausted retries reject
	// the article instead of substituting a neutral default.
	Critical bool
	// Fallback is the neutral default substituted when a non-critical
	// agent fails or its score cannot be parsed.
	Fallback float64
	Prompt   string
}

// Registry is the closed set of all thirteen agents in execution order:
// eight independent Phase 1 analyses followed by five sequential Phase 2
// consolidation/validation steps.
var Registry = []Spec{
	{Name: Summary, Phase: Phase1, ScoreField: "summary_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 6.5, Prompt: summaryPrompt},
	{Name: InputPreprocessor, Phase: Phase1, ScoreField: "preprocessor_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: preprocessorPrompt},
	{Name: ContextEvaluator, Phase: Phase1, ScoreField: "context_score", MinScore: 0.1, MaxScore: 10.0, Critical: true, Fallback: 6.0, Prompt: contextEvaluatorPrompt},
	{Name: FactChecker, Phase: Phase1, ScoreField: "credibility_score", AltFields: []string{"cred_score"}, MinScore: 1.0, MaxScore: 10.0, Critical: true, Fallback: 7.0, Prompt: factCheckerPrompt},
	{Name: DepthAnalyzer, Phase: Phase1, ScoreField: "depth_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 5.5, Prompt: depthAnalyzerPrompt},
	{Name: RelevanceAnalyzer, Phase: Phase1, ScoreField: "relevance_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 6.5, Prompt: relevanceAnalyzerPrompt},
	{Name: StructureAnalyzer, Phase: Phase1, ScoreField: "structure_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: structureAnalyzerPrompt},
	{Name: HistoricalReflection, Phase: Phase1, ScoreField: "historical_score", AltFields: []string{"historical_adjustment"}, MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: historicalReflectionPrompt},
	{Name: ReflectiveValidator, Phase: Phase2, ScoreField: "reflective_score", AltFields: []string{"suggested_adjustment"}, MinScore: 1.0, MaxScore: 10.0, Fallback: 6.5, Prompt: reflectiveValidatorPrompt},
	{Name: HumanReasoning, Phase: Phase2, ScoreField: "human_score", AltFields: []string{"human_reasoning_score"}, MinScore: 1.0, MaxScore: 10.0, Fallback: 7.0, Prompt: humanReasoningPrompt},
	{Name: ScoreConsolidator, Phase: Phase2, ScoreField: "consolidation_score", AltFields: []string{"final_score"}, MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: consolidationPrompt},
	{Name: ConsensusAgent, Phase: Phase2, ScoreField: "consensus_score", AltFields: []string{"weighted_score"}, MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: consensusPrompt},
	{Name: Validator, Phase: Phase2, ScoreField: "final_score", MinScore: 1.0, MaxScore: 10.0, Fallback: 6.0, Prompt: validatorPrompt},
}

var registryByName = func() map[Name]Spec {
	m := make(map[Name]Spec, len(Registry))
	for _, s := range Registry {
		m[s.Name] = s
	}
	return m
}()

// Lookup returns the Spec for an agent name.
func Lookup(name Name) (Spec, bool) {
	s, ok := registryByName[name]
	return s, ok
}

// Phase1Agents returns the eight independent analysis agents in declaration
// order.
func Phase1Agents() []Spec {
	return phaseAgents(Phase1)
}

// Phase2Agents returns the five consolidation agents in their mandatory
// execution order.
func Phase2Agents() []Spec {
	return phaseAgents(Phase2)
}

func phaseAgents(p Phase) []Spec {
	var out []Spec
	for _, s := range Registry {
		if s.Phase == p {
			out = append(out, s)
		}
	}
	return out
}
