package router

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/alucardeht/logia/internal/llm"
)

type Classifier interface {
	Name() string
	Classify(ctx context.Context, scenario string) (Department, error)
}

// LLMClassifier makes exactly one structured-output request per scenario.
type LLMClassifier struct {
	model llm.Model
}

func NewLLMClassifier(model llm.Model) *LLMClassifier {
	return &LLMClassifier{model: model}
}

func (c *LLMClassifier) Name() string { return "llm" }

type routerChoice struct {
	AgentName Department `json:"agent_name"`
}

func (r *routerChoice) Validate() error {
	labels := make([]string, len(Departments))
	for i, d := range Departments {
		labels[i] = string(d)
	}
	return llm.OneOf("agent_name", string(r.AgentName), labels...)
}

var routerSchema = func() *llm.Schema {
	labels := make([]string, len(Departments))
	for i, d := range Departments {
		labels[i] = string(d)
	}
	return &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"agent_name": {Type: llm.TypeString, Enum: labels, Description: "The department to route to"},
		},
		Required: []string{"agent_name"},
	}
}()

func (c *LLMClassifier) Classify(ctx context.Context, scenario string) (Department, error) {
	prompt := fmt.Sprintf(`You are an expert logistics dispatcher. Decide which department is best suited to handle the user's problem.
The available departments are 'safety_agent', 'food_delay_agent' and 'cab_rerouting_agent'.

User's problem: %q

Choose the single most appropriate department.`, scenario)

	var choice routerChoice
	if err := llm.GenerateInto(ctx, c.model, prompt, routerSchema, &choice); err != nil {
		return "", err
	}
	return choice.AgentName, nil
}

// KeywordClassifier labels scenarios by summing weighted keyword stems.
// Threat stems outweigh any single cab or food stem; "help" alone does not.
// "late" and "delay" lean towards food but lose to a cab stem. Ties resolve
// in the order cab, food, safety; no match at all resolves to food.
type KeywordClassifier struct {
	stems map[Department][]stem
}

type stem struct {
	prefix string
	weight int
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{stems: map[Department][]stem{
		DepartmentSafety: {
			{"help", 1}, {"danger", 3}, {"threat", 3}, {"unsafe", 3}, {"scream", 3},
			{"attack", 3}, {"emergency", 3}, {"scared", 3},
		},
		DepartmentFood: {
			{"food", 2}, {"deliver", 2}, {"order", 2}, {"restaurant", 2}, {"meal", 2},
			{"pizza", 2}, {"prep", 2}, {"late", 1}, {"delay", 1},
		},
		DepartmentCab: {
			{"cab", 2}, {"ride", 2}, {"taxi", 2}, {"reroute", 2}, {"trip", 2},
			{"destination", 2}, {"drop", 2},
		},
	}}
}

func (c *KeywordClassifier) Name() string { return "keyword" }

func (c *KeywordClassifier) Classify(ctx context.Context, scenario string) (Department, error) {
	tokens := strings.FieldsFunc(cases.Fold().String(scenario), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	best, bestScore := DepartmentFood, 0
	for _, d := range []Department{DepartmentCab, DepartmentFood, DepartmentSafety} {
		score := 0
		for _, tok := range tokens {
			for _, st := range c.stems[d] {
				if strings.HasPrefix(tok, st.prefix) {
					score += st.weight
					break
				}
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best, nil
}
