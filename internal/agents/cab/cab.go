// Package cab proposes an alternative destination when a passenger's
// original one is unavailable.
package cab

import (
	"context"
	"fmt"
	"strings"

	"github.com/alucardeht/logia/internal/geo"
	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/pipeline"
)

var log = logger.ForComponent("agent.cab")

const (
	StateSearch pipeline.State = "search"
	StateRoute  pipeline.State = "route"
	StateFare   pipeline.State = "fare"

	AnswerNotUnderstood = "Could not understand scenario. Please provide the place and approximate location."
	AnswerNoAlternative = "No suitable alternative destinations found nearby."

	notificationSent = "Passenger notification successfully sent via Twilio."
	smsPrefix        = "[LOGIA Reroute] "
)

type Intent struct {
	Query        string `json:"query"`
	LocationHint string `json:"location_hint"`
}

var intentSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"query":         {Type: llm.TypeString, Description: "Generic search query for an alternative place"},
		"location_hint": {Type: llm.TypeString, Description: "Where to search, as text"},
	},
	Required: []string{"query", "location_hint"},
}

type Report struct {
	Query        string      `json:"query"`
	LocationHint string      `json:"location_hint"`
	Found        []geo.Place `json:"found,omitempty"`
	Selected     *geo.Place  `json:"selected,omitempty"`
	Route        *geo.Route  `json:"route,omitempty"`
	RouteText    string      `json:"route_text,omitempty"`
	Fare         *float64    `json:"fare,omitempty"`
	FareText     string      `json:"fare_text,omitempty"`
	Notification string      `json:"notification,omitempty"`
	ReasoningLog []string    `json:"reasoning_log"`
	Answer       string      `json:"answer"`
	Trace        []string    `json:"trace"`
}

type Agent struct {
	rates    Rates
	model    llm.Model
	maps     geo.Service
	notifier notify.Notifier
	machine  *pipeline.Machine[run]
}

func New(rates Rates, model llm.Model, maps geo.Service, notifier notify.Notifier) *Agent {
	a := &Agent{rates: rates, model: model, maps: maps, notifier: notifier}
	a.machine = pipeline.New[run]("cab", pipeline.StateExtractIntent).
		On(pipeline.StateExtractIntent, a.extractIntent).
		On(StateSearch, a.search).
		On(pipeline.StateDecideBranch, a.decideBranch).
		On(StateRoute, a.route).
		On(StateFare, a.fare).
		On(pipeline.StateNotify, a.notify)
	return a
}

type run struct {
	scenario string
	report   Report
}

func (r *run) logf(format string, args ...any) {
	step := fmt.Sprintf(format, args...)
	r.report.ReasoningLog = append(r.report.ReasoningLog, step)
	log.Debug("reasoning", "step", step)
}

func (a *Agent) Run(ctx context.Context, scenario string) (*Report, error) {
	r := &run{scenario: scenario}
	r.logf("Start reroute flow")
	r.logf("Scenario: %s", scenario)

	trace, err := a.machine.Run(ctx, r)
	r.report.Trace = make([]string, len(trace))
	for i, s := range trace {
		r.report.Trace[i] = string(s)
	}
	if err != nil {
		log.Error("pipeline failed", "trace", trace.String(), "error", err)
		return &r.report, err
	}
	return &r.report, nil
}

func (a *Agent) extractIntent(ctx context.Context, r *run) (pipeline.State, error) {
	prompt := "From the user's request, extract a generic search query for an alternative place and a location hint. " +
		"Map specific businesses to their category, for example a named burger chain becomes 'restaurant' and a named coffee chain becomes 'coffee shop'. " +
		"Keep generic types such as 'pizza place' as they are. Reply with JSON only.\nScenario: " + r.scenario

	var intent Intent
	if err := llm.GenerateInto(ctx, a.model, prompt, intentSchema, &intent); err != nil {
		return "", fmt.Errorf("extract intent: %w", err)
	}
	r.report.Query = strings.TrimSpace(intent.Query)
	r.report.LocationHint = strings.TrimSpace(intent.LocationHint)
	r.logf("Extracted intent -> query='%s', location_hint='%s'", r.report.Query, r.report.LocationHint)

	if r.report.Query == "" || r.report.LocationHint == "" {
		r.report.Answer = AnswerNotUnderstood
		return pipeline.StateDone, nil
	}
	return StateSearch, nil
}

func (a *Agent) search(ctx context.Context, r *run) (pipeline.State, error) {
	places, err := a.maps.FindAlternatives(ctx, r.report.Query, r.report.LocationHint)
	if err != nil {
		r.logf("find_alternative_destinations -> Error using Google Maps APIs: %v", err)
		return pipeline.StateDecideBranch, nil
	}
	r.report.Found = places
	r.logf("find_alternative_destinations -> Found %d locations: %s", len(places), formatPlaces(places))
	return pipeline.StateDecideBranch, nil
}

// chooseBest skips the first result, taken to be the unavailable original,
// and returns the highest rated of the rest. Equal ratings keep the closer one.
func chooseBest(places []geo.Place) *geo.Place {
	if len(places) < 2 {
		return nil
	}
	best := places[1]
	for _, p := range places[2:] {
		if p.RatingValue() > best.RatingValue() {
			best = p
		}
	}
	return &best
}

func (a *Agent) decideBranch(ctx context.Context, r *run) (pipeline.State, error) {
	best := chooseBest(r.report.Found)
	if best == nil {
		r.logf("Chosen best alternative -> none")
		_, err := a.notifier.Send(ctx, smsPrefix+fmt.Sprintf(
			"Sorry, we couldn't find a suitable alternative for '%s' near '%s'.", r.report.Query, r.report.LocationHint))
		r.report.Notification = notify.Describe(err, notificationSent)
		r.logf("notify_passenger_via_twilio -> %s", r.report.Notification)
		r.report.Answer = AnswerNoAlternative
		return pipeline.StateDone, nil
	}
	r.report.Selected = best
	r.logf("Chosen best alternative -> %s", best)
	return StateRoute, nil
}

func (a *Agent) route(ctx context.Context, r *run) (pipeline.State, error) {
	route, err := a.maps.Route(ctx, r.report.LocationHint, r.report.Selected.Address)
	if err != nil {
		r.report.RouteText = fmt.Sprintf("Error using Directions API: %v", err)
	} else {
		r.report.Route = route
		r.report.RouteText = fmt.Sprintf("New route found. Distance: %s. ETA: %s.", route.DistanceText, route.DurationText)
	}
	r.logf("get_new_route_details -> %s", r.report.RouteText)
	return StateFare, nil
}

func (a *Agent) fare(ctx context.Context, r *run) (pipeline.State, error) {
	if r.report.Route == nil {
		r.report.FareText = "Could not calculate the new fare."
	} else {
		fare := a.rates.Fare(r.report.Route.Kilometers(), r.report.Route.Minutes())
		r.report.Fare = &fare
		r.report.FareText = fareText(fare)
	}
	r.logf("calculate_new_fare -> %s", r.report.FareText)
	return pipeline.StateNotify, nil
}

func (a *Agent) notify(ctx context.Context, r *run) (pipeline.State, error) {
	sel := r.report.Selected
	distance, eta := "unknown", "unknown"
	if r.report.Route != nil {
		distance, eta = r.report.Route.DistanceText, r.report.Route.DurationText
	}
	nearby := formatPlaces(r.report.Found)

	message := fmt.Sprintf("Proposed reroute to %s (%s). ETA: %s. Distance: %s. %s All found locations nearby: %s",
		sel.Name, sel.Address, eta, distance, r.report.FareText, nearby)
	_, err := a.notifier.Send(ctx, smsPrefix+message)
	r.report.Notification = notify.Describe(err, notificationSent)
	r.logf("notify_passenger_via_twilio -> %s", r.report.Notification)

	summary := fmt.Sprintf("Reroute complete. Selected: %s at %s. %s %s All Found Nearby: %s. Notification: %s",
		sel.Name, sel.Address, r.report.RouteText, r.report.FareText, nearby, r.report.Notification)
	r.report.Answer = "==== Reasoning Log ====\n" + strings.Join(r.report.ReasoningLog, "\n") +
		"\n\n==== Final Answer ====\n" + summary
	return pipeline.StateDone, nil
}

func formatPlaces(places []geo.Place) string {
	if len(places) == 0 {
		return "No other locations found nearby."
	}
	lines := make([]string, 0, geo.MaxAlternatives)
	for i, p := range places {
		if i == geo.MaxAlternatives {
			break
		}
		lines = append(lines, p.String())
	}
	return strings.Join(lines, "; ")
}
