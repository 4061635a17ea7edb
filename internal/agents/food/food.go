// Package food resolves food delivery delays against the order dataset.
package food

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alucardeht/logia/internal/dataset"
	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/pipeline"
)

var log = logger.ForComponent("agent.food")

const (
	SeverityCritical = "critical"
	SeverityMinor    = "minor"

	notificationSent = "Notification successfully sent."
	smsPrefix        = "[LOGIA Alert] "
)

var ErrNoOrderID = errors.New("no order ID found in scenario")

type Config struct {
	CriticalPrepMins int
	Alternatives     int
}

type Alternative struct {
	Name         string `json:"name"`
	PrepTimeMins int    `json:"prep_time"`
}

type Notification struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	Outcome   string `json:"outcome"`
}

type Report struct {
	OrderID       string                `json:"order_id"`
	CustomerName  string                `json:"customer_name"`
	MerchantID    string                `json:"merchant_id"`
	MerchantName  string                `json:"merchant_name"`
	PrepTimeMins  int                   `json:"prep_time_mins"`
	Severity      string                `json:"severity"`
	Reroute       *dataset.PendingOrder `json:"reroute,omitempty"`
	RerouteNote   string                `json:"reroute_note,omitempty"`
	Alternatives  []Alternative         `json:"alternatives,omitempty"`
	Notifications []Notification        `json:"notifications"`
	Trace         []string              `json:"trace"`
	Summary       string                `json:"summary"`
}

type Agent struct {
	cfg      Config
	store    *dataset.Store
	model    llm.Model
	notifier notify.Notifier
	machine  *pipeline.Machine[run]
}

// New builds the agent. model may be nil, in which case order IDs must
// appear verbatim in the scenario.
func New(cfg Config, store *dataset.Store, model llm.Model, notifier notify.Notifier) *Agent {
	if cfg.CriticalPrepMins <= 0 {
		cfg.CriticalPrepMins = 40
	}
	if cfg.Alternatives <= 0 {
		cfg.Alternatives = 2
	}
	a := &Agent{cfg: cfg, store: store, model: model, notifier: notifier}
	a.machine = pipeline.New[run]("food", pipeline.StateExtractIntent).
		On(pipeline.StateExtractIntent, a.extractIntent).
		On(pipeline.StateFetchContext, a.fetchContext).
		On(pipeline.StateDecideBranch, a.decideBranch).
		On(pipeline.StateAct, a.act).
		On(pipeline.StateNotify, a.notify)
	return a
}

type run struct {
	scenario string
	order    *dataset.Order
	merchant *dataset.Merchant
	report   Report
}

func (a *Agent) Run(ctx context.Context, scenario string) (*Report, error) {
	r := &run{scenario: scenario}
	trace, err := a.machine.Run(ctx, r)
	r.report.Trace = make([]string, len(trace))
	for i, s := range trace {
		r.report.Trace[i] = string(s)
	}
	if err != nil {
		log.Error("pipeline failed", "trace", trace.String(), "error", err)
		return &r.report, err
	}
	log.Info("delay resolved", "order", r.report.OrderID, "severity", r.report.Severity, "trace", trace.String())
	return &r.report, nil
}

type orderRef struct {
	OrderID string `json:"order_id"`
}

func (o *orderRef) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return errors.New("order_id is empty")
	}
	return nil
}

var orderRefSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"order_id": {Type: llm.TypeString, Description: "The order ID mentioned by the user, e.g. ORD123."},
	},
	Required: []string{"order_id"},
}

func (a *Agent) extractIntent(ctx context.Context, r *run) (pipeline.State, error) {
	if id, ok := a.store.FindOrderInText(r.scenario); ok {
		r.report.OrderID = id
		return pipeline.StateFetchContext, nil
	}
	if a.model == nil {
		return "", ErrNoOrderID
	}

	prompt := "Extract the delivery order ID from this customer message. Reply with JSON only.\nMessage: " + r.scenario
	var ref orderRef
	if err := llm.GenerateInto(ctx, a.model, prompt, orderRefSchema, &ref); err != nil {
		return "", fmt.Errorf("extract order id: %w", err)
	}
	r.report.OrderID = strings.ToUpper(strings.TrimSpace(ref.OrderID))
	return pipeline.StateFetchContext, nil
}

func (a *Agent) fetchContext(ctx context.Context, r *run) (pipeline.State, error) {
	order, err := a.store.Order(r.report.OrderID)
	if err != nil {
		return "", err
	}
	merchant, err := a.store.Merchant(order.MerchantID)
	if err != nil {
		return "", err
	}

	r.order, r.merchant = order, merchant
	r.report.CustomerName = order.CustomerName
	r.report.MerchantID = merchant.ID
	r.report.MerchantName = merchant.Name
	r.report.PrepTimeMins = merchant.PrepTimeMins
	return pipeline.StateDecideBranch, nil
}

func (a *Agent) decideBranch(ctx context.Context, r *run) (pipeline.State, error) {
	if r.merchant.PrepTimeMins > a.cfg.CriticalPrepMins {
		r.report.Severity = SeverityCritical
		return pipeline.StateAct, nil
	}
	r.report.Severity = SeverityMinor
	return pipeline.StateNotify, nil
}

func (a *Agent) act(ctx context.Context, r *run) (pipeline.State, error) {
	switch {
	case r.order.DriverLocation == nil:
		r.report.RerouteNote = "Driver location is unknown; no reroute attempted."
	default:
		pending, err := a.store.NearestPendingOrder(*r.order.DriverLocation, r.merchant.ID)
		switch {
		case errors.Is(err, dataset.ErrNoPendingOrder):
			r.report.RerouteNote = "No other pending orders available for rerouting."
		case err != nil:
			return "", err
		default:
			r.report.Reroute = pending
		}
	}

	nearby, err := a.store.NearbyMerchants(r.merchant.ID, a.cfg.Alternatives)
	if err != nil {
		return "", err
	}
	for _, m := range nearby {
		r.report.Alternatives = append(r.report.Alternatives, Alternative{Name: m.Name, PrepTimeMins: m.PrepTimeMins})
	}
	return pipeline.StateNotify, nil
}

func (a *Agent) notify(ctx context.Context, r *run) (pipeline.State, error) {
	if r.report.Severity == SeverityCritical {
		if p := r.report.Reroute; p != nil {
			a.send(ctx, r, "driver", fmt.Sprintf(
				"Driver update: %s at %s is delayed %d mins. Please pick up order %s at %s instead (%d units away).",
				r.order.ID, r.merchant.Name, r.merchant.PrepTimeMins, p.OrderID, p.Merchant.Name, p.Distance))
		} else {
			a.send(ctx, r, "driver", fmt.Sprintf(
				"Driver update: %s at %s is delayed %d mins. No other pickup is available nearby, please hold.",
				r.order.ID, r.merchant.Name, r.merchant.PrepTimeMins))
		}
	}

	var msg string
	if r.report.Severity == SeverityCritical {
		msg = fmt.Sprintf("Hi %s, %s is heavily delayed: your order %s needs about %d more minutes.",
			r.order.CustomerName, r.merchant.Name, r.order.ID, r.merchant.PrepTimeMins)
		if len(r.report.Alternatives) > 0 {
			msg += " Faster nearby options: " + formatAlternatives(r.report.Alternatives) + "."
		}
	} else {
		msg = fmt.Sprintf("Hi %s, your order %s from %s will be ready in about %d minutes. Thanks for your patience.",
			r.order.CustomerName, r.order.ID, r.merchant.Name, r.merchant.PrepTimeMins)
	}
	a.send(ctx, r, "customer", msg)

	r.report.Summary = summarize(&r.report)
	return pipeline.StateDone, nil
}

func (a *Agent) send(ctx context.Context, r *run, recipient, message string) {
	_, err := a.notifier.Send(ctx, smsPrefix+message)
	r.report.Notifications = append(r.report.Notifications, Notification{
		Recipient: recipient,
		Message:   message,
		Outcome:   notify.Describe(err, notificationSent),
	})
}

func formatAlternatives(alts []Alternative) string {
	parts := make([]string, len(alts))
	for i, alt := range alts {
		parts[i] = fmt.Sprintf("%s (%d mins)", alt.Name, alt.PrepTimeMins)
	}
	return strings.Join(parts, ", ")
}

func summarize(rep *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s at %s: prep time %d mins, %s delay.", rep.OrderID, rep.MerchantName, rep.PrepTimeMins, rep.Severity)
	if rep.Reroute != nil {
		fmt.Fprintf(&b, " Driver rerouted to order %s at %s (%d units away).", rep.Reroute.OrderID, rep.Reroute.Merchant.Name, rep.Reroute.Distance)
	} else if rep.RerouteNote != "" {
		b.WriteString(" " + rep.RerouteNote)
	}
	if len(rep.Alternatives) > 0 {
		b.WriteString(" Alternatives offered: " + formatAlternatives(rep.Alternatives) + ".")
	}
	for _, n := range rep.Notifications {
		fmt.Fprintf(&b, " Notify %s: %s", n.Recipient, n.Outcome)
	}
	return b.String()
}
