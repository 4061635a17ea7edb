// Package safety analyzes recorded audio for threats and alerts responders.
package safety

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/alucardeht/logia/internal/llm"
	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/internal/notify"
	"github.com/alucardeht/logia/internal/pipeline"
	"github.com/alucardeht/logia/internal/sentiment"
)

var log = logger.ForComponent("agent.safety")

const (
	StateDecodeAudio pipeline.State = "decode-audio"
	StateTranscribe  pipeline.State = "transcribe"
	StateSentiment   pipeline.State = "sentiment"

	SourceRules = "rules"
	SourceModel = "model"
)

var ErrNoAudio = errors.New("audio_data is required")

type Input struct {
	AudioData  string `json:"audio_data"`
	Encoding   string `json:"encoding,omitempty"`
	FileFormat string `json:"file_format,omitempty"`
}

type Judgment struct {
	ThreatLevel   Level   `json:"threat_level"`
	ThreatScore   float64 `json:"threat_score"`
	Justification string  `json:"justification"`
}

func (j *Judgment) Validate() error {
	if err := llm.OneOf("threat_level", string(j.ThreatLevel), string(LevelSafe), string(LevelMedium), string(LevelHigh)); err != nil {
		return err
	}
	if j.ThreatScore < 0 || j.ThreatScore > 10 {
		return fmt.Errorf("threat_score %v is outside 0-10", j.ThreatScore)
	}
	if strings.TrimSpace(j.Justification) == "" {
		return errors.New("justification is empty")
	}
	return nil
}

var judgmentSchema = &llm.Schema{
	Type: llm.TypeObject,
	Properties: map[string]*llm.Schema{
		"threat_level":  {Type: llm.TypeString, Enum: []string{string(LevelSafe), string(LevelMedium), string(LevelHigh)}},
		"threat_score":  {Type: llm.TypeNumber, Minimum: llm.Float(0), Maximum: llm.Float(10)},
		"justification": {Type: llm.TypeString, Description: "One sentence explaining the decision"},
	},
	Required: []string{"threat_level", "threat_score", "justification"},
}

type ThreatAnalysis struct {
	ThreatLevel   Level   `json:"threat_level"`
	ThreatScore   float64 `json:"threat_score"`
	Justification string  `json:"justification"`
	Source        string  `json:"source"`
}

type ResponderActions struct {
	ActionTaken    string `json:"action_taken,omitempty"`
	ChainOfThought string `json:"chain_of_thought"`
}

type Report struct {
	AlertLevel       Level            `json:"alert_level"`
	RecognizedText   string           `json:"recognized_text"`
	MatchedWords     []string         `json:"matched_words"`
	SentimentScore   float64          `json:"sentiment_score"`
	ThreatAnalysis   ThreatAnalysis   `json:"threat_analysis"`
	ResponderActions ResponderActions `json:"responder_actions"`
	Trace            []string         `json:"trace"`
}

type Agent struct {
	model     llm.Model
	analyzer  sentiment.Analyzer
	notifier  notify.Notifier
	riskWords []string
	machine   *pipeline.Machine[run]
}

func New(model llm.Model, analyzer sentiment.Analyzer, notifier notify.Notifier, riskWords []string) *Agent {
	a := &Agent{model: model, analyzer: analyzer, notifier: notifier, riskWords: riskWords}
	a.machine = pipeline.New[run]("safety", StateDecodeAudio).
		On(StateDecodeAudio, a.decodeAudio).
		On(StateTranscribe, a.transcribe).
		On(StateSentiment, a.scoreSentiment).
		On(pipeline.StateDecideBranch, a.judge).
		On(pipeline.StateAct, a.act)
	return a
}

type run struct {
	input  Input
	audio  []byte
	report Report
}

func (a *Agent) Run(ctx context.Context, in Input) (*Report, error) {
	r := &run{input: in}
	trace, err := a.machine.Run(ctx, r)
	r.report.Trace = make([]string, len(trace))
	for i, s := range trace {
		r.report.Trace[i] = string(s)
	}
	if err != nil {
		log.Error("pipeline failed", "trace", trace.String(), "error", err)
		return &r.report, err
	}
	log.Info("audio analyzed", "level", r.report.AlertLevel, "source", r.report.ThreatAnalysis.Source, "trace", trace.String())
	return &r.report, nil
}

func (a *Agent) decodeAudio(ctx context.Context, r *run) (pipeline.State, error) {
	if r.input.AudioData == "" {
		return "", ErrNoAudio
	}
	if enc := strings.ToLower(r.input.Encoding); enc != "" && enc != "base64" {
		return "", fmt.Errorf("unsupported audio encoding %q", r.input.Encoding)
	}
	audio, err := base64.StdEncoding.DecodeString(r.input.AudioData)
	if err != nil {
		return "", fmt.Errorf("decode audio: %w", err)
	}
	r.audio = audio
	return StateTranscribe, nil
}

func (a *Agent) transcribe(ctx context.Context, r *run) (pipeline.State, error) {
	text, err := a.model.Transcribe(ctx, r.audio, r.input.FileFormat)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	r.report.RecognizedText = strings.TrimSpace(text)

	if r.report.RecognizedText == "" {
		r.report.AlertLevel = LevelSafe
		r.report.ThreatAnalysis = ThreatAnalysis{ThreatLevel: LevelSafe, Justification: "No speech detected.", Source: SourceRules}
		r.report.ResponderActions = ResponderActions{ChainOfThought: "No speech detected, no action required."}
		return pipeline.StateDone, nil
	}
	return StateSentiment, nil
}

func (a *Agent) scoreSentiment(ctx context.Context, r *run) (pipeline.State, error) {
	r.report.SentimentScore = a.analyzer.Compound(r.report.RecognizedText)
	r.report.MatchedWords = MatchRiskWords(r.report.RecognizedText, a.riskWords)
	return pipeline.StateDecideBranch, nil
}

func (a *Agent) judge(ctx context.Context, r *run) (pipeline.State, error) {
	prompt := fmt.Sprintf(`You are a safety expert. Assess the threat in this transcript using its sentiment score.
Transcript: %q
Sentiment score: %.3f (compound, -1.0 most negative to 1.0 most positive)
High-risk words: %s
HIGH requires high-risk words and a strongly negative score (below -0.5). MEDIUM means high-risk words with a neutral or positive score. SAFE means no high-risk words and a neutral or positive score.
Reply with JSON: threat_level (SAFE, MEDIUM or HIGH), threat_score (0-10), justification (one sentence).`,
		r.report.RecognizedText, r.report.SentimentScore, strings.Join(a.riskWords, ", "))

	rulesLevel, decided := Assess(r.report.MatchedWords, r.report.SentimentScore)

	var j Judgment
	if err := llm.GenerateInto(ctx, a.model, prompt, judgmentSchema, &j); err != nil {
		if !decided {
			return "", fmt.Errorf("threat judgment: %w", err)
		}
		log.Warn("threat judgment unavailable, using rules", "rules", rulesLevel, "error", err)
		r.report.ThreatAnalysis = ThreatAnalysis{
			ThreatLevel:   rulesLevel,
			Justification: rulesJustification(rulesLevel, r.report.MatchedWords, r.report.SentimentScore),
			Source:        SourceRules,
		}
		r.report.AlertLevel = rulesLevel
		return pipeline.StateAct, nil
	}

	analysis := ThreatAnalysis{
		ThreatLevel:   j.ThreatLevel,
		ThreatScore:   j.ThreatScore,
		Justification: j.Justification,
		Source:        SourceModel,
	}
	if decided {
		if rulesLevel != j.ThreatLevel {
			log.Warn("model level overridden by rules", "model", j.ThreatLevel, "rules", rulesLevel)
		}
		analysis.ThreatLevel = rulesLevel
		analysis.Source = SourceRules
	}

	r.report.ThreatAnalysis = analysis
	r.report.AlertLevel = analysis.ThreatLevel
	return pipeline.StateAct, nil
}

func (a *Agent) act(ctx context.Context, r *run) (pipeline.State, error) {
	summary := r.report.ThreatAnalysis.Justification

	switch r.report.AlertLevel {
	case LevelHigh:
		_, err := a.notifier.Send(ctx, "CRITICAL SAFETY ALERT from LOGIA! High-priority threat detected. Details: "+summary)
		r.report.ResponderActions = ResponderActions{
			ActionTaken:    notify.Describe(err, "Officials have been notified via Twilio."),
			ChainOfThought: "Threat was HIGH, notified officials.",
		}
	case LevelMedium:
		_, err := a.notifier.Send(ctx, "LOGIA Check-in: We detected a concerning situation and have logged it for review. Are you okay? Please respond. Record: "+summary)
		r.report.ResponderActions = ResponderActions{
			ActionTaken:    notify.Describe(err, "A check-in message has been sent to the user."),
			ChainOfThought: "Threat was MEDIUM, contacted user for check-in.",
		}
	default:
		r.report.ResponderActions = ResponderActions{ChainOfThought: "Threat was SAFE, no action required."}
	}
	return pipeline.StateDone, nil
}
