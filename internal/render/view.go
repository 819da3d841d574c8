// Package render turns an analysis response into a format-agnostic view
// model and renders that model as HTML or terminal text.
package render

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/coach/internal/domain/analysis"
)

// Placeholder texts for empty sections.
const (
	NoAnalysis   = "No analysis available"
	NoPlatforms  = "No platform data available"
	NoWeaknesses = "No specific weaknesses detected. Great job!"
	NoTasks      = "No specific tasks recommended at this time."

	defaultOrchestrator  = "Unknown"
	defaultExecutionMode = "Sequential"
	defaultTaskTitle     = "Untitled Task"
	flexibleDue          = "Flexible"
)

// View is the normalized content of one analysis response.
type View struct {
	Metrics    []Metric      `json:"metrics" yaml:"metrics"`
	Platforms  []Platform    `json:"platforms" yaml:"platforms"`
	Analysis   AnalysisBlock `json:"analysis" yaml:"analysis"`
	Weaknesses WeaknessBlock `json:"weaknesses" yaml:"weaknesses"`
	Agents     AgentBlock    `json:"agents" yaml:"agents"`
	Tasks      []Task        `json:"tasks" yaml:"tasks"`
	SessionID  string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	FetchedAt  string        `json:"fetched_at,omitempty" yaml:"fetched_at,omitempty"`
}

// Metric is one growth-metric card.
type Metric struct {
	Key   string `json:"key" yaml:"key"`
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Platform is one platform statistics card.
type Platform struct {
	Name      string `json:"name" yaml:"name"`
	Solved    string `json:"solved" yaml:"solved"`
	Total     string `json:"total" yaml:"total"`
	Languages string `json:"languages,omitempty" yaml:"languages,omitempty"`
}

// AnalysisBlock is the AI analysis section. Text is set when the analysis
// was plain text; JSONDump when it was an object with no recognized keys.
type AnalysisBlock struct {
	Text               string   `json:"text,omitempty" yaml:"text,omitempty"`
	SkillLevel         string   `json:"skill_level,omitempty" yaml:"skill_level,omitempty"`
	SkillClass         string   `json:"skill_class,omitempty" yaml:"skill_class,omitempty"`
	Languages          []string `json:"languages,omitempty" yaml:"languages,omitempty"`
	HasLanguages       bool     `json:"-" yaml:"-"`
	Patterns           []string `json:"patterns,omitempty" yaml:"patterns,omitempty"`
	PlatformPreference string   `json:"platform_preference,omitempty" yaml:"platform_preference,omitempty"`
	Summary            string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	JSONDump           string   `json:"json_dump,omitempty" yaml:"json_dump,omitempty"`
}

// Empty reports whether nothing would be rendered.
func (a AnalysisBlock) Empty() bool {
	return a.Text == "" && a.SkillLevel == "" && !a.HasLanguages && len(a.Patterns) == 0 &&
		a.PlatformPreference == "" && a.Summary == "" && a.JSONDump == ""
}

// WeaknessBlock is the weaknesses section. Text is set when the payload was
// plain text that is not JSON.
type WeaknessBlock struct {
	Text                string   `json:"text,omitempty" yaml:"text,omitempty"`
	WeakTopics          []string `json:"weak_topics,omitempty" yaml:"weak_topics,omitempty"`
	MissingFundamentals []string `json:"missing_fundamentals,omitempty" yaml:"missing_fundamentals,omitempty"`
	ImprovementPriority []string `json:"improvement_priority,omitempty" yaml:"improvement_priority,omitempty"`
	Raw                 string   `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// Empty reports whether nothing would be rendered.
func (w WeaknessBlock) Empty() bool {
	return w.Text == "" && len(w.WeakTopics) == 0 && len(w.MissingFundamentals) == 0 &&
		len(w.ImprovementPriority) == 0 && w.Raw == ""
}

// AgentBlock describes how the analysis service ran its agents.
type AgentBlock struct {
	Orchestrator  string   `json:"orchestrator" yaml:"orchestrator"`
	ExecutionMode string   `json:"execution_mode" yaml:"execution_mode"`
	Agents        []string `json:"agents" yaml:"agents"`
}

// Task is one recommended practice task.
type Task struct {
	Title      string `json:"title" yaml:"title"`
	Topic      string `json:"topic,omitempty" yaml:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Due        string `json:"due" yaml:"due"`
}

// Normalize builds a View from a response. It never fails: anything it does
// not recognize is either dumped or dropped.
func Normalize(resp analysis.Response) *View {
	outer, _ := asMap(resp.Field("analysis"))

	growth, ok := asMap(firstTruthy(resp.Field("growth_metrics"), outer["growth_metrics"]))
	if !ok {
		growth = map[string]any{}
	}

	return &View{
		Metrics:    growthMetrics(growth),
		Platforms:  platformStats(growth["platform_stats"]),
		Analysis:   analysisBlock(resp.Field("analysis")),
		Weaknesses: weaknessBlock(resp.Field("weaknesses")),
		Agents:     agentBlock(resp.Field("agent_execution")),
		Tasks:      tasks(resp.Field("tasks")),
		SessionID:  resp.SessionID(),
		FetchedAt:  fetchedAt(resp.Field("fetched_at")),
	}
}

// fetchedAt accepts the service's ISO timestamp and renders it in UTC when
// it parses; anything else is shown as sent.
func fetchedAt(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format("2006-01-02 15:04:05 UTC")
		}
	}
	return s
}

func growthMetrics(g map[string]any) []Metric {
	streak, _ := asMap(g["streak"])
	return []Metric{
		{Key: "total_platforms", Label: "Platforms", Value: orDefault(g["total_platforms"], "0")},
		{Key: "days_active", Label: "Days Active", Value: orDefault(g["days_active"], "0")},
		{Key: "avg_problems_per_day", Label: "Avg/Day", Value: orDefault(g["avg_problems_per_day"], "0")},
		{Key: "streak_current", Label: "Current Streak", Value: orDefault(streak["current"], "0")},
		{Key: "streak_longest", Label: "Longest Streak", Value: orDefault(streak["longest"], "0")},
	}
}

func platformStats(v any) []Platform {
	stats, ok := asMap(v)
	if !ok || len(stats) == 0 {
		return nil
	}
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Platform, 0, len(names))
	for _, name := range names {
		data, _ := asMap(stats[name])
		p := Platform{
			Name:   strings.ToUpper(name),
			Solved: orDefault(data["solved"], "0"),
			Total:  orDefault(data["total"], "0"),
		}
		if langs := stringList(data["languages"]); len(langs) > 0 {
			p.Languages = strings.Join(langs, ", ")
		}
		out = append(out, p)
	}
	return out
}

// analysisBlock unwraps {"analysis": {"analysis": ...}} one level, then
// decodes string payloads that hold JSON.
func analysisBlock(v any) AnalysisBlock {
	var data any = map[string]any{}
	if truthy(v) {
		data = v
	}
	if m, ok := asMap(data); ok && truthy(m["analysis"]) {
		data = m["analysis"]
	}

	if s, ok := data.(string); ok {
		parsed, isJSON := parseJSONString(s)
		if !isJSON {
			return AnalysisBlock{Text: s}
		}
		data = parsed
	}

	var b AnalysisBlock
	switch t := data.(type) {
	case map[string]any:
		if truthy(t["skill_level"]) {
			b.SkillLevel = display(t["skill_level"])
			b.SkillClass = "skill-" + cssToken(b.SkillLevel)
		}
		// An empty list still renders the heading.
		if _, isList := asSlice(t["languages"]); isList {
			b.Languages = stringList(t["languages"])
			b.HasLanguages = true
		}
		if truthy(t["patterns"]) {
			if _, isList := asSlice(t["patterns"]); isList {
				b.Patterns = stringList(t["patterns"])
			} else {
				b.Patterns = []string{display(t["patterns"])}
			}
		}
		if truthy(t["platform_preference"]) {
			b.PlatformPreference = display(t["platform_preference"])
		}
		if s := firstTruthy(t["summary"], t["analysis"]); s != nil {
			b.Summary = display(s)
		}
		if b.Empty() && len(t) > 0 {
			b.JSONDump = prettyJSON(t)
		}
	case []any:
		if len(t) > 0 {
			b.JSONDump = prettyJSON(t)
		}
	case string:
		// JSON-encoded string inside a string
		b.Text = t
	case nil:
	default:
		if truthy(t) {
			b.Text = display(t)
		}
	}
	return b
}

func weaknessBlock(v any) WeaknessBlock {
	var data any = map[string]any{}
	if truthy(v) {
		data = v
	}
	if m, ok := asMap(data); ok && truthy(m["weaknesses"]) {
		data = m["weaknesses"]
	}

	if s, ok := data.(string); ok {
		parsed, isJSON := parseJSONString(s)
		if !isJSON {
			return WeaknessBlock{Text: s}
		}
		data = parsed
	}

	m, ok := asMap(data)
	if !ok {
		return WeaknessBlock{}
	}
	b := WeaknessBlock{
		WeakTopics:          stringList(m["weak_topics"]),
		MissingFundamentals: stringList(m["missing_fundamentals"]),
		ImprovementPriority: stringList(m["improvement_priority"]),
	}
	if truthy(m["raw"]) {
		b.Raw = display(m["raw"])
	}
	return b
}

func agentBlock(v any) AgentBlock {
	m, _ := asMap(v)
	agents := stringList(m["agents_used"])
	if agents == nil {
		agents = []string{}
	}
	return AgentBlock{
		Orchestrator:  orDefault(m["orchestrator"], defaultOrchestrator),
		ExecutionMode: orDefault(m["execution_mode"], defaultExecutionMode),
		Agents:        agents,
	}
}

func tasks(v any) []Task {
	list, ok := asSlice(v)
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]Task, 0, len(list))
	for _, item := range list {
		m, _ := asMap(item)
		t := Task{
			Title: orDefault(m["title"], defaultTaskTitle),
			Due:   flexibleDue,
		}
		if truthy(m["topic"]) {
			t.Topic = display(m["topic"])
		}
		if truthy(m["difficulty"]) {
			t.Difficulty = display(m["difficulty"])
		}
		if r := firstTruthy(m["reason"], m["reasoning"]); r != nil {
			t.Reason = display(r)
		}
		if truthy(m["due_days"]) {
			t.Due = display(m["due_days"]) + " days"
		}
		out = append(out, t)
	}
	return out
}
