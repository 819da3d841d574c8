package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by Write.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Write renders v to w in the requested format. Unknown formats fall back to human.
func Write(w io.Writer, v *View, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return WriteText(w, v)
	}
}

// WriteText renders v for a terminal. Colors follow color.NoColor, so output
// to a pipe stays plain.
func WriteText(w io.Writer, v *View) error {
	header := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow, color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	muted := color.New(color.FgHiBlack)

	p := &printer{w: w}

	p.line(header.Sprint("GROWTH METRICS"))
	for _, m := range v.Metrics {
		p.line(fmt.Sprintf("   %-15s %s", m.Label+":", m.Value))
	}
	p.blank()

	p.line(header.Sprint("PLATFORMS"))
	if len(v.Platforms) == 0 {
		p.line("   " + muted.Sprint(NoPlatforms))
	}
	for _, pl := range v.Platforms {
		p.line(fmt.Sprintf("   %s  solved %s / submissions %s", good.Sprint(pl.Name), pl.Solved, pl.Total))
		if pl.Languages != "" {
			p.line("      Languages: " + pl.Languages)
		}
	}
	p.blank()

	p.line(header.Sprint("AI ANALYSIS"))
	a := v.Analysis
	switch {
	case a.Empty():
		p.line("   " + muted.Sprint(NoAnalysis))
	default:
		if a.Text != "" {
			p.line(indent(a.Text, "   "))
		}
		if a.SkillLevel != "" {
			p.line("   Skill Level: " + good.Sprint(a.SkillLevel))
		}
		if a.HasLanguages {
			p.line(strings.TrimRight("   Primary Languages: "+strings.Join(a.Languages, ", "), " "))
		}
		if len(a.Patterns) > 0 {
			p.line("   Coding Patterns:")
			p.bullets(a.Patterns)
		}
		if a.PlatformPreference != "" {
			p.line("   Platform Preference: " + a.PlatformPreference)
		}
		if a.Summary != "" {
			p.line(indent(a.Summary, "   "))
		}
		if a.JSONDump != "" {
			p.line(indent(a.JSONDump, "   "))
		}
	}
	p.blank()

	p.line(warn.Sprint("WEAKNESSES"))
	wk := v.Weaknesses
	if wk.Empty() {
		p.line("   " + good.Sprint(NoWeaknesses))
	}
	if wk.Text != "" {
		p.line(indent(wk.Text, "   "))
	}
	if len(wk.WeakTopics) > 0 {
		p.line("   Weak Topics: " + color.YellowString(strings.Join(wk.WeakTopics, ", ")))
	}
	if len(wk.MissingFundamentals) > 0 {
		p.line("   Missing Fundamentals:")
		p.bullets(wk.MissingFundamentals)
	}
	if len(wk.ImprovementPriority) > 0 {
		p.line("   Improvement Priorities:")
		p.bullets(wk.ImprovementPriority)
	}
	if wk.Raw != "" {
		p.line(indent(wk.Raw, "   "))
	}
	p.blank()

	p.line(header.Sprint("AGENTS"))
	p.line("   Orchestrator:   " + v.Agents.Orchestrator)
	p.line("   Execution Mode: " + v.Agents.ExecutionMode)
	if len(v.Agents.Agents) > 0 {
		p.line("   Active Agents:  " + strings.Join(v.Agents.Agents, ", "))
	}
	p.blank()

	p.line(header.Sprint("RECOMMENDED TASKS"))
	if len(v.Tasks) == 0 {
		p.line("   " + muted.Sprint(NoTasks))
	}
	for i, t := range v.Tasks {
		p.line(fmt.Sprintf("   %d. %s  [%s]", i+1, t.Title, t.Due))
		var meta []string
		if t.Topic != "" {
			meta = append(meta, "topic: "+t.Topic)
		}
		if t.Difficulty != "" {
			meta = append(meta, "difficulty: "+t.Difficulty)
		}
		if len(meta) > 0 {
			p.line("      " + muted.Sprint(strings.Join(meta, ", ")))
		}
		if t.Reason != "" {
			p.line(fmt.Sprintf("      %q", t.Reason))
		}
	}
	if v.FetchedAt != "" {
		p.blank()
		p.line(muted.Sprint("Data fetched " + v.FetchedAt))
	}
	return p.err
}

// printer remembers the first write error so the caller checks once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, s)
}

func (p *printer) blank() { p.line("") }

func (p *printer) bullets(items []string) {
	for _, it := range items {
		p.line("     - " + it)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
