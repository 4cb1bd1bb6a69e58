package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/inodb/gem-gsc/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")).Width(26)
	valueStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d29922"))
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		format  string
		top     int
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [flags] <model>",
		Short: "Summarize a model",
		Long:  "Print entity counts and the largest subsystems of a genome-scale metabolic model.",
		Example: `  gem-gsc inspect Human-GEM.xml
  gem-gsc inspect --top 20 human-gem`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFormat(format)
			if err != nil {
				return &usageError{err}
			}
			path, err := resolveModelPath(args[0])
			if err != nil {
				return err
			}
			m, _, err := loadModel(modelSource{path: path, format: f, noCache: noCache}, a.logger)
			if err != nil {
				return err
			}
			renderSummary(a.stdout, m, top)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Model format: sbml, json, yaml (auto-detected if not specified)")
	cmd.Flags().IntVar(&top, "top", 10, "Number of largest subsystems to list")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Parse the model file even if a cached copy exists")

	return cmd
}

// renderSummary writes a styled model summary to w.
func renderSummary(w io.Writer, m *model.Model, top int) {
	st := m.Stats()

	title := m.ID
	if m.Name != "" && m.Name != m.ID {
		title += " (" + m.Name + ")"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")

	row := func(label string, v int) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(v)) + "\n")
	}
	row("Reactions", st.Reactions)
	row("Metabolites", st.Metabolites)
	row("Genes", st.Genes)
	row("Compartments", st.Compartments)
	row("Subsystems", st.Subsystems)

	if st.ReactionsNoGenes > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d reactions have no gene rule", st.ReactionsNoGenes)) + "\n")
	}
	if st.ReactionsNoSubsystem > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d reactions have no subsystem", st.ReactionsNoSubsystem)) + "\n")
	}

	if largest := m.LargestSubsystems(top); len(largest) > 0 {
		b.WriteString("\n" + titleStyle.Render("Largest subsystems") + "\n")
		for _, s := range largest {
			b.WriteString(valueStyle.Render(fmt.Sprintf("%6d", s.Reactions)) + "  " + s.Name + "\n")
		}
	}

	fmt.Fprint(w, b.String())
}
