package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/latticedocs/lattice/internal/api"
	"github.com/latticedocs/lattice/internal/home"
	"github.com/latticedocs/lattice/internal/pipeline"
	"github.com/latticedocs/lattice/internal/producer"
	"github.com/latticedocs/lattice/internal/prompts"
	"github.com/latticedocs/lattice/internal/prompts/conceptmap"
	"github.com/latticedocs/lattice/internal/prompts/narrative"
	"github.com/latticedocs/lattice/internal/store"
	"github.com/latticedocs/lattice/internal/types"
)

var (
	generateProducer string
	generateModel    string
	generateExport   bool
)

// generateSummary is what the command prints after a successful run.
type generateSummary struct {
	ID        string `json:"id" yaml:"id"`
	Topic     string `json:"topic" yaml:"topic"`
	Title     string `json:"title" yaml:"title"`
	Nodes     int    `json:"nodes" yaml:"nodes"`
	Sources   int    `json:"sources" yaml:"sources"`
	Narrative int    `json:"narrative_chars" yaml:"narrative_chars"`
	Export    string `json:"export,omitempty" yaml:"export,omitempty"`
}

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate a document without the server",
	Long: `Run the full pipeline for a topic directly in this process.

The document is saved to the local store. Progress is printed to
stderr as the pipeline moves through its phases.

Examples:
  lattice generate "Septic shock"
  lattice generate "Diabetic ketoacidosis" --producer openai
  lattice generate "Migraine" --export`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		topic := args[0]

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configMgr, err := newConfigManager(h)
		if err != nil {
			return err
		}
		cfg := configMgr.Get()

		registry := producer.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(cfg.ToProducerSpecs())

		name := generateProducer
		if name == "" {
			name = cfg.Defaults.Producer
		}
		p, err := registry.Get(name)
		if err != nil {
			return err
		}

		resolver := prompts.NewResolver(logger)
		conceptmap.RegisterPrompts(resolver)
		narrative.RegisterPrompts(resolver)
		if err := resolver.LoadOverrides(h.PromptsDir()); err != nil {
			return err
		}

		st, err := store.Open(h.StorePath())
		if err != nil {
			return err
		}
		defer st.Close()

		// Render phase progress to stderr as it happens
		events := make(chan pipeline.Event, 16)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				if ev.Round > 0 {
					fmt.Fprintf(os.Stderr, "phase: %s (round %d, %d chars)\n", ev.Phase, ev.Round, ev.BufferLen)
					continue
				}
				fmt.Fprintf(os.Stderr, "phase: %s\n", ev.Phase)
			}
		}()

		g := pipeline.New(pipeline.Options{
			Producer:   p,
			Resolver:   resolver,
			Model:      generateModel,
			Generation: cfg.Generation,
			Recorder:   st,
			Events:     events,
			Logger:     logger,
		})

		doc, genErr := g.Generate(ctx, topic)
		close(events)
		<-done
		if genErr != nil {
			return genErr
		}

		if err := st.SaveDocument(ctx, doc); err != nil {
			return err
		}

		summary := generateSummary{
			ID:        doc.ID,
			Topic:     doc.Topic,
			Title:     doc.Title,
			Nodes:     len(doc.Nodes),
			Sources:   len(doc.Sources),
			Narrative: len(doc.Narrative),
		}
		if generateExport {
			path := h.ExportPath(doc.ID)
			if err := os.WriteFile(path, []byte(exportMarkdown(doc)), 0o644); err != nil {
				return err
			}
			summary.Export = path
		}
		return api.Output(summary)
	},
}

// exportMarkdown renders a document as a standalone markdown file.
func exportMarkdown(doc *types.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	if doc.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", doc.Summary)
	}
	if doc.Analogy != "" {
		fmt.Fprintf(&b, "> %s\n\n", doc.Analogy)
	}
	for _, pearl := range doc.Pearls {
		fmt.Fprintf(&b, "- **%s**: %s\n", pearl.Kind, pearl.Content)
	}
	if len(doc.Pearls) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(doc.Narrative)
	if len(doc.Sources) > 0 {
		b.WriteString("\n\n## Sources\n\n")
		for _, s := range doc.Sources {
			if s.URI != "" {
				fmt.Fprintf(&b, "- [%s](%s)\n", s.Title, s.URI)
				continue
			}
			fmt.Fprintf(&b, "- %s\n", s.Title)
		}
	}
	return b.String()
}

func init() {
	generateCmd.Flags().StringVar(&generateProducer, "producer", "", "Producer to use (default from config)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Model override")
	generateCmd.Flags().BoolVar(&generateExport, "export", false, "Write the document to the exports directory")

	rootCmd.AddCommand(generateCmd)
}
