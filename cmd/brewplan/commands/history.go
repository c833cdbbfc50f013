package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brewplan/brewplan/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit       int
		offset      int
		statePath   string
		activations bool
		events      bool
		deleteID    string
		prune       int
	)

	cmd := &cobra.Command{
		Use:   "history [generation-id]",
		Short: "Show past generations from the ledger",
		Long: `Show past generations recorded in the generation ledger, newest first,
including manifest checksums, policy violation counts, and status.

With a generation id, show that generation in full: its activations and
its event log. --delete removes one generation; --prune keeps only the
newest N and removes the rest, cascading to activations and events.`,
		Example: `  # Show the last 20 generations
  brewplan history

  # Include 'brew bundle' runs and ledger events per generation
  brewplan history --activations --events

  # Show one generation in full
  brewplan history 4f1c9b2e-...

  # Keep the newest 50 generations, drop the rest
  brewplan history --prune 50`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, statePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if deleteID != "" {
				if err := store.DeleteGeneration(ctx, deleteID); err != nil {
					return err
				}
				fmt.Printf("✓ Deleted generation %s\n", deleteID)
				return nil
			}

			if prune >= 0 {
				removed, err := store.PruneGenerations(ctx, prune)
				if err != nil {
					return err
				}
				fmt.Printf("✓ Pruned %d generation(s), kept the newest %d\n", removed, prune)
				return nil
			}

			if len(args) == 1 {
				return showGeneration(cmd, store, args[0])
			}

			gens, err := store.ListGenerations(ctx, limit, offset)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printGenerationsJSON(cmd, store, gens, activations, events)
			}

			if len(gens) == 0 {
				fmt.Println("No generations recorded yet.")
				return nil
			}

			for _, g := range gens {
				printGenerationLine(g)
				if activations {
					acts, err := store.ListActivationsByGeneration(ctx, g.ID)
					if err != nil {
						return err
					}
					printActivationLines(acts)
				}
				if events {
					evs, err := store.GetEvents(ctx, &g.ID, nil, 50, 0)
					if err != nil {
						return err
					}
					printEventLines(evs)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of generations to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of generations to skip")
	cmd.Flags().StringVar(&statePath, "state", "", "generation ledger path (default "+defaultStatePath+")")
	cmd.Flags().BoolVar(&activations, "activations", false, "include 'brew bundle' runs per generation")
	cmd.Flags().BoolVar(&events, "events", false, "include ledger events per generation")
	cmd.Flags().StringVar(&deleteID, "delete", "", "delete one generation and its history")
	cmd.Flags().IntVar(&prune, "prune", -1, "keep only the newest N generations")

	return cmd
}

// showGeneration prints one generation in full: the record, its activations,
// and its event log.
func showGeneration(cmd *cobra.Command, store stores.Store, id string) error {
	ctx := cmd.Context()

	gen, err := store.GetGeneration(ctx, id)
	if err != nil {
		return err
	}
	acts, err := store.ListActivationsByGeneration(ctx, id)
	if err != nil {
		return err
	}
	evs, err := store.GetEvents(ctx, &id, nil, 100, 0)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(struct {
			Generation  *stores.Generation   `json:"generation"`
			Activations []*stores.Activation `json:"activations"`
			Events      []*stores.Event      `json:"events"`
		}{gen, acts, evs})
	}

	printGenerationLine(gen)
	fmt.Printf("  source:   %s\n", gen.SourcePath)
	if gen.ManifestPath != "" {
		fmt.Printf("  manifest: %s\n", gen.ManifestPath)
	}
	printActivationLines(acts)
	printEventLines(evs)
	return nil
}

func printGenerationLine(g *stores.Generation) {
	sha := g.ManifestSHA256
	if len(sha) > 12 {
		sha = sha[:12]
	}
	fmt.Printf("%s  %-9s  %s  %6d bytes  %d violation(s)  %s\n",
		g.CreatedAt.Format("2006-01-02 15:04:05"), g.Status, sha,
		g.ManifestBytes, g.Violations, g.ID)
	if g.Error != nil {
		fmt.Printf("    error: %s\n", *g.Error)
	}
}

func printActivationLines(acts []*stores.Activation) {
	for _, a := range acts {
		exitCode := "-"
		if a.ExitCode != nil {
			exitCode = fmt.Sprintf("%d", *a.ExitCode)
		}
		fmt.Printf("    %s  %-9s  exit %s  %s\n",
			a.StartedAt.Format("2006-01-02 15:04:05"), a.Status, exitCode, a.Command)
	}
}

func printEventLines(evs []*stores.Event) {
	for _, e := range evs {
		fmt.Printf("    %s  [%s]  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Level, e.Message)
	}
}

// printGenerationsJSON renders the list view as JSON, optionally embedding
// each generation's activations and events.
func printGenerationsJSON(cmd *cobra.Command, store stores.Store, gens []*stores.Generation, activations, events bool) error {
	ctx := cmd.Context()

	if !activations && !events {
		return printJSON(gens)
	}

	type entry struct {
		Generation  *stores.Generation   `json:"generation"`
		Activations []*stores.Activation `json:"activations,omitempty"`
		Events      []*stores.Event      `json:"events,omitempty"`
	}
	out := make([]entry, 0, len(gens))
	for _, g := range gens {
		e := entry{Generation: g}
		if activations {
			acts, err := store.ListActivationsByGeneration(ctx, g.ID)
			if err != nil {
				return err
			}
			e.Activations = acts
		}
		if events {
			evs, err := store.GetEvents(ctx, &g.ID, nil, 50, 0)
			if err != nil {
				return err
			}
			e.Events = evs
		}
		out = append(out, e)
	}
	return printJSON(out)
}
