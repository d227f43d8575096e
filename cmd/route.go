package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/adalundhe/loom/core/agent"
	"github.com/adalundhe/loom/core/router"
	"github.com/adalundhe/loom/core/vectors"
	"github.com/spf13/cobra"
)

var (
	routeAgents  []string
	routeRequire string
)

var routeCmd = &cobra.Command{
	Use:   "route [task description]",
	Short: "Show the routing decision for a task without executing it",
	Long: `Embed a task description, score it against the competence vectors of
a set of preset agents, and print the similarity ranking and the agent the
task would be assigned to.

Examples:
  loom route "Debug the login handler"
  loom route --agents code,research "Summarize the RFC"
  loom route --require math "Integrate the function"`,
	Args: cobra.ExactArgs(1),
	RunE: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().StringSliceVarP(&routeAgents, "agents", "a", agent.PresetKinds(), "Preset agent kinds to score against")
	routeCmd.Flags().StringVarP(&routeRequire, "require", "r", "", "Required agent type")
}

// routeCandidate is one scored agent in the ranking.
type routeCandidate struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Competence string  `json:"competence"`
	Similarity float64 `json:"similarity"`
}

// routeOutput is the JSON output for the route command.
type routeOutput struct {
	Description string           `json:"description"`
	Candidates  []routeCandidate `json:"candidates"`
	Selected    string           `json:"selected,omitempty"`
	Similarity  float64          `json:"similarity,omitempty"`
	Rejected    string           `json:"rejected,omitempty"`
}

func runRoute(cmd *cobra.Command, args []string) error {
	description := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	embed, err := buildEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	candidates := make([]*agent.Agent, 0, len(routeAgents))
	for _, kind := range routeAgents {
		spec, err := agent.PresetSpec(kind)
		if err != nil {
			return err
		}
		coreVector, err := embed.Embed(ctx, spec.Competence)
		if err != nil {
			return fmt.Errorf("embed competence: %w", err)
		}
		candidate, err := agent.New(spec, coreVector)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate)
	}

	taskVector, err := embed.Embed(ctx, description)
	if err != nil {
		return fmt.Errorf("embed task: %w", err)
	}

	output := routeOutput{Description: description}
	taskMag := vectors.Magnitude(taskVector)
	for _, candidate := range candidates {
		output.Candidates = append(output.Candidates, routeCandidate{
			ID:         candidate.ID,
			Kind:       candidate.Kind,
			Competence: candidate.Competence,
			Similarity: vectors.CosineSimilarity(taskVector, candidate.CoreVector, taskMag, 1.0),
		})
	}
	sort.Slice(output.Candidates, func(i, j int) bool {
		return output.Candidates[i].Similarity > output.Candidates[j].Similarity
	})

	decision, err := router.Route(taskVector, candidates, routeRequire, router.Config{
		AcceptanceThreshold: cfg.Routing.AcceptanceThreshold,
		TieEpsilon:          cfg.Routing.TieEpsilon,
	})
	if err != nil {
		output.Rejected = err.Error()
	} else {
		output.Selected = decision.Agent.ID
		output.Similarity = decision.Similarity
	}

	if rootJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	}
	printRouteOutput(cmd.OutOrStdout(), output)
	return nil
}

func printRouteOutput(w io.Writer, output routeOutput) {
	fmt.Fprintf(w, "%s%sRouting%s %s\n\n", colorBold, colorCyan, colorReset, output.Description)

	for _, candidate := range output.Candidates {
		marker := " "
		if candidate.ID == output.Selected {
			marker = colorGreen + "*" + colorReset
		}
		fmt.Fprintf(w, " %s %.4f  %-10s %s%s%s\n",
			marker, candidate.Similarity, candidate.Kind, colorGray, candidate.Competence, colorReset)
	}

	fmt.Fprintln(w)
	if output.Rejected != "" {
		fmt.Fprintf(w, "%sRejected:%s %s\n", colorRed, colorReset, output.Rejected)
		return
	}
	fmt.Fprintf(w, "%sSelected:%s %s (similarity %.4f)\n", colorGreen, colorReset, output.Selected, output.Similarity)
}
