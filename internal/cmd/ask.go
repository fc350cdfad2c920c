package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/client"
	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/council"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/stream"
)

var (
	stageStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	modelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the council a question",
	Long: `Send a question through the council pipeline and stream stage progress
as it happens. By default a fresh conversation is created; pass
--conversation to continue an existing one.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("conversation", "", "existing conversation id to continue")
	askCmd.Flags().Bool("sync", false, "wait for the full result instead of streaming")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	ctx := cmd.Context()
	api := client.NewClient(cfg.Client.BaseURL)

	conversationID, _ := cmd.Flags().GetString("conversation")
	if conversationID == "" {
		conv, err := api.CreateConversation(ctx, "")
		if err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		conversationID = conv.ID
		fmt.Fprintln(os.Stderr, dimStyle.Render("conversation "+conversationID))
	}

	if sync, _ := cmd.Flags().GetBool("sync"); sync {
		return askSync(ctx, api, conversationID, args[0])
	}
	return askStream(ctx, api, conversationID, args[0])
}

func askSync(ctx context.Context, api *client.Client, conversationID, question string) error {
	out, err := api.SendMessage(ctx, conversationID, question)
	if err != nil {
		return err
	}
	printAggregate(aggregateRows(out.Result.Metadata.AggregateRankings))
	fmt.Println()
	fmt.Println(answerStyle.Render(out.Result.Synthesis.Response))
	return nil
}

func askStream(ctx context.Context, api *client.Client, conversationID, question string) error {
	cfg := config.Get()
	bus := event.NewBus()
	state := client.NewState(bus)
	runner := client.NewStreamRunner(api.OpenStream, state, bus, client.RunnerConfig{
		MaxRetries: cfg.Client.RetryBudget,
		Backoff:    cfg.Client.RetryBackoff(),
	}, nil)

	bus.Subscribe("stream.event", func(ev event.Event) {
		renderEvent(state, ev.(event.StreamEventReceived).Kind)
	})
	bus.Subscribe("stream.started", func(ev event.Event) {
		started := ev.(event.StreamStartedEvent)
		if started.Attempt > 1 {
			fmt.Fprintln(os.Stderr, dimStyle.Render(fmt.Sprintf("retrying (attempt %d)", started.Attempt)))
		}
	})

	runner.Start(ctx, conversationID, question)
	runner.Await()

	status := state.Status()
	switch {
	case status.Cancelled:
		fmt.Fprintln(os.Stderr, dimStyle.Render("cancelled"))
		return nil
	case status.Error != "":
		return fmt.Errorf("%s", errStyle.Render(status.Error))
	}
	return nil
}

func renderEvent(state *client.State, kind string) {
	switch stream.Kind(kind) {
	case stream.KindStage1Start:
		fmt.Fprintln(os.Stderr, stageStyle.Render("stage 1")+" collecting answers")
	case stream.KindStage1Complete:
		for _, c := range state.Payloads().Candidates {
			fmt.Fprintln(os.Stderr, "  "+modelStyle.Render(c.Model))
		}
	case stream.KindStage2Start:
		fmt.Fprintln(os.Stderr, stageStyle.Render("stage 2")+" blind peer ranking")
	case stream.KindStage2Complete:
		if meta := state.Payloads().Metadata; meta != nil {
			printAggregate(streamAggregateRows(meta.AggregateRankings))
		}
	case stream.KindStage3Start:
		fmt.Fprintln(os.Stderr, stageStyle.Render("stage 3")+" synthesizing")
	case stream.KindStage3Complete:
		if synthesis := state.Payloads().Synthesis; synthesis != nil {
			fmt.Println()
			fmt.Println(answerStyle.Render(synthesis.Response))
		}
	case stream.KindTitleComplete:
		fmt.Fprintln(os.Stderr, dimStyle.Render("title: "+state.Payloads().Title))
	}
}

type aggregateRow struct {
	model string
	rank  float64
	votes int
}

func aggregateRows(entries []council.AggregateEntry) []aggregateRow {
	rows := make([]aggregateRow, len(entries))
	for i, e := range entries {
		rows[i] = aggregateRow{model: e.Model, rank: e.AverageRank, votes: e.RankingsCount}
	}
	return rows
}

func streamAggregateRows(entries []stream.AggregatePayload) []aggregateRow {
	rows := make([]aggregateRow, len(entries))
	for i, e := range entries {
		rows[i] = aggregateRow{model: e.Model, rank: e.AverageRank, votes: e.RankingsCount}
	}
	return rows
}

func printAggregate(rows []aggregateRow) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, dimStyle.Render("  peer ranking (best first)"))
	for i, row := range rows {
		fmt.Fprintf(os.Stderr, "  %d. %s avg %.2f (%d votes)\n",
			i+1, modelStyle.Render(row.model), row.rank, row.votes)
	}
}
