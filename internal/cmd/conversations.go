package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/quorum/internal/client"
	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/text"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"conv"},
	Short:   "Manage stored conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations, newest first",
	RunE:  runConversationsList,
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation's messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsShow,
}

var conversationsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationsDelete,
}

func init() {
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
	conversationsCmd.AddCommand(conversationsDeleteCmd)
	rootCmd.AddCommand(conversationsCmd)
}

func apiClient() *client.Client {
	return client.NewClient(config.Get().Client.BaseURL)
}

func runConversationsList(cmd *cobra.Command, args []string) error {
	summaries, err := apiClient().ListConversations(cmd.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("no conversations")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tCREATED")
	for _, s := range summaries {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, text.Truncate(title, 40), s.MessageCount, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runConversationsShow(cmd *cobra.Command, args []string) error {
	conv, err := apiClient().GetConversation(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	title := conv.Title
	if title == "" {
		title = "(untitled)"
	}
	fmt.Println(text.TruncateWidth(stageStyle.Render(title), 80))
	for _, msg := range conv.Messages {
		fmt.Println()
		fmt.Println(modelStyle.Render(msg.Role + ":"))
		fmt.Println(msg.Content)
	}
	return nil
}

func runConversationsDelete(cmd *cobra.Command, args []string) error {
	if err := apiClient().DeleteConversation(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0])
	return nil
}
