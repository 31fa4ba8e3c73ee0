package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sendFlags struct {
	clientConfig
}

var sendCmd = &cobra.Command{
	Use:   "send <text>...",
	Short: "Send a line to the cluster through a running relay",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var statusFlags struct {
	clientConfig
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the relay's session state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var messagesFlags struct {
	clientConfig
	limit int
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "List messages sent through the API, newest first",
	Args:  cobra.NoArgs,
	RunE:  runMessages,
}

func init() {
	rootCmd.AddCommand(sendCmd, statusCmd, messagesCmd)

	addClientFlags(sendCmd, &sendFlags.clientConfig)
	addClientFlags(statusCmd, &statusFlags.clientConfig)
	addClientFlags(messagesCmd, &messagesFlags.clientConfig)
	messagesCmd.Flags().IntVar(&messagesFlags.limit, "limit", 20, "maximum number of messages")
}

func runSend(cmd *cobra.Command, args []string) error {
	c, err := sendFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.SendMessage(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Printf("Queued message %d (%d waiting)\n", resp.ID, resp.Backlog)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := statusFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Host:     %s\n", resp.Host)
	fmt.Printf("State:    %s\n", resp.State)
	fmt.Printf("Backlog:  %d\n", resp.Backlog)
	return nil
}

func runMessages(cmd *cobra.Command, args []string) error {
	c, err := messagesFlags.newClient()
	if err != nil {
		return err
	}

	resp, err := c.ListMessages(cmd.Context(), messagesFlags.limit)
	if err != nil {
		return err
	}
	if len(resp.Messages) == 0 {
		fmt.Println("No messages found.")
		return nil
	}

	fmt.Printf("%-6s  %-19s  %s\n", "ID", "SENT", "TEXT")
	for _, m := range resp.Messages {
		createdAt, _ := time.Parse(time.RFC3339, m.CreatedAt)
		fmt.Printf("%-6d  %-19s  %s\n", m.ID, createdAt.Format("2006-01-02 15:04:05"), m.Text)
	}
	return nil
}
