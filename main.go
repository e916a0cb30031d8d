package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"messaging-sync/internal/api"
	"messaging-sync/internal/config"
	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "messaging-sync",
		Short:        "Keeps a local view of conversations in step with the messaging API",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "messaging-sync.toml", "path to the TOML config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		observability.ConfigureLogger(cfg.Log.Level, cfg.Log.Pretty)
		return cfg, nil
	}

	root.AddCommand(newRunCmd(load), newConversationsCmd(load))
	return root
}

func newAPIClient(cfg *config.Config) *api.Client {
	return api.NewClient(
		api.WithBaseURL(cfg.API.BaseURL),
		api.WithToken(cfg.API.Token),
		api.WithTimeout(cfg.API.Timeout.Duration),
	)
}

func newConversationsCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "Fetch the conversation list once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout.Duration)
			defer cancel()

			convs, err := newAPIClient(cfg).GetConversations(ctx)
			if err != nil {
				return fmt.Errorf("fetch conversations: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, conv := range convs {
				fmt.Fprintf(out, "%d\t%s\tunread=%d\t%s\n", conv.ID, participantNames(conv), conv.UnreadCount, lastBody(conv))
			}
			fmt.Fprintf(out, "total unread: %d\n", models.TotalUnread(convs))
			return nil
		},
	}
}

func participantNames(conv models.Conversation) string {
	names := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func lastBody(conv models.Conversation) string {
	if conv.LastMessage == nil {
		return ""
	}
	return conv.LastMessage.Body
}
