package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"newsrag/client"
	"newsrag/tui/chat"
)

var (
	serverFlag  string
	sessionFlag string
)

func main() {
	// .env 可选
	_ = godotenv.Load()

	defaultServer := os.Getenv("NEWSRAG_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}

	rootCmd := &cobra.Command{
		Use:          "newsrag-chat",
		Short:        "Terminal chat client for the news assistant",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []client.Option
			if sessionFlag != "" {
				opts = append(opts, client.WithSessionID(sessionFlag))
			}
			c := client.New(serverFlag, opts...)
			defer c.Close()

			program := tea.NewProgram(
				chat.InitialModel(c),
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)
			_, err := program.Run()
			return err
		},
	}
	rootCmd.Flags().StringVarP(&serverFlag, "server", "s", defaultServer, "Chat server base URL (env NEWSRAG_SERVER)")
	rootCmd.Flags().StringVar(&sessionFlag, "session", "", "Resume an existing session id")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
