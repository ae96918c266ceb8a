package main

import (
	"fmt"

	"chatforge-backend/internal/embed"
	"chatforge-backend/internal/env"

	"github.com/spf13/cobra"
)

func embedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embed [apiKey]",
		Short: "Print the install snippet for a chatbot API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			baseURL, _ := cmd.Flags().GetString("base-url")
			if baseURL == "" {
				baseURL = env.Load().AppURL
			}

			snippets, err := embed.Render(args[0], baseURL)
			if err != nil {
				return err
			}

			switch format {
			case "html":
				fmt.Println(snippets.HTML)
			case "react":
				fmt.Println(snippets.React)
			case "nextjs":
				fmt.Println(snippets.NextJS)
			default:
				return fmt.Errorf("unknown format %q (html, react, nextjs)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "html", "Snippet flavour: html, react or nextjs")
	cmd.Flags().String("base-url", "", "Origin serving the widget (defaults to APP_URL)")
	return cmd
}
