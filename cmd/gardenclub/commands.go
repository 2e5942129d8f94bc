package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexcomrie/Garden-Club/internal/config"
)

// --- refresh ---

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force the server to refetch the catalog from its sheets",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/refresh", nil)
		if err != nil {
			return err
		}

		var result struct {
			Status     string `json:"status"`
			Businesses int    `json:"businesses"`
			Token      uint64 `json:"token"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Refreshed catalog: %d businesses (token %d)", result.Businesses, result.Token)
		return nil
	},
}

// --- businesses ---

var businessesCmd = &cobra.Command{
	Use:   "businesses",
	Short: "List the visible business roster",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/businesses")
		if err != nil {
			return err
		}

		var businesses []struct {
			ID             string `json:"id"`
			Name           string `json:"name"`
			Address        string `json:"address"`
			OperationHours string `json:"operationHours"`
		}
		if err := decodeJSON(resp, &businesses); err != nil {
			return err
		}

		if len(businesses) == 0 {
			fmt.Println("No businesses found.")
			return nil
		}

		for _, b := range businesses {
			fmt.Printf("%s  %s\n", colorize(colorCyan, b.ID), b.Name)
			if b.Address != "" {
				fmt.Printf("    %s\n", b.Address)
			}
			if b.OperationHours != "" {
				fmt.Printf("    %s\n", b.OperationHours)
			}
		}
		return nil
	},
}

// --- resolve ---

var resolveCmd = &cobra.Command{
	Use:   "resolve <share-link>",
	Short: "Resolve a Drive share link to embeddable image URL forms",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/image/resolve?src="+url.QueryEscape(args[0]))
		if err != nil {
			return err
		}

		var forms any
		if err := decodeJSON(resp, &forms); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(forms)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
