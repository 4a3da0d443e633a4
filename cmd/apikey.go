package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-todo/app/service"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for internal gRPC callers",
}

var apiKeyGenerateCmd = &cobra.Command{
	Use:   "generate <service_name>",
	Short: "Generate an internal API key for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAPIKeyApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		serviceName := args[0]
		key, err := app.internalAuth.GenerateInternalAPIKey(context.Background(), serviceName)
		if err != nil {
			if errors.Is(err, service.ErrServiceHasActiveAPIKey) {
				return fmt.Errorf("service %q already has an active API key", serviceName)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "service_name: %s\n", serviceName)
		fmt.Fprintf(cmd.OutOrStdout(), "api_key: %s\n", key)
		return nil
	},
}

var apiKeyDeactivateCmd = &cobra.Command{
	Use:   "deactivate <service_name>",
	Short: "Deactivate all active API keys for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAPIKeyApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		serviceName := args[0]
		count, err := app.internalAuth.DeactivateInternalAPIKeys(context.Background(), serviceName)
		if err != nil {
			if errors.Is(err, service.ErrServiceHasNoActiveAPIKey) {
				return fmt.Errorf("service %q has no active API key", serviceName)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deactivated %d active API key(s) for service %s\n", count, serviceName)
		return nil
	},
}

func init() {
	apiKeyCmd.AddCommand(apiKeyGenerateCmd)
	apiKeyCmd.AddCommand(apiKeyDeactivateCmd)
	rootCmd.AddCommand(apiKeyCmd)
}

func newAPIKeyApplication() (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApplication(context.Background(), cfg)
}
