// Package main implements the mysqlprov CLI.
//
// mysqlprov provisions an Azure Database for MySQL server and its child
// resources from a declarative YAML spec:
//
//	mysqlprov validate  --spec server.yaml   # local validation only
//	mysqlprov compose   --spec server.yaml   # print composed requests and plan
//	mysqlprov provision --spec server.yaml   # submit to the control plane
//
// Subscription, resource group and location come from the environment
// (AZURE_SUBSCRIPTION_ID, RESOURCE_GROUP_NAME, AZURE_LOCATION).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flavioaiello/mysql-provisioner/pkg/auth"
	"github.com/flavioaiello/mysql-provisioner/pkg/config"
	"github.com/flavioaiello/mysql-provisioner/pkg/provision"
)

// Version is set at build time.
var version = "dev"

const (
	flagSpec = "spec"
	descSpec = "Path to the server spec YAML file"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() {
		_ = logger.Sync()
	}()

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mysqlprov",
		Short: "Azure Database for MySQL provisioner",
		Long: `mysqlprov provisions a managed MySQL server and its child resources
(firewall rules, virtual network rules, databases, server configurations,
role assignments, private endpoints, diagnostic settings) from a YAML spec.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newValidateCmd(logger),
		newComposeCmd(logger),
		newProvisionCmd(logger),
	)

	return cmd
}

func newValidateCmd(logger *zap.Logger) *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a server spec locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			provisioner, err := newOfflineProvisioner(logger)
			if err != nil {
				return err
			}

			result, err := provisioner.Validate(specPath)
			if err != nil {
				return err
			}
			printJSON(cmd, result)
			return result.Err()
		},
	}

	cmd.Flags().StringVar(&specPath, flagSpec, "", descSpec)
	_ = cmd.MarkFlagRequired(flagSpec)
	return cmd
}

func newComposeCmd(logger *zap.Logger) *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose requests and print the submission plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			provisioner, err := newOfflineProvisioner(logger)
			if err != nil {
				return err
			}

			composition, submissionPlan, err := provisioner.Compose(specPath)
			if err != nil {
				return err
			}
			printJSON(cmd, map[string]interface{}{
				"composition": composition,
				"plan":        submissionPlan,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, flagSpec, "", descSpec)
	_ = cmd.MarkFlagRequired(flagSpec)
	return cmd
}

func newProvisionCmd(logger *zap.Logger) *cobra.Command {
	var specPath string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Submit the composed requests to the control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return err
			}

			credential, err := auth.GetManagedIdentityCredential(cfg.ManagedIdentityClientID)
			if err != nil {
				return err
			}

			provisioner, err := provision.New(cfg, credential, logger)
			if err != nil {
				return err
			}

			result, runErr := provisioner.Provision(cmd.Context(), specPath)
			if result != nil {
				printJSON(cmd, result)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&specPath, flagSpec, "", descSpec)
	_ = cmd.MarkFlagRequired(flagSpec)
	return cmd
}

// newOfflineProvisioner builds a provisioner for commands that never touch
// the control plane.
func newOfflineProvisioner(logger *zap.Logger) (*provision.Provisioner, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return provision.NewWithControlPlane(cfg, logger, nil, nil), nil
}

func printJSON(cmd *cobra.Command, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
}
