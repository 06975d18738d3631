package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fapac/materiais-bff/app/catalog"
	"github.com/fapac/materiais-bff/models"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	apiURL  string
	timeout time.Duration
}

func (o *globalOptions) catalog() *catalog.Catalog {
	client := catalog.NewClient(o.apiURL, &http.Client{Timeout: o.timeout})
	return catalog.New(client, nil)
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Browse and edit the materials catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultAPI := os.Getenv("CATALOG_API_URL")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:3000"
	}
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", defaultAPI, "Base URL of the materials server")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")

	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newAuditCommand(opts))
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var (
		filter string
		grid   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List materials as a table or a card grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.catalog()
			if err := c.Load(commandContext(cmd)); err != nil {
				return fmt.Errorf("erro ao carregar materiais: %w", err)
			}
			return render(cmd, c.State(), filter, grid)
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Show only materials whose name, category or brand contains this text")
	cmd.Flags().BoolVar(&grid, "grid", false, "Render cards instead of a table")
	return cmd
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var input models.MaterialInput
	var price string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a material and print the refreshed list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if price != "" {
				input.Price = price
			}
			c := opts.catalog()
			created, err := c.Add(commandContext(cmd), input)
			if err != nil {
				return fmt.Errorf("erro ao criar material: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material criado: %s (%s)\n\n", created.Name, created.ID)
			return render(cmd, c.State(), "", false)
		},
	}

	cmd.Flags().StringVar(&input.Name, "name", "", "Material name")
	cmd.Flags().StringVar(&input.Category, "category", "", "Category")
	cmd.Flags().StringVar(&input.Brand, "brand", "", "Brand")
	cmd.Flags().StringVar(&price, "price", "", "Price in euros")
	cmd.Flags().StringVar(&input.Supplier, "supplier", "", "Supplier")
	cmd.Flags().StringVar(&input.Description, "description", "", "Description")
	cmd.Flags().StringVar(&input.TechParams, "tech-params", "", "Technical parameters")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newRemoveCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a material and print the refreshed list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.catalog()
			if err := c.Remove(commandContext(cmd), args[0]); err != nil {
				return fmt.Errorf("erro ao remover material: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material %s removido.\n\n", args[0])
			return render(cmd, c.State(), "", false)
		},
	}
}

func newAuditCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit <material name>...",
		Short: "Check model element materials against the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.catalog()
			if err := c.Load(commandContext(cmd)); err != nil {
				return fmt.Errorf("erro ao carregar materiais: %w", err)
			}

			res := c.State().Audit(args)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Certificados: %d\n", res.Certified)
			fmt.Fprintf(out, "Desconhecidos: %d\n", res.Unknown)
			for _, name := range res.Missing {
				fmt.Fprintf(out, "  - %s\n", name)
			}
			return nil
		},
	}
}

func render(cmd *cobra.Command, state *catalog.State, filter string, grid bool) error {
	if grid {
		state.SetView(catalog.GridView)
	}
	visible := state.ApplyFilter(filter)
	if err := state.Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	if filter != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d de %d materiais\n", len(visible), len(state.All()))
	}
	return nil
}
