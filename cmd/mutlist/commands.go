package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/parseq/mutation_sdk_go/internal/config"
	"github.com/parseq/mutation_sdk_go/internal/logger"
	"github.com/parseq/mutation_sdk_go/pkg/mutation_sdk"
	"github.com/parseq/mutation_sdk_go/pkg/mutations"
	"github.com/parseq/mutation_sdk_go/pkg/store"
)

type cli struct {
	out io.Writer
	rt  *mutation_sdk.Runtime

	configPath string
	mode       string
	apiURL     string
	seed       string
	format     string // text | json
}

// newRootCmd builds the command tree. A non-nil rt is used as is; otherwise
// the runtime is resolved from flags, config file and environment.
func newRootCmd(out io.Writer, rt *mutation_sdk.Runtime) *cobra.Command {
	c := &cli{out: out, rt: rt}

	root := &cobra.Command{
		Use:           "mutlist",
		Short:         "Browse mutations and manage mutation lists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.format != "text" && c.format != "json" {
				return fmt.Errorf("--out must be text or json, got %q", c.format)
			}
			return c.init()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to YAML config")
	root.PersistentFlags().StringVar(&c.mode, "mode", "", "runtime mode: auto|http|mock (env MUTATIONS_RUNTIME_MODE)")
	root.PersistentFlags().StringVar(&c.apiURL, "api-url", "", "mutation API base URL (env MUTATIONS_API_URL)")
	root.PersistentFlags().StringVar(&c.seed, "seed", "", "seed file for mock mode (env MUTATIONS_MOCK_SEED)")
	root.PersistentFlags().StringVar(&c.format, "out", "text", "output format: text|json")

	root.AddCommand(c.mutationsCmd(), c.listsCmd())
	return root
}

func (c *cli) init() error {
	if c.rt != nil {
		return nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.mode != "" {
		cfg.Runtime.Mode = strings.ToLower(c.mode)
	}
	if c.apiURL != "" {
		cfg.API.BaseURL = c.apiURL
	}
	if c.seed != "" {
		cfg.Mock.Seed = c.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "mutlist"})

	rt, err := mutation_sdk.New(mutation_sdk.FromConfig(cfg))
	if err != nil {
		return err
	}
	c.rt = rt
	return nil
}

func (c *cli) mutationsCmd() *cobra.Command {
	var (
		page   int
		all    bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "mutations",
		Short: "List mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := c.rt.Store
			if err := s.LoadMutationsPage(ctx, page); err != nil {
				return err
			}
			if all {
				for s.State().HasMoreMutations() {
					before := len(s.State().Mutations)
					if err := s.LoadMoreMutations(ctx); err != nil {
						return err
					}
					if len(s.State().Mutations) == before {
						break
					}
				}
			}
			s.SetFilterText(filter)
			st := s.State()
			return c.print(st.FilteredMutations(), func(w io.Writer) {
				for _, m := range st.FilteredMutations() {
					fmt.Fprintln(w, m.MutationID)
				}
				fmt.Fprintf(w, "cached %d of %d\n", len(st.Mutations), st.TotalMutations)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page to load")
	cmd.Flags().BoolVar(&all, "all", false, "keep loading pages until every mutation is cached")
	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive mutation id filter")
	return cmd
}

func (c *cli) listsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show and manage mutation lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.rt.Store.LoadMutationLists(cmd.Context()); err != nil {
				return err
			}
			lists := c.rt.Store.State().MutationLists
			return c.print(lists, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tMUTATIONS\tDESCRIPTION")
				for _, l := range lists {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Name, len(l.Mutations), l.Description)
				}
				tw.Flush()
			})
		},
	}
	cmd.AddCommand(
		c.listCreateCmd(),
		c.listUpdateCmd(),
		c.listRenameCmd(),
		c.listDeleteCmd(),
		c.listAddCmd(),
		c.listRemoveCmd(),
		c.listShowCmd(),
	)
	return cmd
}

func (c *cli) listCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.rt.Store.AddMutationList(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printList(*list)
		},
	}
}

func (c *cli) listUpdateCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "update LIST",
		Short: "Set the name and description of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.rt.Store.LoadMutationLists(cmd.Context()); err != nil {
				return err
			}
			listID := args[0]
			if name == "" {
				name = listID
			}
			if !cmd.Flags().Changed("description") {
				if current, ok := c.rt.Store.State().List(listID); ok {
					description = current.Description
				}
			}
			list, err := c.rt.Store.UpdateMutationList(cmd.Context(), listID, name, description)
			if err != nil {
				return err
			}
			return c.printList(*list)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new list name (default: unchanged)")
	cmd.Flags().StringVar(&description, "description", "", "new description (default: unchanged)")
	return cmd
}

func (c *cli) listRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a list by recreating it under the new name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.rt.Store.LoadMutationLists(cmd.Context()); err != nil {
				return err
			}
			list, err := c.rt.Store.RenameMutationList(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return c.printList(*list)
		},
	}
}

func (c *cli) listDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.rt.Store.DeleteMutationList(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.print(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "deleted %s\n", args[0])
			})
		},
	}
}

func (c *cli) listAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add LIST MUTATION_ID...",
		Short: "Add mutations to a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeMembers(cmd, args[0], args[1:], c.rt.Store.AddMutationToList)
		},
	}
}

func (c *cli) listRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove LIST MUTATION_ID...",
		Short: "Remove mutations from a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.changeMembers(cmd, args[0], args[1:], c.rt.Store.RemoveMutationFromList)
		},
	}
}

func (c *cli) changeMembers(cmd *cobra.Command, listName string, mutationIDs []string, apply func(context.Context, string, string) error) error {
	ctx := cmd.Context()
	if err := c.rt.Store.LoadMutationLists(ctx); err != nil {
		return err
	}
	for _, id := range mutationIDs {
		if err := apply(ctx, listName, id); err != nil {
			return err
		}
	}
	list, _ := c.rt.Store.State().List(listName)
	return c.printList(list)
}

func (c *cli) listShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a list and which cached mutations its description references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.rt.Store
			if err := s.Refresh(cmd.Context()); err != nil {
				return err
			}
			s.SetSelectedList(args[0])
			st := s.State()
			list, ok := st.SelectedList()
			if !ok {
				return store.ErrListNotFound
			}
			in := ids(st.MutationsInSelectedList())
			notIn := ids(st.MutationsNotInSelectedList())
			payload := map[string]any{
				"list":                  list,
				"describedMutations":    in,
				"notDescribedMutations": notIn,
			}
			return c.print(payload, func(w io.Writer) {
				fmt.Fprintf(w, "name:        %s\n", list.Name)
				fmt.Fprintf(w, "description: %s\n", list.Description)
				fmt.Fprintf(w, "members:     %s\n", strings.Join(list.Mutations, ", "))
				fmt.Fprintf(w, "described:   %s\n", strings.Join(in, ", "))
				fmt.Fprintf(w, "other:       %s\n", strings.Join(notIn, ", "))
			})
		},
	}
}

func (c *cli) printList(l mutations.MutationList) error {
	return c.print(l, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%d mutations)\n", l.Name, len(l.Mutations))
	})
}

func (c *cli) print(v any, text func(io.Writer)) error {
	if c.format == "json" {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(c.out)
	return nil
}

func ids(ms []mutations.Mutation) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.MutationID
	}
	return out
}
