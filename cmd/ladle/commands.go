package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/ladle/internal/domain"
	"github.com/mmcdole/ladle/internal/serverinfo"
)

// newRootCmd builds the command tree. The returned function closes the app
// built for the invocation and must run after Execute, whether or not it failed.
func newRootCmd(ver string) (*cobra.Command, func() error) {
	var (
		configDir string
		debug     bool
		a         *app
	)

	cmd := &cobra.Command{
		Use:           "ladle",
		Short:         "Browse a Mealie recipe server from the terminal",
		Long:          "ladle keeps a local cache of a Mealie server's recipes and pages through it, fetching more as needed.",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `  # Point ladle at a server and log in
  ladle server set demo.mealie.io
  ladle login

  # Sync and browse
  ladle sync
  ladle list --query cake --pages 2
  ladle show chocolate-cake --refresh`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			a, err = newApp(cmd.Context(), configDir, debug)
			return err
		},
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default is the OS config dir)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	getApp := func() *app { return a }
	cmd.AddCommand(
		newServerCmd(getApp),
		newLoginCmd(getApp),
		newLogoutCmd(getApp),
		newSyncCmd(getApp),
		newListCmd(getApp),
		newShowCmd(getApp),
		newFavoriteCmd(getApp),
		newDeleteCmd(getApp),
		newClearCmd(getApp),
	)
	closeApp := func() error {
		if a == nil {
			return nil
		}
		return a.Close()
	}
	return cmd, closeApp
}

func newServerCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Show or change the Mealie server",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Validate and switch to a new server",
		Long:  "Probes the server, and on success logs out and clears the local cache.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed, err := getApp().session.ChangeServer(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "Server unchanged")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server changed; log in again with 'ladle login'")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current server and its API version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			url, ok, err := a.servers.GetURL(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No server configured")
				return nil
			}
			dialect, err := a.servers.APIVersion(cmd.Context())
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (API %s)\n", url, dialect)
			return nil
		},
	})
	return cmd
}

func newLoginCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store an API token for the current server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := readToken(cmd.OutOrStdout(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New("token is empty")
			}
			a := getApp()
			if err := a.tokens.SetToken(cmd.Context(), token); err != nil {
				return err
			}
			if err := a.recipes.SyncFavorites(cmd.Context()); err != nil {
				return describe(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
			return nil
		},
	}
}

// readToken reads a token without echo when stdin is a terminal.
func readToken(out io.Writer, in io.Reader) (string, error) {
	fmt.Fprint(out, "API token: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getApp().session.Logout(cmd.Context())
		},
	}
}

func newSyncCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the first recipes and the favorite flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			if err := a.recipes.Sync(cmd.Context()); err != nil {
				return describe(err)
			}
			n, err := a.store.CountRecipes(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d recipes cached\n", n)
			return nil
		},
	}
}

func newListCmd(getApp func() *app) *cobra.Command {
	var (
		query   string
		pages   int
		offset  int
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recipes, fetching more from the server as needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := getApp()
			ctx := cmd.Context()
			a.recipes.UpdateNameQuery(query)
			pager := a.recipes.ObserveRecipes()

			if refresh {
				if _, err := pager.Refresh(ctx); err != nil {
					cmd.PrintErrf("Warning: %v\n", describe(err))
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			for i := 0; i < pages; i++ {
				items, err := pager.Page(ctx, offset)
				for _, r := range items {
					fav := ""
					if r.IsFavorite {
						fav = "*"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", fav, r.Slug, r.Name)
				}
				offset += len(items)
				if err != nil {
					w.Flush()
					cmd.PrintErrf("Warning: showing cached recipes only: %v\n", describe(err))
					return nil
				}
				if len(items) < pager.State().PageSize {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only recipes whose name matches")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "index of the first recipe")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the first recipes from the server first")
	return cmd
}

func newShowCmd(getApp func() *app) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "show <slug>",
		Short: "Print a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			slug := args[0]

			detail, err := a.recipes.LoadRecipeInfo(ctx, slug)
			if refresh || errors.Is(err, domain.ErrRecipeNotFound) {
				detail, err = a.recipes.RefreshRecipeInfo(ctx, slug)
			}
			if err != nil {
				return describe(err)
			}
			printRecipe(cmd.OutOrStdout(), detail)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the recipe from the server")
	return cmd
}

func printRecipe(w io.Writer, d *domain.RecipeDetail) {
	title := d.Name
	if d.IsFavorite {
		title += " *"
	}
	fmt.Fprintln(w, title)
	if d.Description != "" {
		fmt.Fprintln(w, d.Description)
	}
	if d.RecipeYield != "" {
		fmt.Fprintf(w, "Yield: %s\n", d.RecipeYield)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(d.TagNames(), ", "))
	}

	fmt.Fprintln(w, "\nIngredients")
	for _, ing := range d.Ingredients {
		if ing.Title != "" {
			fmt.Fprintf(w, "  %s\n", ing.Title)
		}
		fmt.Fprintf(w, "  - %s\n", ing.Display())
	}

	fmt.Fprintln(w, "\nInstructions")
	for i, step := range d.Instructions {
		if step.Title != "" {
			fmt.Fprintf(w, "  %s\n", step.Title)
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, step.Text)
	}
}

func newFavoriteCmd(getApp func() *app) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "favorite <slug>",
		Short: "Mark a recipe as favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getApp().recipes.UpdateIsRecipeFavorite(cmd.Context(), args[0], !off); err != nil {
				return describe(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "remove from favorites instead")
	return cmd
}

func newDeleteCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a recipe from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getApp().recipes.DeleteRecipe(cmd.Context(), args[0]); err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newClearCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return getApp().recipes.ClearLocalData(cmd.Context())
		},
	}
}

// describe adds a hint for errors the user can act on.
func describe(err error) error {
	switch {
	case serverinfo.IsFatal(err):
		return fmt.Errorf("%w (run 'ladle server set <url>' again)", err)
	case errors.Is(err, domain.ErrNoBaseURL):
		return fmt.Errorf("%w (run 'ladle server set <url>')", err)
	case errors.Is(err, domain.ErrUnauthorized):
		return fmt.Errorf("%w (run 'ladle login')", err)
	default:
		return err
	}
}
