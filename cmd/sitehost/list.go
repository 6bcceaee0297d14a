package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MalithGihan/sitehost-service/internal/config"
	"github.com/MalithGihan/sitehost-service/internal/project"
	"github.com/MalithGihan/sitehost-service/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List hosted sites in the sites root",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	st, err := store.New(cfg.Sites.Root)
	if err != nil {
		return err
	}
	names, err := st.List()
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintln(out, "No sites hosted yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL")
	for _, n := range names {
		fmt.Fprintf(tw, "%s\t%s/\n", n, project.URL(n))
	}
	return tw.Flush()
}
