package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/format"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "h5features v%s\n", version)
			fmt.Fprintf(out, "Format versions: %v (default %s)\n", format.Supported(), format.Default)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	var group, outFormat string
	cmd := &cobra.Command{
		Use:   "info <path>",
		Short: "Describe a group: schema, items, rows and column storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := h5features.Open(ctx, loc, group, a.cfg.Options()...)
			if err != nil {
				return err
			}
			defer r.Close()
			return encode(cmd.OutOrStdout(), outFormat, infoDocOf(r.Info()))
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group name (optional when the container holds one group)")
	cmd.Flags().StringVarP(&outFormat, "format", "f", formatYAML, "Output format (json, yaml)")
	return cmd
}

func (a *app) groupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups <path>",
		Short: "List the groups of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			groups, err := h5features.Groups(ctx, loc, a.cfg.Options()...)
			if err != nil {
				return err
			}
			for _, g := range groups {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}
}

func (a *app) lsCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "ls <path>",
		Short: "List the items of a group in storage order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := h5features.Open(ctx, loc, group, a.cfg.Options()...)
			if err != nil {
				return err
			}
			defer r.Close()
			for _, name := range r.Items() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group name (optional when the container holds one group)")
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	var (
		group, toItem, outFormat string
		from, to                 float64
		ignoreProperties         bool
	)
	cmd := &cobra.Command{
		Use:   "read <path> <item>",
		Short: "Print an item, or a range of items, optionally restricted to a time window",
		Long: `Print the rows of an item. With --to-item every item from <item> to the
given one is printed in storage order; --from then applies to the first item
and --to to the last one. Both time bounds are inclusive.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			r, err := h5features.Open(ctx, loc, group, a.cfg.Options()...)
			if err != nil {
				return err
			}
			defer r.Close()

			var opts []h5features.ReadOption
			if cmd.Flags().Changed("from") {
				opts = append(opts, h5features.From(from))
			}
			if cmd.Flags().Changed("to") {
				opts = append(opts, h5features.To(to))
			}
			if ignoreProperties {
				opts = append(opts, h5features.IgnoreProperties())
			}
			items, err := r.ReadRange(ctx, args[1], toItem, opts...)
			if err != nil {
				return err
			}
			docs := make([]itemDoc, len(items))
			for i, it := range items {
				docs[i] = itemDocOf(it)
			}
			if toItem == "" {
				return encode(cmd.OutOrStdout(), outFormat, docs[0])
			}
			return encode(cmd.OutOrStdout(), outFormat, docs)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&group, "group", "g", "", "Group name (optional when the container holds one group)")
	f.StringVar(&toItem, "to-item", "", "Last item of a range")
	f.Float64Var(&from, "from", 0, "Keep rows whose time is at least this value")
	f.Float64Var(&to, "to", 0, "Keep rows whose time is at most this value")
	f.BoolVar(&ignoreProperties, "ignore-properties", false, "Do not load item properties")
	f.StringVarP(&outFormat, "format", "f", formatJSON, "Output format (json, yaml)")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "verify <path>",
		Short: "Check boundary indexes, properties and chunk checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			if err := h5features.Verify(ctx, loc, group, a.cfg.Options()...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group name (default: every group)")
	return cmd
}

func (a *app) vacuumCmd() *cobra.Command {
	var (
		group   string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "vacuum <path>",
		Short: "Delete blobs left by superseded commits and interrupted writes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			loc, err := a.cfg.Location(ctx, args[0])
			if err != nil {
				return err
			}
			deleted, err := h5features.Vacuum(ctx, loc, group, a.cfg.Options()...)
			if verbose {
				for _, name := range deleted {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d blobs\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "Group name (default: every group)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the deleted blob names")
	return cmd
}
