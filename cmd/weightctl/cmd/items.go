package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/idwrap"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/model/mitem"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/translate/tgeneric"
	"github.com/the-dev-tools/dev-tools/packages/weight/pkg/weight"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		group    string
		explicit int64
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item at the end of its group",
		Long:  `Add an item. Without --weight the item goes to the end of its group.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			item, err := svc.Create(cmd.Context(), mitem.Item{
				Name:     args[0],
				GroupKey: mitem.GroupPtr(group),
				Weight:   explicit,
			})
			if err != nil {
				return err
			}
			return a.writeItems(cmd, []mitem.Item{item})
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group the item belongs to")
	cmd.Flags().Int64VarP(&explicit, "weight", "w", 0, "explicit weight instead of the next free one")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the items of a group in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			items, err := svc.ListItems(cmd.Context(), mitem.GroupPtr(group))
			if err != nil {
				return err
			}
			return a.writeItems(cmd, items)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group to list (default is the ungrouped items)")
	return cmd
}

func newMoveCmd(a *app, direction string) *cobra.Command {
	dir, err := weight.ParseDirection(direction)
	if err != nil {
		panic(err)
	}
	return &cobra.Command{
		Use:   direction + " <id>",
		Short: fmt.Sprintf("Move an item one place %s in its group", dir),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := idwrap.NewText(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			item, err := svc.Move(cmd.Context(), id, dir)
			if err != nil {
				return err
			}
			return a.writeItems(cmd, []mitem.Item{item})
		},
	}
}

func newRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair [id]",
		Short: "Renumber groups holding duplicate weights",
		Long: `Repair the group of the given item, or every group when no id is given.
Groups with duplicate weights are renumbered 1..N in their current order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				n, err := svc.Repair(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "repaired %d group(s)\n", n)
				return err
			}
			id, err := idwrap.NewText(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			item, err := svc.SanityCheck(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.writeItems(cmd, []mitem.Item{item})
		},
	}
}

func newNextCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the weight the next item of a group would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			next, err := svc.NextWeight(cmd.Context(), mitem.GroupPtr(group))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), next)
			return err
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group to inspect (default is the ungrouped items)")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove items",
		Long:  `Remove one or more items. The remaining weights of their groups keep the gaps.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := tgeneric.MassConvertWithErr(args, idwrap.NewText)
			if err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := svc.DeleteItem(cmd.Context(), id); err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
			}
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report duplicate and missing weights of a group without changing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd)
			if err != nil {
				return err
			}
			report, err := svc.Inspect(cmd.Context(), mitem.GroupPtr(group))
			if err != nil {
				return err
			}
			return WriteReport(cmd.OutOrStdout(), a.v.GetString("output"), report)
		},
	}
	cmd.Flags().StringVarP(&group, "group", "g", "", "group to check (default is the ungrouped items)")
	return cmd
}
