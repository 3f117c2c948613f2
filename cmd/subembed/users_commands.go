package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subembed/internal/users"
)

const banReasonDefault = "No reason provided"

func newUsersCommand(ctx *commandContext) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and moderate bot users",
	}
	usersCmd.AddCommand(newUsersListCommand(ctx))
	usersCmd.AddCommand(newUsersShowCommand(ctx))
	usersCmd.AddCommand(newUsersBanCommand(ctx))
	usersCmd.AddCommand(newUsersUnbanCommand(ctx))
	usersCmd.AddCommand(newUsersCountCommand(ctx))
	return usersCmd
}

func parseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	var bannedOnly bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUsers(func(store *users.Store) error {
				all, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				filtered := all[:0]
				for _, u := range all {
					if bannedOnly && !u.Banned {
						continue
					}
					filtered = append(filtered, u)
				}
				if asJSON {
					return writeJSON(cmd, filtered)
				}
				out := cmd.OutOrStdout()
				if len(filtered) == 0 {
					fmt.Fprintln(out, "No users")
					return nil
				}
				rows := make([][]string, 0, len(filtered))
				for _, u := range filtered {
					rows = append(rows, []string{
						strconv.FormatInt(u.ID, 10),
						humanize.Time(u.JoinedAt),
						banState(u),
						yesNo(u.Caption != ""),
						yesNo(u.ThumbRef != ""),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"User", "Joined", "Status", "Caption", "Thumbnail"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&bannedOnly, "banned", false, "Only list banned users")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newUsersShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show one user's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return ctx.withUsers(func(store *users.Store) error {
				u, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if u == nil {
					return fmt.Errorf("user %d not found", id)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "User:      %d\n", u.ID)
				fmt.Fprintf(out, "Joined:    %s (%s)\n", u.JoinedAt.Format(time.RFC3339), humanize.Time(u.JoinedAt))
				fmt.Fprintf(out, "Status:    %s\n", banState(u))
				if u.Banned {
					fmt.Fprintf(out, "Reason:    %s\n", u.BanReason)
				}
				caption := u.Caption
				if caption == "" {
					caption = "(default)"
				}
				fmt.Fprintf(out, "Caption:   %s\n", caption)
				fmt.Fprintf(out, "Thumbnail: %s\n", yesNo(u.ThumbRef != ""))
				return nil
			})
		},
	}
}

func newUsersBanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ban <user-id> [reason...]",
		Short: "Ban a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			reason := strings.TrimSpace(strings.Join(args[1:], " "))
			if reason == "" {
				reason = banReasonDefault
			}
			return ctx.withUsers(func(store *users.Store) error {
				if err := store.Ban(cmd.Context(), id, reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %d banned: %s\n", id, reason)
				return nil
			})
		},
	}
}

func newUsersUnbanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user-id>",
		Short: "Lift a ban",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return ctx.withUsers(func(store *users.Store) error {
				wasBanned, err := store.Unban(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !wasBanned {
					fmt.Fprintf(cmd.OutOrStdout(), "User %d was not banned\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "User %d unbanned\n", id)
				return nil
			})
		},
	}
}

func newUsersCountCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print user totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withUsers(func(store *users.Store) error {
				stats, err := store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Total: %d\nBanned: %d\nActive: %d\n",
					stats.Total, stats.Banned, stats.Total-stats.Banned)
				return nil
			})
		},
	}
}

func banState(u *users.User) string {
	if u.Banned {
		return "banned"
	}
	return "active"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
