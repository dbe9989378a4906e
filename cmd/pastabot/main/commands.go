package main

import (
	"fmt"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/assets"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/fuad-daoud/pastabot/integrations/digitalocean"
	"github.com/fuad-daoud/pastabot/router"
	"github.com/fuad-daoud/pastabot/store"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
	"net/url"
	"os"
	"strings"
)

type storeAction func(ctx context.Context, cmd *cobra.Command, commands store.Store, settings router.Settings, guildID string, args []string) error

func commandsCommand() *cobra.Command {
	var guild string
	parent := &cobra.Command{
		Use:   "commands",
		Short: "Inspect and edit the custom commands of a guild",
	}
	parent.PersistentFlags().StringVar(&guild, "guild", "", "guild id")
	_ = parent.MarkPersistentFlagRequired("guild")

	withStore := func(action storeAction) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			guildID, err := snowflake.Parse(guild)
			if err != nil {
				return fmt.Errorf("invalid guild id %q: %w", guild, err)
			}
			c, err := config.LoadOffline()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			commands, err := store.Open(ctx, c.DatabaseURI)
			if err != nil {
				return err
			}
			defer commands.Close(context.Background())
			return action(ctx, cmd, commands, router.SettingsFrom(c), guildID.String(), args)
		}
	}

	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List custom commands",
		Args:  cobra.NoArgs,
		RunE:  withStore(listCommands),
	}, &cobra.Command{
		Use:   "get <name>",
		Short: "Print the response of a custom command",
		Args:  cobra.ExactArgs(1),
		RunE:  withStore(getCommand),
	}, &cobra.Command{
		Use:   "add <name> <response...>",
		Short: "Add or replace a custom command",
		Args:  cobra.MinimumNArgs(2),
		RunE:  withStore(addCommand),
	}, &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a custom command",
		Args:    cobra.ExactArgs(1),
		RunE:    withStore(removeCommand),
	})
	return parent
}

func listCommands(ctx context.Context, cmd *cobra.Command, commands store.Store, settings router.Settings, guildID string, _ []string) error {
	list, err := commands.ListCommands(ctx, guildID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No custom commands have been added yet.")
		return nil
	}
	for _, command := range list {
		fmt.Fprintln(cmd.OutOrStdout(), settings.Prefix+command.Name)
	}
	return nil
}

func getCommand(ctx context.Context, cmd *cobra.Command, commands store.Store, settings router.Settings, guildID string, args []string) error {
	name := strings.TrimPrefix(args[0], settings.Prefix)
	result, err := commands.GetCommand(ctx, guildID, name)
	if err != nil {
		return err
	}
	if !result.Found {
		return fmt.Errorf("command '%s%s' not found", settings.Prefix, name)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Content)
	return nil
}

func addCommand(ctx context.Context, cmd *cobra.Command, commands store.Store, settings router.Settings, guildID string, args []string) error {
	body := strings.TrimSpace(strings.Join(args[1:], " "))
	name, err := settings.ValidateAdd(args[0], body)
	if err != nil {
		return err
	}
	isNew, err := commands.AddCommand(ctx, guildID, name, body)
	if err != nil {
		return err
	}
	verb := "replaced"
	if isNew {
		verb = "added"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "SUCCESS: Command '%s%s' has been %s\n", settings.Prefix, name, verb)
	return nil
}

func removeCommand(ctx context.Context, cmd *cobra.Command, commands store.Store, settings router.Settings, guildID string, args []string) error {
	name := strings.TrimPrefix(args[0], settings.Prefix)
	removed, err := commands.RemoveCommand(ctx, guildID, name)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("command '%s%s' not found", settings.Prefix, name)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "SUCCESS: Command '%s%s' has been removed\n", settings.Prefix, name)
	return nil
}

// assetsCommand uploads easter egg resources to Spaces.
func assetsCommand() *cobra.Command {
	parent := &cobra.Command{
		Use:   "assets",
		Short: "Manage easter egg resources",
	}
	parent.AddCommand(&cobra.Command{
		Use:   "upload <key> <file>",
		Short: "Upload a text resource to the spaces bucket in ASSETS_URI",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOffline()
			if err != nil {
				return err
			}
			parsed, err := url.Parse(c.AssetsURI)
			if err != nil || (parsed.Scheme != "spaces" && parsed.Scheme != "s3") {
				return fmt.Errorf("ASSETS_URI %q is not a spaces bucket", c.AssetsURI)
			}
			options := spacesOptions(c)
			options.Bucket = parsed.Host
			options.Prefix = strings.Trim(parsed.Path, "/")
			spaces, err := digitalocean.NewSpaces(options)
			if err != nil {
				return err
			}
			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()
			if err = spaces.Upload(cmd.Context(), assets.Name(args[0]), file, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", assets.Name(args[0]))
			return nil
		},
	})
	return parent
}
