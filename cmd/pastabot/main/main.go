package main

import (
	"errors"
	"fmt"
	"github.com/fuad-daoud/pastabot/assets"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/fuad-daoud/pastabot/http"
	"github.com/fuad-daoud/pastabot/integrations/digitalocean"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/fuad-daoud/pastabot/platform"
	"github.com/fuad-daoud/pastabot/router"
	"github.com/fuad-daoud/pastabot/store"
	"github.com/fuad-daoud/pastabot/supervisor"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pastabot:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pastabot",
		Short:         "Discord bot for per-guild custom text commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and answer commands",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(commandsCommand())
	root.AddCommand(assetsCommand())
	return root
}

func spacesOptions(c *config.Config) digitalocean.Options {
	return digitalocean.Options{
		Key:      c.SpacesKey,
		Secret:   c.SpacesSecret,
		Endpoint: c.SpacesEndpoint,
		Region:   c.SpacesRegion,
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	shutdown, err := dlog.Setup(dlog.Options{Dir: c.LogDir, Level: c.LogLevel, ArchiveCron: c.LogArchiveCron})
	if err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands, err := store.Open(ctx, c.DatabaseURI)
	if err != nil {
		return fmt.Errorf("open command store: %w", err)
	}
	defer func() {
		if err := commands.Close(context.Background()); err != nil {
			dlog.Error("could not close command store", dlog.Err(err))
		}
	}()

	source, err := assets.Open(c.AssetsURI, spacesOptions(c))
	if err != nil {
		return err
	}

	discordBot := platform.New(platform.Options{
		Token:    c.Token,
		Nickname: c.Nickname,
		Game:     c.Game,
		Prefix:   c.Prefix,
	})
	r := router.New(router.SettingsFrom(c), commands, discordBot, source)
	discordBot.Attach(r)
	defer r.Stop()

	options := supervisor.DefaultOptions()
	options.Fatal = []error{platform.ErrAuthentication}
	addr := net.JoinHostPort(c.KeepaliveHost, strconv.Itoa(c.KeepalivePort))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return http.Serve(ctx, addr, discordBot.Connected)
	})
	group.Go(func() error {
		defer stop()
		return supervisor.Run(ctx, "discord", options, discordBot.Run)
	})
	err = group.Wait()
	if errors.Is(err, platform.ErrAuthentication) {
		dlog.Error("Invalid token. Please check your BOT_TOKEN environment variable.")
	}
	dlog.Info("Graceful shutdown")
	return err
}
