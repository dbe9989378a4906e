package platform

import (
	"errors"
	"fmt"
	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/fuad-daoud/pastabot/router"
	"golang.org/x/net/context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAuthentication means the token was rejected. Retrying will not help.
var ErrAuthentication = errors.New("discord rejected the bot token")

type Options struct {
	Token    string
	Nickname string
	Game     string
	Prefix   string
}

// Bot connects the router to Discord and implements router.Dispatcher.
type Bot struct {
	options Options
	router  *router.Router

	mutex  sync.RWMutex
	client bot.Client
	ctx    context.Context
	ready  atomic.Bool
}

func New(options Options) *Bot {
	return &Bot{options: options, ctx: context.Background()}
}

// Attach sets the router inbound messages are handed to.
func (b *Bot) Attach(r *router.Router) {
	b.router = r
}

// Run opens the gateway and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	client, err := disgo.New(b.options.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMembers,
				gateway.IntentGuildMessages,
				gateway.IntentDirectMessages,
				gateway.IntentMessageContent,
			),
		),
		bot.WithCacheConfigOpts(
			cache.WithCaches(cache.FlagsAll),
		),
		bot.WithEventListenerFunc(b.onReady),
		bot.WithEventListenerFunc(b.onGuildJoin),
		bot.WithEventListenerFunc(b.onGuildMessage),
		bot.WithEventListenerFunc(b.onDirectMessage),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	defer func() {
		b.ready.Store(false)
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client.Close(closeCtx)
		dlog.Info("disgo close successfully")
	}()

	if _, err = client.Rest().GetUser(client.ID()); err != nil {
		if statusCode(err) == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return fmt.Errorf("verify token: %w", err)
	}

	b.mutex.Lock()
	b.client = client
	b.ctx = ctx
	b.mutex.Unlock()

	if err = client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	<-ctx.Done()
	return nil
}

// Connected reports whether the gateway has delivered its ready event.
func (b *Bot) Connected() bool {
	return b.ready.Load()
}

func (b *Bot) current() (bot.Client, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	if b.client == nil {
		return nil, errors.New("discord client is not connected")
	}
	return b.client, nil
}

func (b *Bot) rootContext() context.Context {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.ctx
}

func (b *Bot) Send(_ context.Context, channelID snowflake.ID, message discord.MessageCreate) error {
	client, err := b.current()
	if err != nil {
		return err
	}
	_, err = client.Rest().CreateMessage(channelID, message)
	return classify(err)
}

func (b *Bot) SendDM(_ context.Context, userID snowflake.ID, text string) error {
	client, err := b.current()
	if err != nil {
		return err
	}
	channel, err := client.Rest().CreateDMChannel(userID)
	if err != nil {
		return classify(err)
	}
	_, err = client.Rest().CreateMessage(channel.ID(), discord.MessageCreate{Content: text})
	return classify(err)
}

func (b *Bot) Delete(_ context.Context, channelID, messageID snowflake.ID) error {
	client, err := b.current()
	if err != nil {
		return err
	}
	return classify(client.Rest().DeleteMessage(channelID, messageID))
}

func (b *Bot) FetchMessage(_ context.Context, channelID, messageID snowflake.ID) (router.Message, bool, error) {
	client, err := b.current()
	if err != nil {
		return router.Message{}, false, err
	}
	message, err := client.Rest().GetMessage(channelID, messageID)
	if statusCode(err) == http.StatusNotFound {
		return router.Message{}, false, nil
	}
	if err != nil {
		return router.Message{}, false, classify(err)
	}
	guildID := message.GuildID
	if guildID == nil {
		if channel, ok := client.Caches().Channel(channelID); ok {
			id := channel.GuildID()
			guildID = &id
		}
	}
	message.GuildID = guildID
	return messageFrom(*message, guildID), true, nil
}

func (b *Bot) SetGame(ctx context.Context, game string) error {
	client, err := b.current()
	if err != nil {
		return err
	}
	return client.SetPresence(ctx, gateway.WithPlayingActivity(game))
}

func (b *Bot) SetNickname(_ context.Context, guildID snowflake.ID, nickname string) error {
	client, err := b.current()
	if err != nil {
		return err
	}
	// Rest().UpdateCurrentMember decodes into a nil pointer and fails on every
	// successful response, so the endpoint is called directly.
	var member discord.Member
	err = client.Rest().Do(rest.UpdateCurrentMember.Compile(nil, guildID), discord.CurrentMemberUpdate{Nick: nickname}, &member)
	return classify(err)
}

func (b *Bot) GuildName(guildID snowflake.ID) string {
	client, err := b.current()
	if err != nil {
		return guildID.String()
	}
	if guild, ok := client.Caches().Guild(guildID); ok {
		return guild.Name
	}
	return guildID.String()
}

func statusCode(err error) int {
	var restErr *rest.Error
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}

// classify marks permission failures with router.ErrForbidden.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if statusCode(err) == http.StatusForbidden {
		return fmt.Errorf("%w: %w", router.ErrForbidden, err)
	}
	return err
}
