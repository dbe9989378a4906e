// Package router turns inbound chat messages into actions: built-in commands,
// custom command lookups and cooldown-gated easter eggs.
package router

import (
	"errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/assets"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/fuad-daoud/pastabot/cooldown"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/fuad-daoud/pastabot/store"
	"github.com/google/uuid"
	"golang.org/x/net/context"
	"golang.org/x/time/rate"
	"log/slog"
	"sync"
	"time"
)

// ErrForbidden is returned by a Dispatcher when the bot lacks a permission.
var ErrForbidden = errors.New("missing permissions")

type Settings struct {
	Prefix           string
	MaxMessageLength int
	Location         *time.Location
	Eggs             []config.Egg
}

func SettingsFrom(c *config.Config) Settings {
	return Settings{
		Prefix:           c.Prefix,
		MaxMessageLength: c.MaxMessageLen,
		Location:         c.Location,
		Eggs:             c.Eggs,
	}
}

type Author struct {
	ID snowflake.ID
	// Name is the display name used in replies.
	Name     string
	Username string
	Bot      bool
}

type Message struct {
	ID          snowflake.ID
	ChannelID   snowflake.ID
	GuildID     *snowflake.ID
	GuildName   string
	ChannelName string
	Author      Author
	// IsSelf is set when the bot wrote the message.
	IsSelf      bool
	IsAdmin     bool
	Content     string
	ReferenceID *snowflake.ID
	CreatedAt   time.Time
	JumpURL     string
}

// Dispatcher performs the chat side effects.
type Dispatcher interface {
	Send(ctx context.Context, channelID snowflake.ID, message discord.MessageCreate) error
	SendDM(ctx context.Context, userID snowflake.ID, text string) error
	Delete(ctx context.Context, channelID, messageID snowflake.ID) error
	// FetchMessage reports false when the message does not exist.
	FetchMessage(ctx context.Context, channelID, messageID snowflake.ID) (Message, bool, error)
	SetGame(ctx context.Context, game string) error
	SetNickname(ctx context.Context, guildID snowflake.ID, nickname string) error
	GuildName(guildID snowflake.ID) string
}

// DefaultDMInterval spaces out the direct messages of a bulk send.
const DefaultDMInterval = 500 * time.Millisecond

type Router struct {
	settings   Settings
	store      store.Store
	dispatcher Dispatcher
	assets     assets.Source
	gate       *cooldown.Gate
	limiter    *rate.Limiter
	now        func() time.Time
	wg         sync.WaitGroup
}

func New(settings Settings, commands store.Store, dispatcher Dispatcher, source assets.Source) *Router {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Router{
		settings:   settings,
		store:      commands,
		dispatcher: dispatcher,
		assets:     source,
		gate:       cooldown.NewGate(),
		limiter:    rate.NewLimiter(rate.Every(DefaultDMInterval), 1),
		now:        time.Now,
	}
}

func (r *Router) Settings() Settings {
	return r.settings
}

// Handle routes message and runs the result. Bulk sends continue in the
// background after Handle returns.
func (r *Router) Handle(ctx context.Context, message Message) {
	command := r.settings.Route(message)
	if _, ok := command.(Ignore); ok {
		return
	}
	log := dlog.Log.With("event", uuid.NewString())
	if message.GuildID != nil {
		log.Info("message",
			slog.String("guild", message.GuildName),
			slog.String("channel", message.ChannelName),
			slog.String("author", message.Author.Username),
			slog.String("content", message.Content),
		)
	}

	switch c := command.(type) {
	case PrivateMessage:
		r.reply(ctx, log, message, "ERROR: I don't currently have support for any commands in private messages. Sorry!")
	case Reject:
		r.reply(ctx, log, message, c.Reply)
	case Add:
		r.add(ctx, log, message, c)
	case Remove:
		r.remove(ctx, log, message, c)
	case ChangeGame:
		r.changeGame(ctx, log, message, c)
	case ChangeNick:
		r.changeNick(ctx, log, message, c)
	case Quote:
		r.quote(ctx, log, message, c)
	case Help:
		r.help(ctx, log, message)
	case CustomLookup:
		r.lookup(ctx, log, message, c)
	case EasterEgg:
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.easterEgg(ctx, log, message, c.Egg)
		}()
	case Passthrough:
	}
}

// Wait blocks until running bulk sends finish.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Stop waits for bulk sends and drops pending cooldown resets.
func (r *Router) Stop() {
	r.Wait()
	r.gate.Stop()
}
