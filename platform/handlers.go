package platform

import (
	"errors"
	"fmt"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/fuad-daoud/pastabot/router"
	"sort"
)

func (b *Bot) onReady(event *events.Ready) {
	dlog.Info("Bot is up!", "username", event.User.Username, "id", event.User.ID.String())
	b.ready.Store(true)
	if b.options.Game != "" {
		if err := event.Client().SetPresence(b.rootContext(), gateway.WithPlayingActivity(b.options.Game)); err != nil {
			dlog.Error("could not set presence", dlog.Err(err))
		}
	}
	dlog.Info("connected guilds", "count", len(event.Guilds))
	for _, guild := range event.Guilds {
		dlog.Debug("guild", "id", guild.ID.String())
	}
}

func (b *Bot) onGuildJoin(event *events.GuildJoin) {
	guild := event.Guild
	log := dlog.Log.With("guild", guild.Name, "id", guild.ID.String())
	log.Info("joined new guild")
	ctx := b.rootContext()

	if b.options.Nickname != "" {
		err := b.SetNickname(ctx, guild.ID, b.options.Nickname)
		switch {
		case errors.Is(err, router.ErrForbidden):
			log.Warn("could not change nickname: missing permissions")
		case err != nil:
			log.Error("could not change nickname", dlog.Err(err))
		default:
			log.Info("changed nickname", "nickname", b.options.Nickname)
		}
	}

	caches := event.Client().Caches()
	self, ok := caches.SelfMember(guild.ID)
	if !ok {
		log.Warn("self member not cached, skipping welcome message")
		return
	}
	candidates := textChannels(caches, guild.ID, self)
	channelID, ok := welcomeChannel(candidates)
	if !ok {
		return
	}
	if err := b.Send(ctx, channelID, discord.MessageCreate{Content: welcomeMessage(b.options.Prefix)}); err != nil {
		log.Error("could not send welcome message", dlog.Err(err))
	}
}

func (b *Bot) onGuildMessage(event *events.GuildMessageCreate) {
	if b.router == nil {
		return
	}
	client := event.Client()
	message := messageFrom(event.Message, &event.GuildID)
	message.IsSelf = event.Message.Author.ID == client.ID()
	if guild, ok := client.Caches().Guild(event.GuildID); ok {
		message.GuildName = guild.Name
	}
	if channel, ok := client.Caches().Channel(event.ChannelID); ok {
		message.ChannelName = channel.Name()
	}
	message.IsAdmin = isAdmin(client.Caches(), event.GuildID, event.Message)
	b.router.Handle(b.rootContext(), message)
}

func (b *Bot) onDirectMessage(event *events.DMMessageCreate) {
	if b.router == nil {
		return
	}
	message := messageFrom(event.Message, nil)
	message.IsSelf = event.Message.Author.ID == event.Client().ID()
	b.router.Handle(b.rootContext(), message)
}

// isAdmin resolves the author's permissions from the member cache, or from the
// partial member attached to the message when the guild was not chunked.
func isAdmin(caches cache.Caches, guildID snowflake.ID, m discord.Message) bool {
	member, ok := caches.Member(guildID, m.Author.ID)
	if !ok {
		if m.Member == nil {
			return false
		}
		member = *m.Member
		member.GuildID = guildID
		member.User = m.Author
	}
	return caches.MemberPermissions(member).Has(discord.PermissionAdministrator)
}

// textChannels lists the cached text channels of a guild in display order.
func textChannels(caches cache.Caches, guildID snowflake.ID, self discord.Member) []channelCandidate {
	var channels []discord.GuildChannel
	caches.ChannelsForEach(func(channel discord.GuildChannel) {
		if channel.GuildID() == guildID && channel.Type() == discord.ChannelTypeGuildText {
			channels = append(channels, channel)
		}
	})
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Position() != channels[j].Position() {
			return channels[i].Position() < channels[j].Position()
		}
		return channels[i].ID() < channels[j].ID()
	})

	candidates := make([]channelCandidate, 0, len(channels))
	for _, channel := range channels {
		candidates = append(candidates, channelCandidate{
			ID:       channel.ID(),
			Name:     channel.Name(),
			Writable: caches.MemberPermissionsInChannel(channel, self).Has(discord.PermissionSendMessages),
		})
	}
	return candidates
}

// messageFrom copies what the router reads out of a Discord message.
func messageFrom(m discord.Message, guildID *snowflake.ID) router.Message {
	message := router.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   guildID,
		Author: router.Author{
			ID:       m.Author.ID,
			Name:     m.Author.EffectiveName(),
			Username: m.Author.Username,
			Bot:      m.Author.Bot,
		},
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
		JumpURL:   m.JumpURL(),
	}
	if m.Member != nil && m.Member.Nick != nil && *m.Member.Nick != "" {
		message.Author.Name = *m.Member.Nick
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != nil {
		message.ReferenceID = m.MessageReference.MessageID
	}
	return message
}

type channelCandidate struct {
	ID       snowflake.ID
	Name     string
	Writable bool
}

// welcomeChannel picks the writable channel named general, or else the first
// writable one.
func welcomeChannel(channels []channelCandidate) (snowflake.ID, bool) {
	var first *channelCandidate
	for i := range channels {
		channel := &channels[i]
		if !channel.Writable {
			continue
		}
		if channel.Name == "general" {
			return channel.ID, true
		}
		if first == nil {
			first = channel
		}
	}
	if first == nil {
		return 0, false
	}
	return first.ID, true
}

func welcomeMessage(prefix string) string {
	return fmt.Sprintf("Hello! I'm a customizable command bot. Use `%shelp` to see available commands. "+
		"Server admins can add custom commands with `%sadd <command> <response>`.", prefix, prefix)
}
