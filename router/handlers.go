package router

import (
	"errors"
	"fmt"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/chunk"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/fuad-daoud/pastabot/quote"
	"github.com/sahilm/fuzzy"
	"golang.org/x/net/context"
	"log/slog"
	"strings"
	"unicode/utf8"
)

const unavailableReply = "ERROR: Could not complete the request, the command database is unavailable. Try again later."

const customHeader = "Custom commands:\n"

func (r *Router) reply(ctx context.Context, log *slog.Logger, message Message, text string) {
	if err := r.dispatcher.Send(ctx, message.ChannelID, discord.MessageCreate{Content: text}); err != nil {
		log.Error("could not send reply", slog.String("channel", message.ChannelID.String()), dlog.Err(err))
	}
}

func (r *Router) unavailable(ctx context.Context, log *slog.Logger, message Message, err error) {
	log.Error("command store failed", dlog.Err(err))
	r.reply(ctx, log, message, unavailableReply)
}

func (r *Router) add(ctx context.Context, log *slog.Logger, message Message, c Add) {
	isNew, err := r.store.AddCommand(ctx, message.GuildID.String(), c.Name, c.Body)
	if err != nil {
		r.unavailable(ctx, log, message, err)
		return
	}
	verb := "replaced"
	if isNew {
		verb = "added"
	}
	log.Info("custom command saved", slog.String("name", c.Name), slog.Bool("new", isNew))
	r.reply(ctx, log, message, fmt.Sprintf("SUCCESS: Command '%s%s' has been %s", r.settings.Prefix, c.Name, verb))
}

func (r *Router) remove(ctx context.Context, log *slog.Logger, message Message, c Remove) {
	removed, err := r.store.RemoveCommand(ctx, message.GuildID.String(), c.Name)
	if err != nil {
		r.unavailable(ctx, log, message, err)
		return
	}
	p := r.settings.Prefix
	if !removed {
		r.reply(ctx, log, message, fmt.Sprintf("ERROR: Could not remove, Command '%s%s' not found. On the bright side, you wanted to remove it anyways, right?", p, c.Name))
		return
	}
	log.Info("custom command removed", slog.String("name", c.Name))
	r.reply(ctx, log, message, fmt.Sprintf("SUCCESS: Command '%s%s' has been removed", p, c.Name))
}

func (r *Router) changeGame(ctx context.Context, log *slog.Logger, message Message, c ChangeGame) {
	if err := r.dispatcher.SetGame(ctx, c.Game); err != nil {
		log.Error("could not change presence", dlog.Err(err))
		r.reply(ctx, log, message, fmt.Sprintf("ERROR: Could not change playing status: %v", err))
		return
	}
	r.reply(ctx, log, message, fmt.Sprintf("SUCCESS: Changed playing status to '%s'", c.Game))
}

func (r *Router) changeNick(ctx context.Context, log *slog.Logger, message Message, c ChangeNick) {
	err := r.dispatcher.SetNickname(ctx, *message.GuildID, c.Nickname)
	switch {
	case errors.Is(err, ErrForbidden):
		r.reply(ctx, log, message, "ERROR: I don't have permission to change my nickname")
	case err != nil:
		r.reply(ctx, log, message, fmt.Sprintf("ERROR: Could not change nickname: %v", err))
	default:
		r.reply(ctx, log, message, fmt.Sprintf("SUCCESS: Changed nickname to '%s'", c.Nickname))
	}
}

func (r *Router) quote(ctx context.Context, log *slog.Logger, message Message, c Quote) {
	quoted, ok, err := r.dispatcher.FetchMessage(ctx, message.ChannelID, c.ReferenceID)
	if err != nil {
		log.Error("could not fetch quoted message", slog.String("message", c.ReferenceID.String()), dlog.Err(err))
	}
	if err != nil || !ok {
		r.reply(ctx, log, message, "ERROR: Could not find the message you're replying to")
		return
	}

	// messages fetched over REST carry no guild id, so the link is built from
	// the invoking message
	link := jumpURL(message.GuildID, message.ChannelID, quoted.ID)
	timestamp := quote.Format(quoted.CreatedAt, r.now(), r.settings.Location)
	embed := discord.NewEmbedBuilder().
		SetTitle("←").
		SetURL(link).
		SetDescription(quoted.Content).
		SetFooter(quoted.Author.Name+" • "+timestamp, "").
		Build()
	create := discord.MessageCreate{
		Content: message.Author.Name + " quoted:",
		Embeds:  []discord.Embed{embed},
	}
	if err = r.dispatcher.Send(ctx, message.ChannelID, create); err != nil {
		log.Error("could not send quote", dlog.Err(err))
		return
	}

	err = r.dispatcher.Delete(ctx, message.ChannelID, message.ID)
	if errors.Is(err, ErrForbidden) {
		r.reply(ctx, log, message, "ERROR: I don't have permission to delete messages")
	} else if err != nil {
		log.Error("could not delete quote command", dlog.Err(err))
	}
}

func jumpURL(guildID *snowflake.ID, channelID, messageID snowflake.ID) string {
	guild := "@me"
	if guildID != nil {
		guild = guildID.String()
	}
	return fmt.Sprintf(discord.MessageURLFmt, guild, channelID, messageID)
}

func (r *Router) builtinHelp() string {
	p := r.settings.Prefix
	var b strings.Builder
	b.WriteString("Built-in commands:\n")
	fmt.Fprintf(&b, "%sadd <command> <response> - Add a new command\n", p)
	fmt.Fprintf(&b, "%sremove <command> - Remove a command\n", p)
	fmt.Fprintf(&b, "%schangegame <game> - Change bot's playing status\n", p)
	fmt.Fprintf(&b, "%schangenick <nickname> - Change bot's nickname\n", p)
	fmt.Fprintf(&b, "%squote - Quote a message (use by replying to a message)\n", p)
	fmt.Fprintf(&b, "%scommands or %shelp - Show this help message\n", p, p)
	return b.String()
}

func (r *Router) help(ctx context.Context, log *slog.Logger, message Message) {
	r.reply(ctx, log, message, r.dispatcher.GuildName(*message.GuildID)+" commands:")
	r.reply(ctx, log, message, r.builtinHelp())

	commands, err := r.store.ListCommands(ctx, message.GuildID.String())
	if err != nil {
		r.unavailable(ctx, log, message, err)
		return
	}
	if len(commands) == 0 {
		r.reply(ctx, log, message, "No custom commands have been added yet.")
		return
	}

	r.reply(ctx, log, message, customHeader)
	// the header length is counted against every chunk
	max := r.settings.MaxMessageLength - utf8.RuneCountInString(customHeader)
	writer := chunk.NewWriter(max, func(text string) error {
		return r.dispatcher.Send(ctx, message.ChannelID, discord.MessageCreate{Content: text})
	})
	for _, command := range commands {
		if err = writer.WriteLine(r.settings.Prefix + command.Name + "\n"); err != nil {
			break
		}
	}
	if err == nil {
		err = writer.Close()
	}
	if err != nil {
		log.Error("could not send command listing", dlog.Err(err))
	}
}

func (r *Router) lookup(ctx context.Context, log *slog.Logger, message Message, c CustomLookup) {
	guildID := message.GuildID.String()
	result, err := r.store.GetCommand(ctx, guildID, c.Name)
	if err != nil {
		r.unavailable(ctx, log, message, err)
		return
	}
	if result.Found {
		r.reply(ctx, log, message, result.Content)
		return
	}

	p := r.settings.Prefix
	text := fmt.Sprintf("ERROR: Message starts with '%s' but I don't recognize this command. Use %shelp or %scommands to see what's available.", p, p, p)
	if suggestion := r.suggest(ctx, guildID, c.Name); suggestion != "" {
		text += fmt.Sprintf("\nDid you mean %s%s?", p, suggestion)
	}
	r.reply(ctx, log, message, text)
}

// suggest returns the closest custom command name, or "" when nothing is close.
func (r *Router) suggest(ctx context.Context, guildID, name string) string {
	commands, err := r.store.ListCommands(ctx, guildID)
	if err != nil || len(commands) == 0 {
		return ""
	}
	names := make([]string, len(commands))
	for i, command := range commands {
		names[i] = command.Name
	}
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

func (r *Router) easterEgg(ctx context.Context, log *slog.Logger, message Message, egg config.Egg) {
	busy := func() {
		r.reply(ctx, log, message, egg.BusyMessage)
	}
	r.gate.Trigger(egg.Key, egg.Cooldown, busy, func() {
		log.Info("bulk send started", slog.String("egg", egg.Key), slog.String("user", message.Author.ID.String()))
		sent, err := r.bulkSend(ctx, message, egg.Key)
		if err != nil {
			log.Error("bulk send failed", slog.String("egg", egg.Key), slog.Int("sent", sent), dlog.Err(err))
			return
		}
		log.Info("bulk send finished", slog.String("egg", egg.Key), slog.Int("sent", sent))
	})
}

func (r *Router) bulkSend(ctx context.Context, message Message, key string) (int, error) {
	body, err := r.assets.Open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	sent := 0
	err = chunk.Lines(body, r.settings.MaxMessageLength, func(text string) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := r.dispatcher.SendDM(ctx, message.Author.ID, text); err != nil {
			return err
		}
		sent++
		return nil
	})
	return sent, err
}
