package router

import (
	"errors"
	"fmt"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/assets"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/fuad-daoud/pastabot/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
	"golang.org/x/time/rate"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeDispatcher struct {
	mutex     sync.Mutex
	sent      []discord.MessageCreate
	dms       []string
	deleted   []snowflake.ID
	messages  map[snowflake.ID]Message
	game      string
	nickname  string
	deleteErr error
	nickErr   error
	// hold blocks SendDM until closed when set
	hold chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{messages: map[snowflake.ID]Message{}}
}

func (f *fakeDispatcher) Send(_ context.Context, _ snowflake.ID, message discord.MessageCreate) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeDispatcher) SendDM(ctx context.Context, _ snowflake.ID, text string) error {
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.dms = append(f.dms, text)
	return nil
}

func (f *fakeDispatcher) Delete(_ context.Context, _, messageID snowflake.ID) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeDispatcher) FetchMessage(_ context.Context, _, messageID snowflake.ID) (Message, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	message, ok := f.messages[messageID]
	return message, ok, nil
}

func (f *fakeDispatcher) SetGame(_ context.Context, game string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.game = game
	return nil
}

func (f *fakeDispatcher) SetNickname(_ context.Context, _ snowflake.ID, nickname string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.nickErr != nil {
		return f.nickErr
	}
	f.nickname = nickname
	return nil
}

func (f *fakeDispatcher) GuildName(snowflake.ID) string {
	return "Pasta Palace"
}

func (f *fakeDispatcher) contents() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	contents := make([]string, 0, len(f.sent))
	for _, message := range f.sent {
		contents = append(contents, message.Content)
	}
	return contents
}

func (f *fakeDispatcher) last() string {
	contents := f.contents()
	if len(contents) == 0 {
		return ""
	}
	return contents[len(contents)-1]
}

func (f *fakeDispatcher) directMessages() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.dms...)
}

func (f *fakeDispatcher) reset() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = nil
}

func newTestRouter(t *testing.T, settings Settings, source assets.Source) (*Router, *fakeDispatcher, store.Store) {
	commands, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = commands.Close(context.Background()) })

	dispatcher := newFakeDispatcher()
	r := New(settings, commands, dispatcher, source)
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	r.now = func() time.Time { return time.Date(2024, time.June, 10, 15, 0, 0, 0, time.UTC) }
	t.Cleanup(r.Stop)
	return r, dispatcher, commands
}

func TestAddRemoveLookup(t *testing.T) {
	ctx := context.Background()
	r, dispatcher, commands := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))

	t.Run("Testing members cannot add", func(t *testing.T) {
		r.Handle(ctx, guildMessage("!add foo bar", false))
		assert.Equal(t, "ERROR: User Morty has insufficient permissions to use command.", dispatcher.last())
		list, err := commands.ListCommands(ctx, "10")
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Testing add then replace", func(t *testing.T) {
		r.Handle(ctx, guildMessage("!add foo bar", true))
		assert.Equal(t, "SUCCESS: Command '!foo' has been added", dispatcher.last())
		r.Handle(ctx, guildMessage("!add !foo baz qux", true))
		assert.Equal(t, "SUCCESS: Command '!foo' has been replaced", dispatcher.last())
	})

	t.Run("Testing lookup", func(t *testing.T) {
		r.Handle(ctx, guildMessage("!foo", false))
		assert.Equal(t, "baz qux", dispatcher.last())
	})

	t.Run("Testing rejected adds do not mutate", func(t *testing.T) {
		for _, content := range []string{"!add he!lo x", "!add help x", "!add bar !x"} {
			r.Handle(ctx, guildMessage(content, true))
			assert.True(t, strings.HasPrefix(dispatcher.last(), "ERROR:"), content)
		}
		list, err := commands.ListCommands(ctx, "10")
		require.NoError(t, err)
		assert.Equal(t, []store.Command{{Name: "foo", Content: "baz qux"}}, list)
	})

	t.Run("Testing lookup miss suggests a close name", func(t *testing.T) {
		r.Handle(ctx, guildMessage("!fo", false))
		assert.Equal(t, "ERROR: Message starts with '!' but I don't recognize this command. Use !help or !commands to see what's available.\nDid you mean !foo?", dispatcher.last())

		r.Handle(ctx, guildMessage("!zzz", false))
		assert.Equal(t, "ERROR: Message starts with '!' but I don't recognize this command. Use !help or !commands to see what's available.", dispatcher.last())
	})

	t.Run("Testing remove", func(t *testing.T) {
		r.Handle(ctx, guildMessage("!remove nothing", true))
		assert.Equal(t, "ERROR: Could not remove, Command '!nothing' not found. On the bright side, you wanted to remove it anyways, right?", dispatcher.last())

		r.Handle(ctx, guildMessage("!rm !foo", true))
		assert.Equal(t, "SUCCESS: Command '!foo' has been removed", dispatcher.last())

		r.Handle(ctx, guildMessage("!remove", true))
		assert.Equal(t, "ERROR: !remove failed - Invalid input format. Use !remove <command>", dispatcher.last())
	})
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	r, dispatcher, commands := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))
	require.NoError(t, commands.Close(ctx))

	for _, content := range []string{"!foo", "!add foo bar", "!rm foo"} {
		r.Handle(ctx, guildMessage(content, true))
		assert.Equal(t, unavailableReply, dispatcher.last(), content)
	}

	dispatcher.reset()
	r.Handle(ctx, guildMessage("!help", false))
	contents := dispatcher.contents()
	require.Len(t, contents, 3)
	assert.Equal(t, unavailableReply, contents[2])
}

func TestPrivateMessages(t *testing.T) {
	ctx := context.Background()
	r, dispatcher, _ := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))

	message := guildMessage("!help", false)
	message.GuildID = nil
	r.Handle(ctx, message)
	assert.Equal(t, []string{"ERROR: I don't currently have support for any commands in private messages. Sorry!"}, dispatcher.contents())

	message.IsSelf = true
	r.Handle(ctx, message)
	assert.Len(t, dispatcher.contents(), 1)
}

func TestHelp(t *testing.T) {
	ctx := context.Background()

	t.Run("Testing no custom commands", func(t *testing.T) {
		r, dispatcher, _ := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))
		r.Handle(ctx, guildMessage("!help", false))
		contents := dispatcher.contents()
		require.Len(t, contents, 3)
		assert.Equal(t, "Pasta Palace commands:", contents[0])
		assert.Contains(t, contents[1], "!add <command> <response> - Add a new command")
		assert.Contains(t, contents[1], "!commands or !help - Show this help message")
		assert.Equal(t, "No custom commands have been added yet.", contents[2])
	})

	t.Run("Testing listing is chunked with the header counted", func(t *testing.T) {
		settings := testSettings()
		settings.MaxMessageLength = 40
		r, dispatcher, commands := newTestRouter(t, settings, assets.Dir(t.TempDir()))
		for i := 9; i >= 0; i-- {
			_, err := commands.AddCommand(ctx, "10", fmt.Sprintf("cmd%d", i), "x")
			require.NoError(t, err)
		}

		r.Handle(ctx, guildMessage("!commands", false))
		contents := dispatcher.contents()
		require.Len(t, contents, 7)
		assert.Equal(t, customHeader, contents[2])
		assert.Equal(t, []string{
			"!cmd0\n!cmd1\n!cmd2\n",
			"!cmd3\n!cmd4\n!cmd5\n",
			"!cmd6\n!cmd7\n!cmd8\n",
			"!cmd9\n",
		}, contents[3:])
		for _, chunk := range contents[3:] {
			assert.LessOrEqual(t, len(customHeader+chunk), 40)
		}
	})
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	r, dispatcher, _ := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))
	// REST messages come without a guild id
	quoted := Message{
		ID:        snowflake.ID(99),
		Author:    Author{Name: "Rick"},
		Content:   "wubba lubba dub dub",
		CreatedAt: time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC),
		JumpURL:   "https://discord.com/channels/@me/20/99",
	}
	dispatcher.messages[quoted.ID] = quoted

	t.Run("Testing missing reference", func(t *testing.T) {
		message := guildMessage("!quote", false)
		missing := snowflake.ID(98)
		message.ReferenceID = &missing
		r.Handle(ctx, message)
		assert.Equal(t, "ERROR: Could not find the message you're replying to", dispatcher.last())
	})

	t.Run("Testing quote embed and delete", func(t *testing.T) {
		message := guildMessage("!q", false)
		message.ReferenceID = &quoted.ID
		r.Handle(ctx, message)

		dispatcher.mutex.Lock()
		sent := dispatcher.sent[len(dispatcher.sent)-1]
		deleted := append([]snowflake.ID(nil), dispatcher.deleted...)
		dispatcher.mutex.Unlock()

		assert.Equal(t, "Morty quoted:", sent.Content)
		require.Len(t, sent.Embeds, 1)
		embed := sent.Embeds[0]
		assert.Equal(t, "←", embed.Title)
		assert.Equal(t, "https://discord.com/channels/10/20/99", embed.URL)
		assert.Equal(t, quoted.Content, embed.Description)
		assert.Nil(t, embed.Author)
		require.NotNil(t, embed.Footer)
		assert.Equal(t, "Rick • Today at 09:00 AM", embed.Footer.Text)
		assert.Equal(t, []snowflake.ID{message.ID}, deleted)
	})

	t.Run("Testing delete without permission", func(t *testing.T) {
		dispatcher.deleteErr = fmt.Errorf("delete: %w", ErrForbidden)
		defer func() { dispatcher.deleteErr = nil }()
		message := guildMessage("!rt", false)
		message.ReferenceID = &quoted.ID
		r.Handle(ctx, message)
		assert.Equal(t, "ERROR: I don't have permission to delete messages", dispatcher.last())
	})
}

func TestPresenceAndNickname(t *testing.T) {
	ctx := context.Background()
	r, dispatcher, _ := newTestRouter(t, testSettings(), assets.Dir(t.TempDir()))

	r.Handle(ctx, guildMessage("!changegame Portal 2", true))
	assert.Equal(t, "SUCCESS: Changed playing status to 'Portal 2'", dispatcher.last())
	assert.Equal(t, "Portal 2", dispatcher.game)

	r.Handle(ctx, guildMessage("!changegame", true))
	assert.Equal(t, "ERROR: Please provide a game name", dispatcher.last())

	r.Handle(ctx, guildMessage("!changenick Pasta", true))
	assert.Equal(t, "SUCCESS: Changed nickname to 'Pasta'", dispatcher.last())

	dispatcher.nickErr = ErrForbidden
	r.Handle(ctx, guildMessage("!changenick Pasta", true))
	assert.Equal(t, "ERROR: I don't have permission to change my nickname", dispatcher.last())

	dispatcher.nickErr = errors.New("rate limited")
	r.Handle(ctx, guildMessage("!changenick Pasta", true))
	assert.Equal(t, "ERROR: Could not change nickname: rate limited", dispatcher.last())
}

func TestEasterEggCooldown(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avengers-iw.txt"), []byte("I am inevitable\n\nI am Iron Man\n"), 0o644))

	settings := testSettings()
	settings.Eggs[0].Cooldown = 20 * time.Millisecond
	r, dispatcher, _ := newTestRouter(t, settings, assets.Dir(dir))
	dispatcher.hold = make(chan struct{})

	r.Handle(ctx, guildMessage("In time you will know what it's like to lose.", false))
	require.Eventually(t, func() bool { return r.gate.Held("avengers-iw") }, time.Second, time.Millisecond)

	r.Handle(ctx, guildMessage("Fun", false))
	require.Eventually(t, func() bool { return len(dispatcher.contents()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, settings.Eggs[0].BusyMessage, dispatcher.last())

	close(dispatcher.hold)
	r.Wait()
	assert.Equal(t, []string{"I am inevitable\nI am Iron Man\n"}, dispatcher.directMessages())

	require.Eventually(t, func() bool { return !r.gate.Held("avengers-iw") }, time.Second, time.Millisecond)
	r.Handle(ctx, guildMessage("Destiny still arrives.", false))
	r.Wait()
	assert.Len(t, dispatcher.directMessages(), 2)
	assert.Len(t, dispatcher.contents(), 1)
}

func TestEasterEggMissingResource(t *testing.T) {
	ctx := context.Background()
	settings := testSettings()
	settings.Eggs = []config.Egg{{Key: "missing", Triggers: []string{"boo"}, BusyMessage: "busy"}}
	r, dispatcher, _ := newTestRouter(t, settings, assets.Dir(t.TempDir()))

	r.Handle(ctx, guildMessage("boo!", false))
	r.Wait()
	assert.Empty(t, dispatcher.directMessages())
	assert.Empty(t, dispatcher.contents())
	assert.False(t, r.gate.Held("missing"))
}
