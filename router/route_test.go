package router

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/config"
	"github.com/stretchr/testify/assert"
	"strings"
	"testing"
	"time"
)

func testSettings() Settings {
	return Settings{
		Prefix:           "!",
		MaxMessageLength: 2000,
		Location:         time.UTC,
		Eggs:             config.DefaultEggs(),
	}
}

func guildMessage(content string, admin bool) Message {
	guildID := snowflake.ID(10)
	return Message{
		ID:        snowflake.ID(100),
		ChannelID: snowflake.ID(20),
		GuildID:   &guildID,
		GuildName: "Pasta Palace",
		Author:    Author{ID: snowflake.ID(30), Name: "Morty", Username: "morty"},
		IsAdmin:   admin,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

func TestRoute(t *testing.T) {
	settings := testSettings()

	t.Run("Testing own messages are ignored", func(t *testing.T) {
		message := guildMessage("!help", true)
		message.IsSelf = true
		assert.Equal(t, Ignore{}, settings.Route(message))

		message.GuildID = nil
		assert.Equal(t, Ignore{}, settings.Route(message))
	})

	t.Run("Testing private messages", func(t *testing.T) {
		message := guildMessage("!help", false)
		message.GuildID = nil
		assert.Equal(t, PrivateMessage{}, settings.Route(message))
	})

	t.Run("Testing other bots are ignored", func(t *testing.T) {
		message := guildMessage("!help", false)
		message.Author.Bot = true
		assert.Equal(t, Ignore{}, settings.Route(message))
	})

	t.Run("Testing built-ins and aliases", func(t *testing.T) {
		assert.Equal(t, Help{}, settings.Route(guildMessage("!help", false)))
		assert.Equal(t, Help{}, settings.Route(guildMessage("!commands", false)))
		assert.Equal(t, Add{Name: "foo", Body: "bar baz"}, settings.Route(guildMessage("!add foo bar baz", true)))
		assert.Equal(t, Remove{Name: "foo"}, settings.Route(guildMessage("!rm foo", true)))
		assert.Equal(t, Remove{Name: "foo"}, settings.Route(guildMessage("!remove !foo", true)))
		assert.Equal(t, ChangeGame{Game: "Half-Life 3"}, settings.Route(guildMessage("!changegame Half-Life 3", true)))
		assert.Equal(t, ChangeNick{Nickname: "Pasta"}, settings.Route(guildMessage("!changenick Pasta", true)))
	})

	t.Run("Testing quote needs a reply", func(t *testing.T) {
		assert.Equal(t, Reject{Reply: "ERROR: You need to reply to a message to quote it"}, settings.Route(guildMessage("!q", false)))

		message := guildMessage("!rt", false)
		reference := snowflake.ID(99)
		message.ReferenceID = &reference
		assert.Equal(t, Quote{ReferenceID: reference}, settings.Route(message))
	})

	t.Run("Testing admin built-ins need administrator", func(t *testing.T) {
		for _, content := range []string{"!add foo bar", "!remove foo", "!rm foo", "!changegame x", "!changenick x"} {
			assert.Equal(t, Reject{Reply: "ERROR: User Morty has insufficient permissions to use command."}, settings.Route(guildMessage(content, false)), content)
		}
	})

	t.Run("Testing custom lookup keeps the remainder verbatim", func(t *testing.T) {
		assert.Equal(t, CustomLookup{Name: "foo"}, settings.Route(guildMessage("!foo", false)))
		assert.Equal(t, CustomLookup{Name: "foo bar "}, settings.Route(guildMessage("!foo bar ", false)))
		assert.Equal(t, CustomLookup{Name: "Help"}, settings.Route(guildMessage("!Help", false)))
	})

	t.Run("Testing bare prefix is not a command", func(t *testing.T) {
		assert.Equal(t, Passthrough{}, settings.Route(guildMessage("!", false)))
	})

	t.Run("Testing easter egg triggers", func(t *testing.T) {
		command := settings.Route(guildMessage("Fun isn't something one considers", false))
		egg, ok := command.(EasterEgg)
		assert.True(t, ok)
		assert.Equal(t, "avengers-iw", egg.Egg.Key)

		_, ok = settings.Route(guildMessage("Inevitable", false)).(EasterEgg)
		assert.True(t, ok)
		assert.Equal(t, Passthrough{}, settings.Route(guildMessage("in lowercase", false)))
	})

	t.Run("Testing commands win over easter eggs", func(t *testing.T) {
		settings := testSettings()
		settings.Eggs = []config.Egg{{Key: "bang", Triggers: []string{"!"}}}
		assert.Equal(t, CustomLookup{Name: "x"}, settings.Route(guildMessage("!x", false)))
	})

	t.Run("Testing a longer prefix", func(t *testing.T) {
		settings := testSettings()
		settings.Prefix = "p!"
		assert.Equal(t, Help{}, settings.Route(guildMessage("p!help", false)))
		assert.Equal(t, Passthrough{}, settings.Route(guildMessage("!help", false)))
	})
}

func TestValidateAdd(t *testing.T) {
	settings := testSettings()
	tests := []struct {
		content string
		reply   string
	}{
		{"!add", "ERROR: Invalid format. Use !add <command> <response text>"},
		{"!add foo", "ERROR: Invalid format. Use !add <command> <response text>"},
		{"!add foo    ", "ERROR: Invalid format. Use !add <command> <response text>"},
		{"!add he!lo world", "ERROR: Command must be alphanumeric with no spaces."},
		{"!add !!foo world", "ERROR: Command must be alphanumeric with no spaces."},
		{"!add help world", "ERROR: Cannot override hardcoded commands."},
		{"!add !rm world", "ERROR: Cannot override hardcoded commands."},
		{"!add foo !bar", "ERROR: Command response cannot start with !"},
		{"!add " + strings.Repeat("a", 1992) + " world", "ERROR: Command is too long."},
	}
	for _, test := range tests {
		assert.Equal(t, Reject{Reply: test.reply}, settings.Route(guildMessage(test.content, true)), test.content)
	}

	t.Run("Testing the longest accepted name", func(t *testing.T) {
		// "!remove " plus the name stays one under the maximum
		name := strings.Repeat("a", 1991)
		assert.Equal(t, Add{Name: name, Body: "world"}, settings.Route(guildMessage("!add "+name+" world", true)))
	})

	t.Run("Testing unicode letters and digits", func(t *testing.T) {
		name, err := settings.ValidateAdd("café42", "body")
		assert.NoError(t, err)
		assert.Equal(t, "café42", name)
	})

	t.Run("Testing one prefix is stripped", func(t *testing.T) {
		name, err := settings.ValidateAdd("!foo", "body")
		assert.NoError(t, err)
		assert.Equal(t, "foo", name)
	})
}
