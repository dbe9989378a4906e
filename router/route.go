package router

import (
	"errors"
	"fmt"
	"github.com/disgoorg/snowflake/v2"
	"github.com/fuad-daoud/pastabot/config"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Command is the decision taken for one inbound message. The set of
// implementations is closed.
type Command interface {
	command()
}

// Ignore is a message from the bot itself or from another bot.
type Ignore struct{}

// PrivateMessage is a direct message from a user.
type PrivateMessage struct{}

// Passthrough is a guild message the bot has nothing to do with.
type Passthrough struct{}

// Reject answers invalid or unauthorized input with Reply and does nothing else.
type Reject struct {
	Reply string
}

type Add struct {
	Name string
	Body string
}

type Remove struct {
	Name string
}

type ChangeGame struct {
	Game string
}

type ChangeNick struct {
	Nickname string
}

type Quote struct {
	ReferenceID snowflake.ID
}

type Help struct{}

type CustomLookup struct {
	Name string
}

type EasterEgg struct {
	Egg config.Egg
}

func (Ignore) command()         {}
func (PrivateMessage) command() {}
func (Passthrough) command()    {}
func (Reject) command()         {}
func (Add) command()            {}
func (Remove) command()         {}
func (ChangeGame) command()     {}
func (ChangeNick) command()     {}
func (Quote) command()          {}
func (Help) command()           {}
func (CustomLookup) command()   {}
func (EasterEgg) command()      {}

const (
	builtinAdd        = "add"
	builtinRemove     = "remove"
	builtinChangeGame = "changegame"
	builtinChangeNick = "changenick"
	builtinQuote      = "quote"
	builtinHelp       = "commands"
)

// builtins maps every built-in name and alias to its canonical name.
var builtins = map[string]string{
	"add":        builtinAdd,
	"remove":     builtinRemove,
	"rm":         builtinRemove,
	"changegame": builtinChangeGame,
	"changenick": builtinChangeNick,
	"quote":      builtinQuote,
	"q":          builtinQuote,
	"rt":         builtinQuote,
	"commands":   builtinHelp,
	"help":       builtinHelp,
}

var adminOnly = map[string]bool{
	builtinAdd:        true,
	builtinRemove:     true,
	builtinChangeGame: true,
	builtinChangeNick: true,
}

func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Route decides what to do with message. It has no side effects.
func (s Settings) Route(message Message) Command {
	if message.IsSelf {
		return Ignore{}
	}
	if message.GuildID == nil {
		return PrivateMessage{}
	}
	if message.Author.Bot {
		return Ignore{}
	}

	if body, ok := strings.CutPrefix(message.Content, s.Prefix); ok && body != "" {
		name, args := splitWord(body)
		if builtin, ok := builtins[name]; ok {
			if adminOnly[builtin] && !message.IsAdmin {
				return Reject{Reply: fmt.Sprintf("ERROR: User %s has insufficient permissions to use command.", message.Author.Name)}
			}
			return s.routeBuiltin(builtin, args, message)
		}
		return CustomLookup{Name: body}
	}

	for _, egg := range s.Eggs {
		for _, trigger := range egg.Triggers {
			if strings.HasPrefix(message.Content, trigger) {
				return EasterEgg{Egg: egg}
			}
		}
	}
	return Passthrough{}
}

func (s Settings) routeBuiltin(builtin, args string, message Message) Command {
	switch builtin {
	case builtinAdd:
		name, body := splitWord(args)
		name, err := s.ValidateAdd(name, strings.TrimSpace(body))
		if err != nil {
			return Reject{Reply: err.Error()}
		}
		return Add{Name: name, Body: strings.TrimSpace(body)}
	case builtinRemove:
		name, _ := splitWord(args)
		if name == "" {
			return Reject{Reply: fmt.Sprintf("ERROR: %sremove failed - Invalid input format. Use %sremove <command>", s.Prefix, s.Prefix)}
		}
		return Remove{Name: strings.TrimPrefix(name, s.Prefix)}
	case builtinChangeGame:
		game := strings.TrimSpace(args)
		if game == "" {
			return Reject{Reply: "ERROR: Please provide a game name"}
		}
		return ChangeGame{Game: game}
	case builtinChangeNick:
		nickname := strings.TrimSpace(args)
		if nickname == "" {
			return Reject{Reply: "ERROR: Please provide a nickname"}
		}
		return ChangeNick{Nickname: nickname}
	case builtinQuote:
		if message.ReferenceID == nil {
			return Reject{Reply: "ERROR: You need to reply to a message to quote it"}
		}
		return Quote{ReferenceID: *message.ReferenceID}
	}
	return Help{}
}

// ValidateAdd checks a new custom command and returns the name to store it
// under. The error text is the notice shown in chat.
func (s Settings) ValidateAdd(name, body string) (string, error) {
	if name == "" || body == "" {
		return "", fmt.Errorf("ERROR: Invalid format. Use %sadd <command> <response text>", s.Prefix)
	}
	name = strings.TrimPrefix(name, s.Prefix)
	if IsBuiltin(name) {
		return "", errors.New("ERROR: Cannot override hardcoded commands.")
	}
	if !alphanumeric(name) {
		return "", errors.New("ERROR: Command must be alphanumeric with no spaces.")
	}
	if utf8.RuneCountInString(s.Prefix+"remove "+name) >= s.MaxMessageLength {
		return "", errors.New("ERROR: Command is too long.")
	}
	if strings.HasPrefix(body, s.Prefix) {
		return "", fmt.Errorf("ERROR: Command response cannot start with %s", s.Prefix)
	}
	return name, nil
}

func alphanumeric(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// splitWord returns the text up to the first whitespace and the rest with
// leading whitespace removed.
func splitWord(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeftFunc(s[i:], unicode.IsSpace)
}
