// Package store persists custom commands. Every guild owns an isolated
// namespace keyed by command name.
package store

import (
	"errors"
	"fmt"
	"golang.org/x/net/context"
	"net/url"
	"strings"
)

// ErrUnavailable wraps every backend failure so callers can answer with a
// generic notice instead of failing the handler.
var ErrUnavailable = errors.New("command store unavailable")

type Command struct {
	Name    string `bson:"_id" mapstructure:"name"`
	Content string `bson:"content" mapstructure:"content"`
}

type LookupResult struct {
	Found   bool
	Content string
}

func Found(content string) LookupResult {
	return LookupResult{Found: true, Content: content}
}

var NotFound = LookupResult{}

type Store interface {
	// AddCommand upserts name in guildID and reports whether no document existed before.
	AddCommand(ctx context.Context, guildID, name, content string) (isNew bool, err error)
	// RemoveCommand reports false when name did not exist.
	RemoveCommand(ctx context.Context, guildID, name string) (removed bool, err error)
	GetCommand(ctx context.Context, guildID, name string) (LookupResult, error)
	// ListCommands returns every command of guildID sorted by name.
	ListCommands(ctx context.Context, guildID string) ([]Command, error)
	Close(ctx context.Context) error
}

// Open picks a backend from the scheme of uri.
func Open(ctx context.Context, uri string) (Store, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok {
		return nil, fmt.Errorf("database uri %q has no scheme", uri)
	}
	switch scheme {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, uri, DefaultMongoDatabase)
	case "neo4j", "neo4j+s", "neo4j+ssc", "bolt", "bolt+s", "bolt+ssc":
		parsed, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parse neo4j uri: %w", err)
		}
		user := parsed.User.Username()
		password, _ := parsed.User.Password()
		database := strings.TrimPrefix(parsed.Path, "/")
		parsed.User = nil
		parsed.Path = ""
		return OpenNeo4j(ctx, parsed.String(), user, password, database)
	case "sqlite":
		return OpenSQLite(ctx, strings.TrimPrefix(strings.TrimPrefix(uri, "sqlite:"), "//"))
	case "file":
		return OpenSQLite(ctx, uri)
	}
	return nil, fmt.Errorf("unsupported database scheme %q", scheme)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
