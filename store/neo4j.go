package store

import (
	"github.com/fuad-daoud/pastabot/layers/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/net/context"
)

const commandLabel = "CustomCommand"

type Neo4j struct {
	conn *db.Connection
}

func OpenNeo4j(ctx context.Context, uri, user, password, database string) (*Neo4j, error) {
	conn, err := db.NewConnection(ctx, uri, user, password, database)
	if err != nil {
		return nil, unavailable("connect neo4j", err)
	}
	s := &Neo4j{conn: conn}
	if err = s.migrate(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, unavailable("migrate neo4j", err)
	}
	return s, nil
}

func (s *Neo4j) migrate(ctx context.Context) error {
	return s.conn.Transaction(ctx, func(write db.Write) error {
		_, err := write(nil,
			"CREATE CONSTRAINT custom_command_key IF NOT EXISTS",
			"FOR (c:"+commandLabel+") REQUIRE (c.guild, c.name) IS UNIQUE")
		return err
	})
}

func (s *Neo4j) AddCommand(ctx context.Context, guildID, name, content string) (bool, error) {
	var created int
	err := s.conn.Transaction(ctx, func(write db.Write) error {
		summary, err := write(map[string]any{"guild": guildID, "name": name, "content": content},
			db.Merge(db.Node("c", commandLabel, "guild", "name")),
			db.Set("c", "content"))
		if err != nil {
			return err
		}
		created = summary.Counters().NodesCreated()
		return nil
	})
	if err != nil {
		return false, unavailable("add command", err)
	}
	return created > 0, nil
}

func (s *Neo4j) RemoveCommand(ctx context.Context, guildID, name string) (bool, error) {
	var deleted int
	err := s.conn.Transaction(ctx, func(write db.Write) error {
		summary, err := write(map[string]any{"guild": guildID, "name": name},
			db.Match(db.Node("c", commandLabel, "guild", "name")),
			db.Delete("c"))
		if err != nil {
			return err
		}
		deleted = summary.Counters().NodesDeleted()
		return nil
	})
	if err != nil {
		return false, unavailable("remove command", err)
	}
	return deleted > 0, nil
}

func (s *Neo4j) GetCommand(ctx context.Context, guildID, name string) (LookupResult, error) {
	result, err := s.query(ctx, map[string]any{"guild": guildID, "name": name},
		db.Match(db.Node("c", commandLabel, "guild", "name")),
		db.Return("c.name AS name", "c.content AS content"))
	if err != nil {
		return NotFound, unavailable("get command", err)
	}
	command, ok, err := db.ParseFirst[Command](result.Records)
	if err != nil {
		return NotFound, unavailable("get command", err)
	}
	if !ok {
		return NotFound, nil
	}
	return Found(command.Content), nil
}

func (s *Neo4j) ListCommands(ctx context.Context, guildID string) ([]Command, error) {
	result, err := s.query(ctx, map[string]any{"guild": guildID},
		db.Match(db.Node("c", commandLabel, "guild")),
		db.Return("c.name AS name", "c.content AS content"),
		db.OrderBy("name"))
	if err != nil {
		return nil, unavailable("list commands", err)
	}
	commands, err := db.ParseAll[Command](result.Records)
	if err != nil {
		return nil, unavailable("list commands", err)
	}
	return commands, nil
}

func (s *Neo4j) query(ctx context.Context, params map[string]any, stmts ...string) (*neo4j.EagerResult, error) {
	return s.conn.Query(ctx, params, stmts...)
}

func (s *Neo4j) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}
