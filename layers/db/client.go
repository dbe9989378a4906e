package db

import (
	"fmt"
	"github.com/fuad-daoud/pastabot/logger/dlog"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/net/context"
	"strings"
)

type Connection struct {
	driver   neo4j.DriverWithContext
	database string
}

type Write func(params map[string]any, stmts ...string) (neo4j.ResultSummary, error)
type TransactionExecute func(write Write) error

func (conn *Connection) Transaction(ctx context.Context, execute TransactionExecute) error {
	session := conn.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: conn.database,
	})
	defer session.Close(ctx)

	transaction, err := session.BeginTransaction(ctx)
	if err != nil {
		dlog.Error("Transaction failed", dlog.Err(err))
		return err
	}

	err = execute(getTxWrite(ctx, transaction))
	if err != nil {
		if err2 := transaction.Rollback(ctx); err2 != nil {
			dlog.Error("Rollback failed", dlog.Err(err2))
		}
		return err
	}
	err = transaction.Commit(ctx)
	if err != nil {
		dlog.Error("Transaction failed", dlog.Err(err))
		return err
	}
	return nil
}

func getTxWrite(ctx context.Context, transaction neo4j.ExplicitTransaction) Write {
	return func(params map[string]any, stmts ...string) (neo4j.ResultSummary, error) {
		stmt := strings.Join(stmts, " ")
		dlog.Debug("Writing", "stmt", stmt)
		result, err := transaction.Run(ctx, stmt, params)
		if err != nil {
			dlog.Error("Transaction run failed", "stmt", stmt, dlog.Err(err))
			return nil, err
		}
		return result.Consume(ctx)
	}
}

func (conn *Connection) Query(ctx context.Context, params map[string]any, stmts ...string) (*neo4j.EagerResult, error) {
	stmt := strings.Join(stmts, " ")
	dlog.Debug("Querying", "stmt", stmt)
	result, err := neo4j.ExecuteQuery(ctx, conn.driver, stmt, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(conn.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		dlog.Error("Error executing query", "stmt", stmt, dlog.Err(err))
		return nil, err
	}
	return result, nil
}

func (conn *Connection) Connect(ctx context.Context, dbUri, dbUser, dbPassword string) error {
	driver, err := neo4j.NewDriverWithContext(dbUri, neo4j.BasicAuth(dbUser, dbPassword, ""))
	if err != nil {
		return fmt.Errorf("create neo4j driver: %w", err)
	}
	if err = driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return fmt.Errorf("connect to neo4j: %w", err)
	}
	conn.driver = driver
	dlog.Info("Connection established.", "URI", redact(dbUri))
	return nil
}

func (conn *Connection) Close(ctx context.Context) error {
	if conn.driver == nil {
		return nil
	}
	err := conn.driver.Close(ctx)
	dlog.Info("db Connection closed.")
	return err
}

// NewConnection connects to dbUri. An empty database selects the server default.
func NewConnection(ctx context.Context, dbUri, dbUser, dbPassword, database string) (*Connection, error) {
	conn := &Connection{database: database}
	if err := conn.Connect(ctx, dbUri, dbUser, dbPassword); err != nil {
		return nil, err
	}
	return conn, nil
}

func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	return scheme + "://" + rest
}
