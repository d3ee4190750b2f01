// Package protocol turns SQL text into statements the engine can route: the
// external catalog DDL recognized by pattern, and INSERT/UPDATE/DELETE parsed
// with the vitess SQL parser.
package protocol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/rs/zerolog/log"
	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	// External catalog DDL is not known to vitess
	createDatabasePattern  = regexp.MustCompile(`(?is)^\s*CREATE\s+EXTERNAL\s+DATABASE\s+(IF\s+NOT\s+EXISTS\s+)?(\w+)\s+FROM\s+(\w+)(?:\s+OPTIONS\s*\((.*)\))?\s*;?\s*$`)
	createTablePattern     = regexp.MustCompile(`(?is)^\s*CREATE\s+EXTERNAL\s+TABLE\s+(IF\s+NOT\s+EXISTS\s+)?([\w\.]+)\s+FROM\s+(\w+)(?:\s+OPTIONS\s*\((.*)\))?\s*;?\s*$`)
	alterAccessModePattern = regexp.MustCompile(`(?is)^\s*ALTER\s+(DATABASE|TABLE)\s+([\w\.]+)\s+SET\s+ACCESS_MODE\s+TO\s+(\w+)\s*;?\s*$`)
	dropExternalPattern    = regexp.MustCompile(`(?is)^\s*DROP\s+EXTERNAL\s+(DATABASE|TABLE)\s+(IF\s+EXISTS\s+)?([\w\.]+(?:\s*,\s*[\w\.]+)*)\s*;?\s*$`)
	showExternalPattern    = regexp.MustCompile(`(?is)^\s*SHOW\s+EXTERNAL\s+(DATABASES|TABLES)\s*;?\s*$`)

	// Loose prefixes so near misses report a syntax error instead of "unsupported"
	externalDDLPrefix = regexp.MustCompile(`(?is)^\s*(CREATE|DROP|SHOW)\s+EXTERNAL\b`)
	accessModePrefix  = regexp.MustCompile(`(?is)^\s*ALTER\s+(DATABASE|TABLE)\s+\S+\s+SET\s+ACCESS_MODE\b`)

	// key = 'value' or key 'value', separated by commas
	optionPattern = regexp.MustCompile(`(?s)\s*(\w+)\s*=?\s*'((?:[^']|'')*)'\s*(,|$)`)

	// vitess accepts at most db.table; a leading database is split off first
	threePartTargetPattern = regexp.MustCompile(`(?is)^(\s*(?:INSERT\s+INTO|UPDATE|DELETE\s+FROM)\s+)(\w+)\.(\w+\.\w+)\b`)
)

// Parser classifies and parses statements. It is safe for concurrent use.
type Parser struct {
	parser *sqlparser.Parser
}

// NewParser creates a parser backed by vitess
func NewParser() (*Parser, error) {
	p, err := sqlparser.New(sqlparser.Options{})
	if err != nil {
		return nil, err
	}
	return &Parser{parser: p}, nil
}

// Parse classifies sql and extracts everything the engine needs to route it.
func (p *Parser) Parse(sql string) (*Statement, error) {
	if stmt, ok, err := classifyByPattern(sql); ok || err != nil {
		return stmt, err
	}

	if externalDDLPrefix.MatchString(sql) || accessModePrefix.MatchString(sql) {
		return nil, &SyntaxError{SQL: sql, Err: fmt.Errorf("malformed external catalog statement")}
	}

	return p.parseMutation(sql)
}

func classifyByPattern(sql string) (*Statement, bool, error) {
	if m := createDatabasePattern.FindStringSubmatch(sql); m != nil {
		opts, err := parseOptions(m[4])
		if err != nil {
			return nil, true, &SyntaxError{SQL: sql, Err: err}
		}
		return &Statement{
			Type:        StatementCreateDatabase,
			SQL:         sql,
			Database:    strings.ToLower(m[2]),
			Kind:        connector.NormalizeKind(m[3]),
			Options:     opts,
			IfNotExists: m[1] != "",
		}, true, nil
	}

	if m := createTablePattern.FindStringSubmatch(sql); m != nil {
		name, err := catalog.ParseTableName(m[2])
		if err != nil {
			return nil, true, &SyntaxError{SQL: sql, Err: err}
		}
		opts, err := parseOptions(m[4])
		if err != nil {
			return nil, true, &SyntaxError{SQL: sql, Err: err}
		}
		return &Statement{
			Type:        StatementCreateTable,
			SQL:         sql,
			Tables:      []catalog.TableName{name},
			Kind:        connector.NormalizeKind(m[3]),
			Options:     opts,
			IfNotExists: m[1] != "",
		}, true, nil
	}

	if m := alterAccessModePattern.FindStringSubmatch(sql); m != nil {
		mode, err := catalog.ParseAccessMode(m[3])
		if err != nil {
			return nil, true, &SyntaxError{SQL: sql, Err: err}
		}

		if strings.EqualFold(m[1], "DATABASE") {
			if strings.Contains(m[2], ".") {
				return nil, true, &SyntaxError{SQL: sql, Err: fmt.Errorf("invalid database name %q", m[2])}
			}
			return &Statement{Type: StatementAlterDatabase, SQL: sql, Database: strings.ToLower(m[2]), Mode: mode}, true, nil
		}

		name, err := catalog.ParseTableName(m[2])
		if err != nil {
			return nil, true, &SyntaxError{SQL: sql, Err: err}
		}
		return &Statement{Type: StatementAlterTable, SQL: sql, Tables: []catalog.TableName{name}, Mode: mode}, true, nil
	}

	if m := dropExternalPattern.FindStringSubmatch(sql); m != nil {
		stmt := &Statement{SQL: sql, IfExists: m[2] != ""}
		names := strings.Split(m[3], ",")

		if strings.EqualFold(m[1], "DATABASE") {
			if len(names) != 1 || strings.Contains(names[0], ".") {
				return nil, true, &SyntaxError{SQL: sql, Err: fmt.Errorf("DROP EXTERNAL DATABASE takes one name")}
			}
			stmt.Type = StatementDropDatabase
			stmt.Database = strings.ToLower(strings.TrimSpace(names[0]))
			return stmt, true, nil
		}

		stmt.Type = StatementDropTable
		for _, n := range names {
			name, err := catalog.ParseTableName(n)
			if err != nil {
				return nil, true, &SyntaxError{SQL: sql, Err: err}
			}
			stmt.Tables = append(stmt.Tables, name)
		}
		return stmt, true, nil
	}

	if m := showExternalPattern.FindStringSubmatch(sql); m != nil {
		if strings.EqualFold(m[1], "DATABASES") {
			return &Statement{Type: StatementShowDatabases, SQL: sql}, true, nil
		}
		return &Statement{Type: StatementShowTables, SQL: sql}, true, nil
	}

	return nil, false, nil
}

// parseOptions reads the body of an OPTIONS (...) clause
func parseOptions(body string) (connector.Options, error) {
	opts := connector.Options{}
	rest := strings.TrimSpace(body)

	for rest != "" {
		m := optionPattern.FindStringSubmatchIndex(rest)
		if m == nil || m[0] != 0 {
			return nil, fmt.Errorf("invalid OPTIONS near %q", truncateSQLForLog(rest, 20))
		}
		key := strings.ToLower(rest[m[2]:m[3]])
		opts[key] = strings.ReplaceAll(rest[m[4]:m[5]], "''", "'")
		rest = strings.TrimSpace(rest[m[1]:])
	}

	return opts, nil
}

func (p *Parser) parseMutation(sql string) (*Statement, error) {
	database := ""
	text := sql
	if m := threePartTargetPattern.FindStringSubmatchIndex(sql); m != nil {
		database = sql[m[4]:m[5]]
		text = sql[:m[4]] + sql[m[6]:]
	}

	ast, err := p.parser.Parse(text)
	if err != nil {
		log.Debug().Err(err).Str("sql", truncateSQLForLog(sql, 100)).Msg("Statement rejected by parser")
		return nil, &SyntaxError{SQL: sql, Err: err}
	}

	var (
		stmtType StatementType
		target   sqlparser.TableName
		ok       bool
	)

	switch parsed := ast.(type) {
	case *sqlparser.Insert:
		if parsed.Action == sqlparser.ReplaceAct {
			return nil, fmt.Errorf("%w: REPLACE", ErrUnsupportedStatement)
		}
		stmtType = StatementInsert
		if parsed.Table != nil {
			target, ok = parsed.Table.Expr.(sqlparser.TableName)
		}

	case *sqlparser.Update:
		stmtType = StatementUpdate
		target, ok = firstTableName(parsed.TableExprs)

	case *sqlparser.Delete:
		stmtType = StatementDelete
		target, ok = firstTableName(parsed.TableExprs)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedStatement, truncateSQLForLog(strings.TrimSpace(sql), 40))
	}

	if !ok {
		return nil, &SyntaxError{SQL: sql, Err: fmt.Errorf("statement has no single target table")}
	}

	m, err := newMutation(stmtType, ast, target, database)
	if err != nil {
		return nil, &SyntaxError{SQL: sql, Err: err}
	}

	return &Statement{
		Type:     stmtType,
		SQL:      sql,
		Tables:   []catalog.TableName{m.Table},
		Mutation: m,
	}, nil
}

func firstTableName(exprs []sqlparser.TableExpr) (sqlparser.TableName, bool) {
	if len(exprs) != 1 {
		return sqlparser.TableName{}, false
	}
	aliased, ok := exprs[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return sqlparser.TableName{}, false
	}
	tn, ok := aliased.Expr.(sqlparser.TableName)
	return tn, ok
}
