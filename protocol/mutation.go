package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"vitess.io/vitess/go/vt/sqlparser"
)

// Mutation is a parsed INSERT, UPDATE or DELETE against one table.
type Mutation struct {
	Family connector.Family

	// Table is the target as written: Database is the first qualifier, if any.
	// The binder decides whether it names an external database.
	Table catalog.TableName

	// INSERT ... VALUES only
	Columns []string
	Rows    [][]interface{}

	ast    sqlparser.Statement
	target sqlparser.TableName
}

func newMutation(t StatementType, ast sqlparser.Statement, target sqlparser.TableName, database string) (*Mutation, error) {
	m := &Mutation{ast: ast, target: target}

	switch t {
	case StatementInsert:
		m.Family = connector.FamilyInsert
	case StatementUpdate:
		m.Family = connector.FamilyUpdate
	case StatementDelete:
		m.Family = connector.FamilyDelete
	}

	name := catalog.TableName{Table: target.Name.String()}
	if database != "" {
		name.Database = database
		name.Schema = target.Qualifier.String()
	} else if target.Qualifier.NotEmpty() {
		name.Database = target.Qualifier.String()
	}
	m.Table = name.Normalize()

	if ins, ok := ast.(*sqlparser.Insert); ok {
		for _, col := range ins.Columns {
			m.Columns = append(m.Columns, col.String())
		}

		values, ok := ins.Rows.(sqlparser.Values)
		if !ok {
			return nil, fmt.Errorf("only INSERT ... VALUES is supported")
		}
		rows, err := extractRows(values, len(m.Columns))
		if err != nil {
			return nil, err
		}
		m.Rows = rows
	}

	return m, nil
}

func extractRows(values sqlparser.Values, columns int) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(values))
	for i, tuple := range values {
		if columns > 0 && len(tuple) != columns {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i+1, len(tuple), columns)
		}

		row := make([]interface{}, len(tuple))
		for j, expr := range tuple {
			v, err := literalValue(expr)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// literalValue converts a constant expression to a Go value
func literalValue(expr sqlparser.Expr) (interface{}, error) {
	switch e := expr.(type) {
	case *sqlparser.NullVal:
		return nil, nil

	case sqlparser.BoolVal:
		return bool(e), nil

	case *sqlparser.UnaryExpr:
		if e.Operator != sqlparser.UMinusOp {
			break
		}
		v, err := literalValue(e.Expr)
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}

	case *sqlparser.Literal:
		switch e.Type {
		case sqlparser.StrVal:
			return e.Val, nil
		case sqlparser.IntVal:
			if v, err := strconv.ParseInt(e.Val, 10, 64); err == nil {
				return v, nil
			}
			return e.Val, nil
		case sqlparser.FloatVal, sqlparser.DecimalVal:
			if v, err := strconv.ParseFloat(e.Val, 64); err == nil {
				return v, nil
			}
			return e.Val, nil
		case sqlparser.HexVal:
			return e.HexDecode()
		case sqlparser.HexNum:
			return strconv.ParseInt(e.Val, 0, 64)
		}
	}

	return nil, fmt.Errorf("only literal values are supported, got %s", sqlparser.String(expr))
}

// Render returns the statement text with the target table renamed to remote.
// The parsed statement is left untouched.
func (m *Mutation) Render(remote string) string {
	ast := sqlparser.CloneStatement(m.ast)
	replacement := sqlparser.TableName{Name: sqlparser.NewIdentifierCS(remote)}

	sqlparser.Rewrite(ast, func(cursor *sqlparser.Cursor) bool {
		if tn, ok := cursor.Node().(sqlparser.TableName); ok && m.isTarget(tn) {
			cursor.Replace(replacement)
		}
		return true
	}, nil)

	return sqlparser.String(ast)
}

func (m *Mutation) isTarget(tn sqlparser.TableName) bool {
	return strings.EqualFold(tn.Name.String(), m.target.Name.String()) &&
		strings.EqualFold(tn.Qualifier.String(), m.target.Qualifier.String())
}
