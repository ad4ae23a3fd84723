package ownership

import (
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Callback adds the owner filter to statements on owned tables
type Callback struct {
	tables []string
}

// NewCallback creates a callback for the given tables; no tables means DefaultTables
func NewCallback(tables ...string) *Callback {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	return &Callback{tables: tables}
}

// Register installs the callbacks on db
func (c *Callback) Register(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("ownership:before_query", c.addOwnerFilter); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("ownership:before_row", c.addOwnerFilter); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("ownership:before_update", c.addOwnerFilter); err != nil {
		return err
	}
	// Creates are not filtered; services set account_id explicitly.
	return db.Callback().Delete().Before("gorm:delete").Register("ownership:before_delete", c.addOwnerFilter)
}

// Enable registers the default callback on db
func Enable(db *gorm.DB) error {
	return NewCallback().Register(db)
}

func (c *Callback) addOwnerFilter(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Context == nil || stmt.Unscoped || !slices.Contains(c.tables, stmt.Table) {
		return
	}

	accountID, ok, err := AccountFromContext(stmt.Context)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	if !ok || c.hasOwnerCondition(stmt) {
		return
	}

	stmt.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: Column},
				Value:  accountID,
			},
		},
	})
}

func (c *Callback) hasOwnerCondition(stmt *gorm.Statement) bool {
	whereClause, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := whereClause.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if exprHasOwner(expr) {
			return true
		}
	}
	return false
}

func exprHasOwner(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == Column
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if exprHasOwner(cond) {
				return true
			}
		}
	case clause.Expr:
		// plain string conditions such as "account_id = ? AND ..."
		return strings.HasPrefix(strings.TrimSpace(e.SQL), Column+" =")
	}
	return false
}
