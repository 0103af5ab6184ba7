package storage

import (
	"fmt"
	"strings"
)

// OperationKind identifies the kind of queued write
type OperationKind string

const (
	OpInsert OperationKind = "insert"
	OpUpsert OperationKind = "upsert"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
	OpNotify OperationKind = "notify"
)

// Column is a column name paired with a value
type Column struct {
	Name  string
	Value interface{}
}

// Col is shorthand for building a Column
func Col(name string, value interface{}) Column {
	return Column{Name: name, Value: value}
}

// Operation is one queued write
type Operation struct {
	Kind     OperationKind
	Table    string
	Columns  []Column // Values written by insert, upsert and update
	Where    []Column // Equality conditions for update and delete
	Conflict []string // Conflict target for upsert
	Channel  string   // Notification channel
	Payload  string   // Notification payload
}

// QuerySet is an ordered queue of writes executed together by the repository.
// Persist hooks append to it; nothing is written until the set is executed.
type QuerySet struct {
	ops []*Operation
}

// NewQuerySet creates an empty write queue
func NewQuerySet() *QuerySet {
	return &QuerySet{}
}

// Append queues an operation
func (qs *QuerySet) Append(op *Operation) {
	qs.ops = append(qs.ops, op)
}

// Insert queues an INSERT
func (qs *QuerySet) Insert(table string, columns ...Column) {
	qs.Append(&Operation{Kind: OpInsert, Table: table, Columns: columns})
}

// Upsert queues an INSERT ... ON CONFLICT DO UPDATE
func (qs *QuerySet) Upsert(table string, conflict []string, columns ...Column) {
	qs.Append(&Operation{Kind: OpUpsert, Table: table, Conflict: conflict, Columns: columns})
}

// Update queues an UPDATE
func (qs *QuerySet) Update(table string, set []Column, where []Column) {
	qs.Append(&Operation{Kind: OpUpdate, Table: table, Columns: set, Where: where})
}

// Delete queues a DELETE
func (qs *QuerySet) Delete(table string, where ...Column) {
	qs.Append(&Operation{Kind: OpDelete, Table: table, Where: where})
}

// Notify queues a pg_notify call, delivered when the transaction commits
func (qs *QuerySet) Notify(channel, payload string) {
	qs.Append(&Operation{Kind: OpNotify, Channel: channel, Payload: payload})
}

// Operations returns the queued operations in order
func (qs *QuerySet) Operations() []*Operation {
	return qs.ops
}

// Len returns the number of queued operations
func (qs *QuerySet) Len() int {
	return len(qs.ops)
}

// Filter returns the operations of the given kind on the given table
func (qs *QuerySet) Filter(kind OperationKind, table string) []*Operation {
	var result []*Operation
	for _, op := range qs.ops {
		if op.Kind == kind && op.Table == table {
			result = append(result, op)
		}
	}
	return result
}

// Value returns the value of a named column (written or matched)
func (op *Operation) Value(name string) (interface{}, bool) {
	for _, c := range op.Columns {
		if c.Name == name {
			return c.Value, true
		}
	}
	for _, c := range op.Where {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// SQL renders the operation for PostgreSQL
func (op *Operation) SQL() (string, []interface{}, error) {
	switch op.Kind {
	case OpInsert, OpUpsert:
		if op.Table == "" || len(op.Columns) == 0 {
			return "", nil, fmt.Errorf("%s requires a table and columns", op.Kind)
		}
		names := make([]string, 0, len(op.Columns))
		placeholders := make([]string, 0, len(op.Columns))
		args := make([]interface{}, 0, len(op.Columns))
		for i, c := range op.Columns {
			names = append(names, c.Name)
			placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
			args = append(args, c.Value)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			op.Table, strings.Join(names, ", "), strings.Join(placeholders, ", "))
		if op.Kind == OpUpsert {
			if len(op.Conflict) == 0 {
				return "", nil, fmt.Errorf("upsert on %s requires a conflict target", op.Table)
			}
			var updates []string
			for _, c := range op.Columns {
				if contains(op.Conflict, c.Name) {
					continue
				}
				updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c.Name, c.Name))
			}
			if len(updates) == 0 {
				query += fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", strings.Join(op.Conflict, ", "))
			} else {
				query += fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s",
					strings.Join(op.Conflict, ", "), strings.Join(updates, ", "))
			}
		}
		return query, args, nil

	case OpUpdate:
		if op.Table == "" || len(op.Columns) == 0 || len(op.Where) == 0 {
			return "", nil, fmt.Errorf("update requires a table, columns and conditions")
		}
		var sets []string
		args := make([]interface{}, 0, len(op.Columns)+len(op.Where))
		for _, c := range op.Columns {
			args = append(args, c.Value)
			sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, len(args)))
		}
		where, args := whereClause(op.Where, args)
		return fmt.Sprintf("UPDATE %s SET %s WHERE %s", op.Table, strings.Join(sets, ", "), where), args, nil

	case OpDelete:
		if op.Table == "" || len(op.Where) == 0 {
			return "", nil, fmt.Errorf("delete requires a table and conditions")
		}
		where, args := whereClause(op.Where, nil)
		return fmt.Sprintf("DELETE FROM %s WHERE %s", op.Table, where), args, nil

	case OpNotify:
		if op.Channel == "" {
			return "", nil, fmt.Errorf("notify requires a channel")
		}
		return "SELECT pg_notify($1, $2)", []interface{}{op.Channel, op.Payload}, nil
	}

	return "", nil, fmt.Errorf("unknown operation kind: %s", op.Kind)
}

func whereClause(conds []Column, args []interface{}) (string, []interface{}) {
	parts := make([]string, 0, len(conds))
	for _, c := range conds {
		args = append(args, c.Value)
		parts = append(parts, fmt.Sprintf("%s = $%d", c.Name, len(args)))
	}
	return strings.Join(parts, " AND "), args
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
