package surreal

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"

	"github.com/surrealdb/surrealdb.go"
)

type Client struct {
	db *surrealdb.DB
}

// identifierRegex ensures that table names and fields only contain alphanumeric characters and underscores
var identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validateIdentifier(s string) error {
	if !identifierRegex.MatchString(s) {
		return fmt.Errorf("invalid identifier: %s", s)
	}
	return nil
}

func NewClient(host, user, pass, namespace, database string) (*Client, error) {
	db, err := surrealdb.New(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create surrealdb client: %w", err)
	}

	if _, err = db.SignIn(context.Background(), map[string]interface{}{
		"user": user,
		"pass": pass,
	}); err != nil {
		return nil, fmt.Errorf("failed to signin to surrealdb: %w", err)
	}

	if err = db.Use(context.Background(), namespace, database); err != nil {
		return nil, fmt.Errorf("failed to use surrealdb namespace/database: %w", err)
	}

	return &Client{db: db}, nil
}

func (c *Client) Close() {
	c.db.Close(context.Background())
}

func (c *Client) Query(ctx context.Context, sql string, vars map[string]interface{}) (interface{}, error) {
	result, err := surrealdb.Query[interface{}](ctx, c.db, sql, vars)
	if err != nil {
		return nil, err
	}

	// Unwrap the result: *RawQueryResponse -> Result field
	rv := reflect.ValueOf(result)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}

	if rv.Kind() == reflect.Struct {
		resField := rv.FieldByName("Result")
		if resField.IsValid() {
			return resField.Interface(), nil
		}
	} else if rv.Kind() == reflect.Slice {
		// Handle slice of results (e.g. []QueryResult)
		if rv.Len() > 0 {
			// Return the result of the last query (or the only one)
			lastElem := rv.Index(rv.Len() - 1)
			if lastElem.Kind() == reflect.Struct {
				resField := lastElem.FieldByName("Result")
				if resField.IsValid() {
					return resField.Interface(), nil
				}
			}
		}
	}

	return result, nil
}

// SelectWhere returns the rows of table matching every filter field.
func (c *Client) SelectWhere(ctx context.Context, table string, filter map[string]interface{}, limit int) ([]interface{}, error) {
	query, vars, err := buildSelect(table, filter, limit)
	if err != nil {
		return nil, err
	}

	result, err := c.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	rows, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}
	return rows, nil
}

// Upsert writes data as the record table:id.
func (c *Client) Upsert(ctx context.Context, table, id string, data map[string]interface{}) error {
	if err := validateIdentifier(table); err != nil {
		return err
	}
	query := fmt.Sprintf("UPSERT type::thing('%s', $id) CONTENT $data;", table)
	_, err := c.Query(ctx, query, map[string]interface{}{
		"id":   id,
		"data": data,
	})
	return err
}

func buildSelect(table string, filter map[string]interface{}, limit int) (string, map[string]interface{}, error) {
	if err := validateIdentifier(table); err != nil {
		return "", nil, err
	}
	whereClause, err := buildWhereClause(filter)
	if err != nil {
		return "", nil, err
	}
	if limit <= 0 {
		limit = 1
	}

	vars := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		vars[k] = v
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d;", table, whereClause, limit), vars, nil
}

func buildWhereClause(filter map[string]interface{}) (string, error) {
	if len(filter) == 0 {
		return "true", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		// Validate filter keys
		if err := validateIdentifier(k); err != nil {
			return "", err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clause := ""
	for i, k := range keys {
		if i > 0 {
			clause += " AND "
		}
		clause += fmt.Sprintf("%s = $%s", k, k)
	}
	return clause, nil
}
