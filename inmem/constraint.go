package inmem

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buzkaaclicker/appsrv"
	"github.com/tidwall/buntdb"
	"github.com/tidwall/gjson"
)

// checkUnique fails with ErrDuplicateKey when another document of table
// shares the values of a unique field combination with doc.
func checkUnique(tx *buntdb.Tx, table string, key string, doc string) error {
	own := recordKey(table, key)
	for _, c := range uniqueConstraints {
		if c.table != table {
			continue
		}
		values := make([]gjson.Result, len(c.fields))
		for i, field := range c.fields {
			values[i] = gjson.Get(doc, field)
		}

		conflict := false
		iter := func(k, v string) bool {
			if k == own {
				return true
			}
			for i, field := range c.fields {
				other := gjson.Get(v, field)
				if other.Type != values[i].Type || other.Raw != values[i].Raw {
					return true
				}
			}
			conflict = true
			return false
		}
		if err := walkEqual(tx, table, c.fields[0], values[0].Value(), iter); err != nil {
			return err
		}
		if conflict {
			raw := make([]string, len(values))
			for i, v := range values {
				raw[i] = v.Raw
			}
			return fmt.Errorf("%s (%s)=(%s): %w", table,
				strings.Join(c.fields, ", "), strings.Join(raw, ", "), appsrv.ErrDuplicateKey)
		}
	}
	return nil
}

// checkUnreferenced refuses to remove a row other documents still point to.
func checkUnreferenced(tx *buntdb.Tx, table string, key string) error {
	for _, ref := range references {
		if ref.target != table {
			continue
		}
		referenced := false
		err := walkEqual(tx, ref.table, ref.field, key, func(k, v string) bool {
			if gjson.Get(v, ref.field).Str != key {
				return true
			}
			referenced = true
			return false
		})
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: %s %q is still referenced by %s.%s",
				appsrv.ErrPersistence, table, key, ref.table, ref.field)
		}
	}
	return nil
}

// walkEqual visits the documents of table whose field may equal value, through
// the JSON index of the field when there is one.
func walkEqual(tx *buntdb.Tx, table string, field string, value interface{}, iter func(k, v string) bool) error {
	index, ok := indexFor(table, field)
	if !ok {
		return tx.AscendKeys(table+":*", iter)
	}
	pivot, err := json.Marshal(map[string]interface{}{field: value})
	if err != nil {
		return fmt.Errorf("index pivot: %w", err)
	}
	return tx.AscendEqual(index, string(pivot), iter)
}
