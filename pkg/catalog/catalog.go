// Package catalog implements the in-memory table registry: the mapping
// from table name and id to a heap file, schema, and primary key field.
package catalog

import (
	"fmt"
	"sync"

	"storemy/pkg/dberrors"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/tuple"
)

// entry is everything the catalog knows about one table.
type entry struct {
	file       page.DbFile
	name       string
	primaryKey string
}

// Catalog is the process-lifetime, in-memory registry of tables. It is the
// single source of truth the query executor and buffer pool use to resolve
// a table id to its storage and schema.
type Catalog struct {
	mu      sync.RWMutex
	byID    map[primitives.TableID]*entry
	byName  map[string]primitives.TableID
}

// New constructs an empty catalog.
func New() *Catalog {
	return &Catalog{
		byID:   make(map[primitives.TableID]*entry),
		byName: make(map[string]primitives.TableID),
	}
}

// AddTable registers file under name with the given primary key field name
// (which may be empty if the table has none). A name collision overwrites
// the earlier binding; an empty name is legal and simply cannot be looked
// up by GetTableID.
func (c *Catalog) AddTable(file page.DbFile, name string, primaryKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := file.GetID()
	c.byID[id] = &entry{file: file, name: name, primaryKey: primaryKey}
	if name != "" {
		c.byName[name] = id
	}
}

// GetTableID looks up a table by name, failing when no table is registered
// under that name.
func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return 0, dberrors.NewNoSuchElement(fmt.Sprintf("no table named %q", name))
	}
	return id, nil
}

// GetDatabaseFile returns the DbFile backing table id.
func (c *Catalog) GetDatabaseFile(id primitives.TableID) (page.DbFile, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.file, nil
}

// GetTupleDesc returns the schema of table id.
func (c *Catalog) GetTupleDesc(id primitives.TableID) (*tuple.TupleDescription, error) {
	e, err := c.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.file.GetTupleDesc(), nil
}

// GetPrimaryKey returns the primary key field name of table id, which may
// be empty.
func (c *Catalog) GetPrimaryKey(id primitives.TableID) (string, error) {
	e, err := c.lookup(id)
	if err != nil {
		return "", err
	}
	return e.primaryKey, nil
}

// GetTableName returns the registered name of table id, which may be
// empty.
func (c *Catalog) GetTableName(id primitives.TableID) (string, error) {
	e, err := c.lookup(id)
	if err != nil {
		return "", err
	}
	return e.name, nil
}

// TableIDIter returns every registered table id, in no particular order.
func (c *Catalog) TableIDIter() []primitives.TableID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]primitives.TableID, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	return ids
}

// Clear removes every registered table.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[primitives.TableID]*entry)
	c.byName = make(map[string]primitives.TableID)
}

func (c *Catalog) lookup(id primitives.TableID) (*entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	if !ok {
		return nil, dberrors.NewNoSuchElement(fmt.Sprintf("no table with id %d", id))
	}
	return e, nil
}
