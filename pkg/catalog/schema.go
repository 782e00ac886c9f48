package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storemy/pkg/storage/heap"
	"storemy/pkg/tuple"
	"storemy/pkg/types"
)

// LoadSchema reads a catalog text file, one table per line in the form:
//
//	tablename (field type [pk], field type, ...)
//
// where type is "int" or "string". A field may carry an optional third
// token "pk" marking it the table's primary key. Each table's data file is
// expected at filepath.Join(dir, tablename+".dat"), created if absent.
// Unknown types or annotations abort loading with a diagnostic.
func (c *Catalog) LoadSchema(dir string) error {
	schemaPath := filepath.Join(dir, "catalog.txt")
	f, err := os.Open(schemaPath)
	if err != nil {
		return fmt.Errorf("load schema %q: %w", schemaPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.loadLine(dir, line); err != nil {
			return fmt.Errorf("load schema %q line %d: %w", schemaPath, lineNum, err)
		}
	}
	return scanner.Err()
}

func (c *Catalog) loadLine(dir, line string) error {
	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < open {
		return fmt.Errorf("malformed table declaration %q", line)
	}
	tableName := strings.TrimSpace(line[:open])
	if tableName == "" {
		return fmt.Errorf("table declaration missing a name: %q", line)
	}
	body := line[open+1 : close]

	var fieldTypes []types.Type
	var fieldNames []string
	primaryKey := ""

	for _, rawField := range strings.Split(body, ",") {
		tokens := strings.Fields(rawField)
		if len(tokens) < 2 {
			return fmt.Errorf("malformed field declaration %q", rawField)
		}
		name, kind := tokens[0], tokens[1]
		var t types.Type
		switch kind {
		case "int":
			t = types.IntType
		case "string":
			t = types.StringType
		default:
			return fmt.Errorf("unknown field type %q for field %q", kind, name)
		}
		if len(tokens) >= 3 {
			if tokens[2] != "pk" {
				return fmt.Errorf("unknown field annotation %q for field %q", tokens[2], name)
			}
			primaryKey = name
		}
		fieldTypes = append(fieldTypes, t)
		fieldNames = append(fieldNames, name)
	}

	td, err := tuple.NewTupleDescription(fieldTypes, fieldNames, types.DefaultMaxStringLen)
	if err != nil {
		return err
	}

	dataPath := filepath.Join(dir, tableName+".dat")
	file, err := heap.Open(dataPath, td)
	if err != nil {
		return fmt.Errorf("open data file for table %q: %w", tableName, err)
	}

	c.AddTable(file, tableName, primaryKey)
	return nil
}
