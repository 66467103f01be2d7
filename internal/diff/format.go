package diff

import (
	"fmt"
	"os"
	"strings"
)

// String returns a string representation of all differences between two
// schema graphs.
func (d *SchemaDiff) String() string {
	if d.IsEmpty() {
		return "No differences detected."
	}

	var sb strings.Builder
	sb.WriteString("Schema differences:\n")

	if len(d.AddedTables) > 0 {
		sb.WriteString("\nAdded tables:\n")
		for _, at := range d.AddedTables {
			sb.WriteString(fmt.Sprintf("  - %s (%d fields)\n", at.Name, len(at.Fields)))
		}
	}

	if len(d.RemovedTables) > 0 {
		sb.WriteString("\nRemoved tables:\n")
		for _, rt := range d.RemovedTables {
			sb.WriteString(fmt.Sprintf("  - %s\n", rt.Name))
		}
	}

	if len(d.ModifiedTables) > 0 {
		sb.WriteString("\nModified tables:\n")
		for _, mt := range d.ModifiedTables {
			writeTableDiff(&sb, mt)
		}
	}

	return sb.String()
}

func writeTableDiff(sb *strings.Builder, mt *TableDiff) {
	sb.WriteString(fmt.Sprintf("\n  - %s\n", mt.Name))

	if len(mt.AddedFields) > 0 {
		sb.WriteString("    Added fields:\n")
		for _, f := range mt.AddedFields {
			sb.WriteString(fmt.Sprintf("      - %s: %s\n", f.Name, f.Type))
		}
	}

	if len(mt.RemovedFields) > 0 {
		sb.WriteString("    Removed fields:\n")
		for _, f := range mt.RemovedFields {
			sb.WriteString(fmt.Sprintf("      - %s: %s\n", f.Name, f.Type))
		}
	}

	if len(mt.ModifiedFields) > 0 {
		sb.WriteString("    Modified fields:\n")
		for _, mf := range mt.ModifiedFields {
			sb.WriteString(fmt.Sprintf("      - %s:\n", mf.Name))
			for _, c := range mf.Changes {
				sb.WriteString(fmt.Sprintf("        - %s: %q -> %q\n", c.Attribute, c.Old, c.New))
			}
		}
	}
}

// SaveToFile writes the String form of the diff to path.
// 0644 permissions means read/write for owner, read for group and others.
func (d *SchemaDiff) SaveToFile(path string) error {
	return os.WriteFile(path, []byte(d.String()), 0644)
}

// Summary counts the changes in a diff.
type Summary struct {
	AddedTables    int `json:"addedTables"`
	RemovedTables  int `json:"removedTables"`
	ModifiedTables int `json:"modifiedTables"`
	AddedFields    int `json:"addedFields"`
	RemovedFields  int `json:"removedFields"`
	ModifiedFields int `json:"modifiedFields"`
}

// Summarize counts the changes in d. Fields of added and removed tables count
// as added and removed fields.
func (d *SchemaDiff) Summarize() Summary {
	s := Summary{
		AddedTables:    len(d.AddedTables),
		RemovedTables:  len(d.RemovedTables),
		ModifiedTables: len(d.ModifiedTables),
	}
	for _, t := range d.AddedTables {
		s.AddedFields += len(t.Fields)
	}
	for _, t := range d.RemovedTables {
		s.RemovedFields += len(t.Fields)
	}
	for _, td := range d.ModifiedTables {
		s.AddedFields += len(td.AddedFields)
		s.RemovedFields += len(td.RemovedFields)
		s.ModifiedFields += len(td.ModifiedFields)
	}
	return s
}
