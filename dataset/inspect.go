package dataset

// ColumnInfo summarizes one column for the inspect command.
type ColumnInfo struct {
	Name    string
	Kind    Kind
	Missing int
}

// Schema lists every column with its kind and missing-cell count.
func (t Table) Schema() []ColumnInfo {
	names := t.Names()
	types := t.df.Types()
	out := make([]ColumnInfo, len(names))
	for i, name := range names {
		missing, _ := t.MissingCount(name)
		out[i] = ColumnInfo{Name: name, Kind: kindOf(types[i]), Missing: missing}
	}
	return out
}

// NumericNames returns the float and int columns in table order.
func (t Table) NumericNames() []string {
	var out []string
	for _, c := range t.Schema() {
		if c.Kind.IsNumeric() {
			out = append(out, c.Name)
		}
	}
	return out
}

// Describe returns summary statistics for every column as a table whose
// first column names the statistic (mean, median, stddev, min, quartiles,
// max).
func (t Table) Describe() Table {
	return Table{df: t.df.Describe()}
}
