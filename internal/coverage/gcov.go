package coverage

// ParseGcov merges the output of `gcov --json-format --stdout` into t.
//
// The execution count decides the verdict: a zero count marks the line
// uncovered and a non-zero count marks it covered, whatever
// unexecuted_block says. The flag must still be present and boolean.
// Files rejected by filter are skipped without looking at their lines.
//
// ParseGcov is atomic: on error t is left exactly as it was.
func ParseGcov(t Table, data []byte, filter FileFilter) error {
	staged, err := parseGcov(data, filter)
	if err != nil {
		return err
	}
	t.MergeTable(staged)
	return nil
}

func parseGcov(data []byte, filter FileFilter) (Table, error) {
	r := reader{schema: SchemaGcov}
	root, err := r.root(data)
	if err != nil {
		return nil, err
	}
	files, err := r.array(root, "files", "files", "")
	if err != nil {
		return nil, err
	}

	staged := NewTable()
	for i, entry := range files {
		path := index("files", i)
		if !entry.IsObject() {
			return nil, r.errorf(path, "", "isn't object")
		}
		name, err := r.str(entry, "file", path+".file", "")
		if err != nil {
			return nil, err
		}
		if !filter.Accept(name) {
			continue
		}
		staged.Touch(name)

		lines, err := r.array(entry, "lines", path+".lines", name)
		if err != nil {
			return nil, err
		}
		for j, line := range lines {
			lpath := index(path+".lines", j)
			if !line.IsObject() {
				return nil, r.errorf(lpath, name, "isn't object")
			}
			number, err := r.uint(line, "line_number", lpath+".line_number", name)
			if err != nil {
				return nil, err
			}
			count, err := r.uint(line, "count", lpath+".count", name)
			if err != nil {
				return nil, err
			}
			if _, err := r.boolean(line, "unexecuted_block", lpath+".unexecuted_block", name); err != nil {
				return nil, err
			}
			staged.Merge(name, uint(number), count == 0)
		}
	}
	return staged, nil
}
