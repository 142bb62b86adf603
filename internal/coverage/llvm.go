package coverage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Fixed layouts of the llvm-cov export arrays.
const (
	segmentLine = iota
	segmentColumn
	segmentCount
	segmentHasCount
	segmentIsRegionEntry
	segmentIsGapRegion
	segmentMinLen
)

const (
	regionLineStart = iota
	regionColumnStart
	regionLineEnd
	regionColumnEnd
	regionExecutionCount
	regionFileID
	regionExpandedFileID
	regionMinLen
)

// ParseLLVM merges the output of `llvm-cov export -format=text` into t.
//
// Lines come from two places, merged with the same conjunctive rule:
// segments that carry a count, start a region and are not gaps; and the
// start line of every function region. The file filter is applied to each
// file's filename for its segments and, separately, to each function's own
// filename for its regions.
//
// ParseLLVM is atomic: on error t is left exactly as it was.
func ParseLLVM(t Table, data []byte, filter FileFilter) error {
	staged, err := parseLLVM(data, filter)
	if err != nil {
		return err
	}
	t.MergeTable(staged)
	return nil
}

// ParseLLVMExport is ParseLLVM for the document llvm-cov export actually
// prints, where "data" is an array holding one export per binary. Each
// element is parsed as if it were the "data" object of a ParseLLVM report,
// and error fields are reported as "data[i]...". Any other shape is handed
// to ParseLLVM unchanged.
//
// ParseLLVMExport is atomic across all elements.
func ParseLLVMExport(t Table, data []byte, filter FileFilter) error {
	exports := gjson.GetBytes(data, "data")
	if !gjson.ValidBytes(data) || !exports.IsArray() {
		return ParseLLVM(t, data, filter)
	}

	staged := NewTable()
	for i, export := range exports.Array() {
		part, err := parseLLVM([]byte(`{"data":`+export.Raw+`}`), filter)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) && strings.HasPrefix(perr.Field, "data") {
				perr.Field = "data[" + strconv.Itoa(i) + "]" + strings.TrimPrefix(perr.Field, "data")
			}
			return err
		}
		staged.MergeTable(part)
	}
	t.MergeTable(staged)
	return nil
}

func parseLLVM(data []byte, filter FileFilter) (Table, error) {
	r := reader{schema: SchemaLLVM}
	root, err := r.root(data)
	if err != nil {
		return nil, err
	}
	body, err := r.object(root, "data", "data", "")
	if err != nil {
		return nil, err
	}
	files, err := r.array(body, "files", "data.files", "")
	if err != nil {
		return nil, err
	}

	staged := NewTable()
	for i, file := range files {
		path := index("data.files", i)
		if !file.IsObject() {
			return nil, r.errorf(path, "", "isn't object")
		}
		name, err := r.str(file, "filename", path+".filename", "")
		if err != nil {
			return nil, err
		}
		if filter.Accept(name) {
			staged.Touch(name)
			if err := r.segments(staged, file, path, name); err != nil {
				return nil, err
			}
		}
		if err := r.functions(staged, file, path, name, filter); err != nil {
			return nil, err
		}
	}
	return staged, nil
}

func (r reader) segments(staged Table, file gjson.Result, path, name string) error {
	segments, err := r.array(file, "segments", path+".segments", name)
	if err != nil {
		return err
	}
	for i, seg := range segments {
		spath := index(path+".segments", i)
		elems, err := r.tuple(seg, segmentMinLen, spath, name)
		if err != nil {
			return err
		}
		line, err := r.asUint(elems[segmentLine], index(spath, segmentLine), name)
		if err != nil {
			return err
		}
		if _, err := r.asUint(elems[segmentColumn], index(spath, segmentColumn), name); err != nil {
			return err
		}
		count, err := r.asUint(elems[segmentCount], index(spath, segmentCount), name)
		if err != nil {
			return err
		}
		hasCount, err := r.asBool(elems[segmentHasCount], index(spath, segmentHasCount), name)
		if err != nil {
			return err
		}
		isRegionEntry, err := r.asBool(elems[segmentIsRegionEntry], index(spath, segmentIsRegionEntry), name)
		if err != nil {
			return err
		}
		isGapRegion, err := r.asBool(elems[segmentIsGapRegion], index(spath, segmentIsGapRegion), name)
		if err != nil {
			return err
		}
		if hasCount && isRegionEntry && !isGapRegion {
			staged.Merge(name, uint(line), count == 0)
		}
	}
	return nil
}

func (r reader) functions(staged Table, file gjson.Result, path, name string, filter FileFilter) error {
	functions, err := r.array(file, "functions", path+".functions", name)
	if err != nil {
		return err
	}
	for i, fn := range functions {
		fpath := index(path+".functions", i)
		if !fn.IsObject() {
			return r.errorf(fpath, name, "isn't object")
		}
		fname, err := r.str(fn, "filename", fpath+".filename", name)
		if err != nil {
			return err
		}
		if !filter.Accept(fname) {
			continue
		}
		regions, err := r.array(fn, "regions", fpath+".regions", fname)
		if err != nil {
			return err
		}
		for j, region := range regions {
			rpath := index(fpath+".regions", j)
			elems, err := r.tuple(region, regionMinLen, rpath, fname)
			if err != nil {
				return err
			}
			var nums [regionMinLen]uint64
			for k := range nums {
				if nums[k], err = r.asUint(elems[k], index(rpath, k), fname); err != nil {
					return err
				}
			}
			staged.Merge(fname, uint(nums[regionLineStart]), nums[regionExecutionCount] == 0)
		}
	}
	return nil
}
