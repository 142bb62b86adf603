package coverage

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// reader walks one report and produces ParseErrors tagged with its schema.
type reader struct {
	schema Schema
}

func (r reader) errorf(field, file, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Schema: r.schema,
		Field:  field,
		File:   file,
		Reason: fmt.Sprintf(format, args...),
	}
}

// root validates data and returns its top-level object.
func (r reader) root(data []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, r.errorf("", "", "malformed JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return gjson.Result{}, r.errorf("", "", "root isn't object")
	}
	return root, nil
}

func (r reader) member(obj gjson.Result, key, path, file string) (gjson.Result, error) {
	v := obj.Get(key)
	if !v.Exists() {
		return v, r.errorf(path, file, "missing")
	}
	return v, nil
}

func (r reader) object(obj gjson.Result, key, path, file string) (gjson.Result, error) {
	v, err := r.member(obj, key, path, file)
	if err != nil {
		return v, err
	}
	if !v.IsObject() {
		return v, r.errorf(path, file, "isn't object")
	}
	return v, nil
}

func (r reader) array(obj gjson.Result, key, path, file string) ([]gjson.Result, error) {
	v, err := r.member(obj, key, path, file)
	if err != nil {
		return nil, err
	}
	if !v.IsArray() {
		return nil, r.errorf(path, file, "isn't array")
	}
	return v.Array(), nil
}

func (r reader) str(obj gjson.Result, key, path, file string) (string, error) {
	v, err := r.member(obj, key, path, file)
	if err != nil {
		return "", err
	}
	if v.Type != gjson.String {
		return "", r.errorf(path, file, "isn't string")
	}
	return v.Str, nil
}

func (r reader) boolean(obj gjson.Result, key, path, file string) (bool, error) {
	v, err := r.member(obj, key, path, file)
	if err != nil {
		return false, err
	}
	return r.asBool(v, path, file)
}

func (r reader) uint(obj gjson.Result, key, path, file string) (uint64, error) {
	v, err := r.member(obj, key, path, file)
	if err != nil {
		return 0, err
	}
	return r.asUint(v, path, file)
}

func (r reader) asBool(v gjson.Result, path, file string) (bool, error) {
	if !v.IsBool() {
		return false, r.errorf(path, file, "isn't bool")
	}
	return v.Bool(), nil
}

// asUint accepts only plain non-negative integer literals; "1.0", "-1" and
// "1e3" are rejected.
func (r reader) asUint(v gjson.Result, path, file string) (uint64, error) {
	if v.Type != gjson.Number {
		return 0, r.errorf(path, file, "isn't uint")
	}
	n, err := strconv.ParseUint(v.Raw, 10, 64)
	if err != nil {
		perr := r.errorf(path, file, "isn't uint")
		perr.Err = err
		return 0, perr
	}
	return n, nil
}

// tuple returns the elements of a fixed-layout array such as an llvm-cov
// segment, requiring at least min elements.
func (r reader) tuple(v gjson.Result, min int, path, file string) ([]gjson.Result, error) {
	if !v.IsArray() {
		return nil, r.errorf(path, file, "isn't array")
	}
	elems := v.Array()
	if len(elems) < min {
		return nil, r.errorf(path, file, "has %d elements, want at least %d", len(elems), min)
	}
	return elems, nil
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
