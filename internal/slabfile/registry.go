// Package slabfile implements the directory-scanning logic that derives the
// set of live slab ids from the files present in a queue's storage directory.
//
// It is deliberately a set of pure functions over a directory path: nothing
// here holds state or opens a file. The queue engine is the only component
// that interprets the ids this package returns.
package slabfile

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// filenamePattern matches "<name>-<digits>.index". No sign, at least one
// digit, leading zeros accepted.
var filenamePattern = regexp.MustCompile(`^(.+)-([0-9]+)\.index$`)

// IndexPath returns the path of the index file for slab id in dir under name.
func IndexPath(dir, name string, id int64) string {
	return filepath.Join(dir, name+"-"+strconv.FormatInt(id, 10)+".index")
}

// DataPath returns the path of the data file for slab id in dir under name.
func DataPath(dir, name string, id int64) string {
	return filepath.Join(dir, name+"-"+strconv.FormatInt(id, 10)+".data")
}

// ParseSlabID reports the slab id encoded in filename if it matches
// "<name>-<digits>.index", and whether it belongs to name.
func ParseSlabID(filename, name string) (id int64, ok bool) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil || m[1] != name {
		return 0, false
	}
	id, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// AllSlabIDs scans dir and returns the sorted, ascending set of slab ids that
// have a live "<name>-<id>.index" file. Only .index files contribute; .data
// files are ignored here as they are never created without a matching index.
func AllSlabIDs(dir, name string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := ParseSlabID(e.Name(), name); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// HeadSlabID returns the smallest live slab id. The second return is false if
// the directory holds no slabs for name; callers must treat that as "create
// slab 1" rather than trust any sentinel value (spec.md's source returns
// MIN_VALUE here, which this package deliberately does not reproduce).
func HeadSlabID(ids []int64) (int64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// TailSlabID returns the largest live slab id, or 0 if ids is empty.
func TailSlabID(ids []int64) int64 {
	if len(ids) == 0 {
		return 0
	}
	return ids[len(ids)-1]
}

// Remove deletes both files belonging to slab id. It is not an error for
// either file to already be missing.
func Remove(dir, name string, id int64) error {
	if err := os.Remove(IndexPath(dir, name, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(DataPath(dir, name, id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
