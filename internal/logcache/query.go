package logcache

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"
)

// Selector identifies which invocation a query targets: an explicit id, the
// "last N" selector (by ordinal, 1 = most recent), or the default (most
// recent).
type Selector struct {
	Invocation string // explicit id, takes priority if non-empty
	LastN      int    // 1-indexed ordinal into the most-recent list; 0 means "most recent"
}

// Resolve picks the concrete invocation id a Selector refers to.
func (sel Selector) Resolve(c *Cache) (string, error) {
	if sel.Invocation != "" {
		return sel.Invocation, nil
	}
	n := sel.LastN
	if n <= 0 {
		n = 1
	}
	ids, err := c.LastN(n)
	if err != nil {
		return "", err
	}
	if len(ids) < n {
		return "", os.ErrNotExist
	}
	return ids[n-1], nil
}

// Head returns the first k lines of the log at path (spec §4.G). This is
// O(k): it stops reading as soon as k lines are scanned.
func Head(path string, k int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for len(lines) < k && sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// tailChunkSize is the block size used to scan backward from EOF looking
// for line boundaries.
const tailChunkSize = 64 * 1024

// Tail returns the last k lines of the log at path (spec §4.G), reading
// backward from EOF in bounded chunks rather than scanning the whole file,
// so cost scales with k and the tail chunk size, not with total log size
// (spec §4.G's "never triggers a build" performance contract extends to
// "never does more work than the query needs").
func Tail(path string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()

	var buf []byte
	newlines := 0
	pos := size
	for pos > 0 && newlines <= k {
		readSize := int64(tailChunkSize)
		if readSize > pos {
			readSize = pos
		}
		pos -= readSize
		chunk := make([]byte, readSize)
		if _, err := f.ReadAt(chunk, pos); err != nil && err != io.EOF {
			return nil, err
		}
		buf = append(chunk, buf...)
		newlines = bytes.Count(buf, []byte("\n"))
	}

	text := strings.TrimRight(string(buf), "\n")
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > k {
		lines = lines[len(lines)-k:]
	}
	return lines, nil
}

// Range returns lines a through b inclusive, 1-indexed (spec §4.G).
func Range(path string, a, b int) ([]string, error) {
	if a < 1 {
		a = 1
	}
	if b < a {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo < a {
			continue
		}
		if lineNo > b {
			break
		}
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// Grep returns every line matching pattern: a plain substring match by
// default, or a regular expression when regex is true (spec §4.G).
func Grep(path, pattern string, regex bool) ([]string, error) {
	var re *regexp.Regexp
	if regex {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		matched := false
		if regex {
			matched = re.MatchString(line)
		} else {
			matched = strings.Contains(line, pattern)
		}
		if matched {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

// Errors returns every line carrying the compiler's conventional "error"
// prefix (spec §4.G).
func Errors(path string) ([]string, error) {
	return grepPrefix(path, "error")
}

// Warnings returns every line carrying the compiler's conventional
// "warning" prefix (spec §4.G).
func Warnings(path string) ([]string, error) {
	return grepPrefix(path, "warning")
}

// grepPrefix matches lines where level appears as cargo/rustc conventionally
// emit it: optionally indented, then "error" or "error[E0308]" or "warning",
// followed by a colon.
func grepPrefix(path, level string) ([]string, error) {
	re := regexp.MustCompile(`^\s*` + level + `(\[[A-Za-z0-9]+\])?:`)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if re.MatchString(sc.Text()) {
			lines = append(lines, sc.Text())
		}
	}
	return lines, sc.Err()
}

// All returns the full log, unmodified.
func All(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}
