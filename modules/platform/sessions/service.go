// Package sessions lists the desktop sessions a user can log into.
//
// Sessions come from freedesktop desktop entries installed under
// $XDG_DATA_DIRS/wayland-sessions and $XDG_DATA_DIRS/xsessions.
package sessions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rkoesters/xdg/desktop"

	"tgreet/modules/platform/logger"
)

const defaultDataDirs = "/usr/local/share:/usr/share"

// sessionDirs are searched in this order inside every data dir
var sessionDirs = []string{"wayland-sessions", "xsessions"}

// Discover returns the default session followed by every installed one
func Discover(defaultName, defaultCommand string) []Session {
	list := []Session{{Name: defaultName, Command: defaultCommand}}

	for _, dir := range SearchPaths() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".desktop") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			s, err := ParseDesktopEntry(path)
			if err != nil {
				logger.Debug("skipping session %s: %v", path, err)
				continue
			}
			list = append(list, s)
		}
	}

	return list
}

// SearchPaths returns the session directories in lookup order.
// Relative entries of $XDG_DATA_DIRS are ignored.
func SearchPaths() []string {
	value := os.Getenv("XDG_DATA_DIRS")
	if value == "" {
		value = defaultDataDirs
	}

	var dataDirs []string
	for _, dir := range filepath.SplitList(value) {
		if filepath.IsAbs(dir) {
			dataDirs = append(dataDirs, dir)
		}
	}

	var paths []string
	for _, sub := range sessionDirs {
		for _, dir := range dataDirs {
			paths = append(paths, filepath.Join(dir, sub))
		}
	}
	return paths
}

// ParseDesktopEntry reads the [Desktop Entry] group of a .desktop file.
// Hidden entries and entries without Name or Exec are rejected.
func ParseDesktopEntry(path string) (Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return Session{}, fmt.Errorf("failed to open desktop entry: %w", err)
	}
	defer f.Close()

	entry, err := desktop.New(f)
	if err != nil {
		return Session{}, fmt.Errorf("failed to parse desktop entry: %w", err)
	}

	switch {
	case entry.Hidden:
		return Session{}, fmt.Errorf("entry is hidden")
	case entry.Name == "":
		return Session{}, fmt.Errorf("entry has no Name")
	case entry.Exec == "":
		return Session{}, fmt.Errorf("entry has no Exec")
	}

	args, err := splitExec(entry.Exec)
	if err != nil {
		return Session{}, err
	}
	if len(args) == 0 {
		return Session{}, fmt.Errorf("entry has an empty Exec")
	}

	return Session{Path: path, Name: entry.Name, Command: shellJoin(args)}, nil
}

// splitExec splits an Exec value into arguments following the desktop entry
// quoting rules, dropping field codes such as %f and %U. %% becomes %.
func splitExec(exec string) ([]string, error) {
	var (
		args     []string
		cur      strings.Builder
		inArg    bool
		quoted   bool
		onlyCode bool
	)

	flush := func() {
		if inArg && !(onlyCode && cur.Len() == 0) {
			args = append(args, cur.String())
		}
		cur.Reset()
		inArg = false
		onlyCode = false
	}

	for i := 0; i < len(exec); i++ {
		c := exec[i]
		switch {
		case quoted && c == '\\' && i+1 < len(exec) && strings.IndexByte("\"`$\\", exec[i+1]) >= 0:
			i++
			cur.WriteByte(exec[i])
		case c == '"':
			quoted = !quoted
			inArg = true
		case !quoted && (c == ' ' || c == '\t'):
			flush()
		case c == '%' && i+1 < len(exec):
			i++
			if exec[i] == '%' {
				cur.WriteByte('%')
			} else if cur.Len() == 0 {
				onlyCode = true
			}
			inArg = true
		default:
			cur.WriteByte(c)
			inArg = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in Exec %q", exec)
	}
	flush()

	return args, nil
}

// shellJoin joins args into a command line for sh -c
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("_@%+=:,./-", r)) {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
