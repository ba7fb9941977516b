package pocs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvVar names the root of the POCS checkout that provides conf_files/.
const EnvVar = "POCS"

const confDirName = "conf_files"

var ErrCompanionNotFound = errors.New("pocs: companion package not found")

type Companion struct {
	Root    string
	ConfDir string
}

// ResolveRoot returns $POCS, or the parent of webRoot when the variable is unset.
func ResolveRoot(lookupEnv func(string) (string, bool), webRoot string) string {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	if v, ok := lookupEnv(EnvVar); ok && strings.TrimSpace(v) != "" {
		return filepath.Clean(strings.TrimSpace(v))
	}
	return filepath.Dir(filepath.Clean(webRoot))
}

type SearchPath []string

func NewSearchPath(base []string, lookupEnv func(string) (string, bool), webRoot string) SearchPath {
	p := make(SearchPath, 0, len(base)+1)
	for _, dir := range base {
		p = p.Append(dir)
	}
	return p.Append(ResolveRoot(lookupEnv, webRoot))
}

func (p SearchPath) Append(dir string) SearchPath {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return p
	}
	return append(p, filepath.Clean(dir))
}

func (p SearchPath) Contains(dir string) bool {
	want := filepath.Clean(dir)
	for _, d := range p {
		if d == want {
			return true
		}
	}
	return false
}

// Locate returns the first directory on the path that holds conf_files/.
func Locate(p SearchPath) (Companion, error) {
	for _, dir := range p {
		confDir := filepath.Join(dir, confDirName)
		st, err := os.Stat(confDir)
		if err != nil || !st.IsDir() {
			continue
		}
		return Companion{Root: dir, ConfDir: confDir}, nil
	}
	return Companion{}, fmt.Errorf("%w (searched %s)", ErrCompanionNotFound, strings.Join(p, string(os.PathListSeparator)))
}
