package confkit

import (
	"errors"
	"os"
	"path/filepath"
)

// ProjectRoot walks up from the working directory to the first directory that
// contains go.mod or .git.
func ProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, dir := range searchDirs(wd) {
		if isModuleRoot(dir) {
			return dir, nil
		}
	}
	return "", errors.New("confkit: project root not found")
}

// ProjectPath joins parts onto the project root, falling back to the working
// directory when no root is found.
func ProjectPath(parts ...string) string {
	root, err := ProjectRoot()
	if err != nil {
		root, _ = os.Getwd()
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

func isModuleRoot(dir string) bool {
	return fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git"))
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}
