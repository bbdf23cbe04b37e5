package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

const maxSearchDepth = 8

var dotenvOnce sync.Once

// LoadDotenvOnce loads a .env file into the process environment. Only the
// first call does any work.
//
// NO_DOTENV=1 disables loading, ENV_FILE names an explicit file and
// DOTENV_OVERLOAD=1 lets file values replace variables that are already set.
// Without ENV_FILE the search walks up from the working directory and stops at
// the module root.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	overload := os.Getenv("DOTENV_OVERLOAD") == "1"
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		_ = loadEnvFile(envFile, overload)
		return
	}
	wd, err := os.Getwd()
	if err != nil {
		_ = loadEnvFile(".env", overload)
		return
	}
	for _, dir := range searchDirs(wd) {
		if err := loadEnvFile(filepath.Join(dir, ".env"), overload); err == nil {
			return
		}
	}
}

func loadEnvFile(path string, overload bool) error {
	if !fileExists(path) {
		return os.ErrNotExist
	}
	if overload {
		return godotenv.Overload(path)
	}
	return godotenv.Load(path)
}

// searchDirs lists start and its parents up to and including the first
// directory that looks like a module root.
func searchDirs(start string) []string {
	var dirs []string
	dir := start
	for i := 0; i < maxSearchDepth; i++ {
		dirs = append(dirs, dir)
		if isModuleRoot(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dirs
}
