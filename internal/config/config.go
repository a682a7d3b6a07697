// Package config resolves the runtime's environment-derived settings:
// the cache directory, the optional TCP façade's port, and the
// store's saturation ceiling. It loads a ".env" file the same way the
// teacher's shell does, then reads plain os.Getenv on top of it.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/haricheung/agentic-shell/internal/store"
)

// DefaultSocketPort is the façade's port when BACHT_SOCKET_PORT is
// unset, per spec §6.
const DefaultSocketPort = 2138

// Config holds the runtime's env-derived settings.
type Config struct {
	CacheDir   string
	SocketPort int
	MaxCount   uint32
}

// Load reads ".env" (if present; a missing file is not an error, same
// as the teacher's shell) and resolves Config from the process
// environment on top of it.
func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		CacheDir:   resolveCacheDir(),
		SocketPort: resolveIntEnv("BACHT_SOCKET_PORT", DefaultSocketPort),
		MaxCount:   resolveMaxCount(),
	}
}

func resolveCacheDir() string {
	if dir := os.Getenv("BACHT_CACHE_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "bacht")
}

func resolveIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func resolveMaxCount() uint32 {
	v := os.Getenv("BACHT_MAX_COUNT")
	if v == "" {
		return store.MaxCount
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return store.MaxCount
	}
	return uint32(n)
}
