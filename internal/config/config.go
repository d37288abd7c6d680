package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "SQUADFIRE_"

type ServerConfig struct {
	ListenAddr      string
	HTTPAddr        string
	MaxPlayers      int
	ReadyWindow     time.Duration
	SpawnProtection time.Duration
	RoundBanner     time.Duration
	WinsToEndGame   int
	MissileDamage   int
	DatabaseURL     string
	WSOrigins       []string
	Env             string
}

func (c ServerConfig) Production() bool { return c.Env == "production" }

type ClientConfig struct {
	ServerAddr       string
	PlayerName       string
	Character        string
	TickInterval     time.Duration
	LobbyReturnDelay time.Duration
	ReadyWindow      time.Duration
	SettingsPath     string
	MapsDir          string
	Env              string
}

// LoadDotEnv reads the given files (or ./.env) into the environment.
// Missing files are not an error; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func LoadServer() (ServerConfig, error) {
	var (
		c ServerConfig
		r reader
	)
	c.ListenAddr = r.str("LISTEN_ADDR", ":7777")
	c.HTTPAddr = r.str("HTTP_ADDR", ":8080")
	c.MaxPlayers = r.positiveInt("MAX_PLAYERS", 4)
	c.ReadyWindow = r.duration("READY_WINDOW", 10*time.Second)
	c.SpawnProtection = r.duration("SPAWN_PROTECTION", 3*time.Second)
	c.RoundBanner = r.duration("ROUND_BANNER", 3*time.Second)
	c.WinsToEndGame = r.positiveInt("WINS_TO_END_GAME", 2)
	c.MissileDamage = r.positiveInt("MISSILE_DAMAGE", 20)
	c.DatabaseURL = r.str("DATABASE_URL", "")
	c.WSOrigins = r.list("WS_ORIGINS")
	c.Env = r.str("ENV", "development")
	if r.err != nil {
		return ServerConfig{}, r.err
	}
	return c, nil
}

func LoadClient() (ClientConfig, error) {
	var (
		c ClientConfig
		r reader
	)
	c.ServerAddr = r.str("SERVER_ADDR", "localhost:7777")
	c.PlayerName = r.str("PLAYER_NAME", "")
	c.Character = r.str("CHARACTER", "")
	c.TickInterval = r.duration("TICK_INTERVAL", 16*time.Millisecond)
	c.LobbyReturnDelay = r.duration("LOBBY_RETURN_DELAY", 5*time.Second)
	c.ReadyWindow = r.duration("READY_WINDOW", 10*time.Second)
	c.SettingsPath = r.str("SETTINGS_PATH", "squadfire.properties")
	c.MapsDir = r.str("MAPS_DIR", "assets/maps")
	c.Env = r.str("ENV", "development")
	if r.err != nil {
		return ClientConfig{}, r.err
	}
	return c, nil
}

// reader keeps the first parse error so Load* can read every field and
// report once.
type reader struct {
	err error
}

func (r *reader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok {
		return v
	}
	return def
}

// list splits a comma-separated value, dropping empty entries.
func (r *reader) list(key string) []string {
	v, ok := r.lookup(key)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) positiveInt(key string, def int) int {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *reader) fail(key, val string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s%s=%q: %w", envPrefix, key, val, err)
	}
}
