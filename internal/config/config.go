package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"asteroids-server/internal/game"
)

// ServerConfig holds transport settings
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxConnsPerIP   int           `mapstructure:"maxConnsPerIP"`
	MaxTotalConns   int           `mapstructure:"maxTotalConns"`
	LivenessTimeout time.Duration `mapstructure:"livenessTimeout"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// RoomConfig holds per-room scheduling and capacity
type RoomConfig struct {
	TickRate      int           `mapstructure:"tickRate"`
	SnapshotRate  int           `mapstructure:"snapshotRate"`
	MaxPlayers    int           `mapstructure:"maxPlayers"`
	MaxRooms      int           `mapstructure:"maxRooms"`
	InboxSize     int           `mapstructure:"inboxSize"`
	InputBuffer   int           `mapstructure:"inputBuffer"`
	InputRetain   time.Duration `mapstructure:"inputRetain"`
	MaxInputDelta time.Duration `mapstructure:"maxInputDelta"`
}

// WorldConfig holds arena dimensions
type WorldConfig struct {
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// PlayerConfig holds ship physics
type PlayerConfig struct {
	Radius            float64       `mapstructure:"radius"`
	MaxSpeed          float64       `mapstructure:"maxSpeed"`
	Acceleration      float64       `mapstructure:"acceleration"`
	RotationSpeed     float64       `mapstructure:"rotationSpeed"`
	BrakeDeceleration float64       `mapstructure:"brakeDeceleration"`
	MaxHealth         int           `mapstructure:"maxHealth"`
	Lives             int           `mapstructure:"lives"`
	FireRate          time.Duration `mapstructure:"fireRate"`
	MuzzleOffset      float64       `mapstructure:"muzzleOffset"`
	Invulnerability   time.Duration `mapstructure:"invulnerability"`
	RespawnDelay      time.Duration `mapstructure:"respawnDelay"`
}

// BulletConfig holds projectile physics
type BulletConfig struct {
	Speed    float64       `mapstructure:"speed"`
	Radius   float64       `mapstructure:"radius"`
	Lifetime time.Duration `mapstructure:"lifetime"`
}

// AsteroidSizeConfig is one row of the size table
type AsteroidSizeConfig struct {
	Radius     float64 `mapstructure:"radius"`
	MinSpeed   float64 `mapstructure:"minSpeed"`
	MaxSpeed   float64 `mapstructure:"maxSpeed"`
	Points     int     `mapstructure:"points"`
	SplitCount int     `mapstructure:"splitCount"`
}

// AsteroidConfig holds the asteroid table and population band
type AsteroidConfig struct {
	Large       AsteroidSizeConfig `mapstructure:"large"`
	Medium      AsteroidSizeConfig `mapstructure:"medium"`
	Small       AsteroidSizeConfig `mapstructure:"small"`
	MinCount    int                `mapstructure:"minCount"`
	MaxCount    int                `mapstructure:"maxCount"`
	Initial     int                `mapstructure:"initial"`
	MaxSpin     float64            `mapstructure:"maxSpin"`
	SplitMargin float64            `mapstructure:"splitMargin"`
}

// ParticleConfig holds cosmetic particle settings
type ParticleConfig struct {
	ThrustLifetime    time.Duration `mapstructure:"thrustLifetime"`
	ExplosionLifetime time.Duration `mapstructure:"explosionLifetime"`
	HitLifetime       time.Duration `mapstructure:"hitLifetime"`
	ExplosionDamping  float64       `mapstructure:"explosionDamping"`
	ExplosionCount    int           `mapstructure:"explosionCount"`
	HitCount          int           `mapstructure:"hitCount"`
}

// GameConfig holds rule toggles and damage
type GameConfig struct {
	FriendlyFire   bool `mapstructure:"friendlyFire"`
	AsteroidDamage int  `mapstructure:"asteroidDamage"`
	BulletDamage   int  `mapstructure:"bulletDamage"`
}

// SpawnConfig holds safe-spawn search bounds
type SpawnConfig struct {
	Attempts     int     `mapstructure:"attempts"`
	Clearance    float64 `mapstructure:"clearance"`
	BorderMargin float64 `mapstructure:"borderMargin"`
}

// StoreConfig holds the optional score ledger
type StoreConfig struct {
	Path          string        `mapstructure:"path"`
	FlushInterval time.Duration `mapstructure:"flushInterval"`
	BatchSize     int           `mapstructure:"batchSize"`
}

// Config is the full server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Room     RoomConfig     `mapstructure:"room"`
	World    WorldConfig    `mapstructure:"world"`
	Player   PlayerConfig   `mapstructure:"player"`
	Bullet   BulletConfig   `mapstructure:"bullet"`
	Asteroid AsteroidConfig `mapstructure:"asteroid"`
	Particle ParticleConfig `mapstructure:"particle"`
	Game     GameConfig     `mapstructure:"game"`
	Spawn    SpawnConfig    `mapstructure:"spawn"`
	CellSize float64        `mapstructure:"cellSize"`
	Store    StoreConfig    `mapstructure:"store"`
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func setSize(v *viper.Viper, key string, s game.SizeSpec) {
	v.SetDefault(key+".radius", s.Radius)
	v.SetDefault(key+".minSpeed", s.MinSpeed)
	v.SetDefault(key+".maxSpeed", s.MaxSpeed)
	v.SetDefault(key+".points", s.Points)
	v.SetDefault(key+".splitCount", s.SplitCount)
}

// SetDefaults registers a default for every recognised option
func SetDefaults(v *viper.Viper) {
	t := game.DefaultTuning()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.maxConnsPerIP", 5)
	v.SetDefault("server.maxTotalConns", 1000)
	v.SetDefault("server.livenessTimeout", 30*time.Second)
	v.SetDefault("server.allowedOrigins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("room.tickRate", t.TickRate)
	v.SetDefault("room.snapshotRate", 20)
	v.SetDefault("room.maxPlayers", 8)
	v.SetDefault("room.maxRooms", 100)
	v.SetDefault("room.inboxSize", 256)
	v.SetDefault("room.inputBuffer", 60)
	v.SetDefault("room.inputRetain", time.Second)
	v.SetDefault("room.maxInputDelta", 100*time.Millisecond)

	v.SetDefault("world.width", t.WorldWidth)
	v.SetDefault("world.height", t.WorldHeight)

	v.SetDefault("player.radius", t.PlayerRadius)
	v.SetDefault("player.maxSpeed", t.MaxSpeed)
	v.SetDefault("player.acceleration", t.Acceleration)
	v.SetDefault("player.rotationSpeed", t.RotationSpeed)
	v.SetDefault("player.brakeDeceleration", t.BrakeDeceleration)
	v.SetDefault("player.maxHealth", t.MaxHealth)
	v.SetDefault("player.lives", t.Lives)
	v.SetDefault("player.fireRate", ms(t.FireRateMs))
	v.SetDefault("player.muzzleOffset", t.MuzzleOffset)
	v.SetDefault("player.invulnerability", ms(t.InvulnerabilityMs))
	v.SetDefault("player.respawnDelay", ms(t.RespawnDelayMs))

	v.SetDefault("bullet.speed", t.BulletSpeed)
	v.SetDefault("bullet.radius", t.BulletRadius)
	v.SetDefault("bullet.lifetime", ms(int64(t.BulletLifetimeMs)))

	setSize(v, "asteroid.large", t.Size(game.SizeLarge))
	setSize(v, "asteroid.medium", t.Size(game.SizeMedium))
	setSize(v, "asteroid.small", t.Size(game.SizeSmall))
	v.SetDefault("asteroid.minCount", t.MinAsteroids)
	v.SetDefault("asteroid.maxCount", t.MaxAsteroids)
	v.SetDefault("asteroid.initial", t.InitialAsteroids)
	v.SetDefault("asteroid.maxSpin", t.AsteroidMaxSpin)
	v.SetDefault("asteroid.splitMargin", t.SplitMargin)

	v.SetDefault("particle.thrustLifetime", ms(int64(t.ParticleLifetimeMs[game.ParticleThrust])))
	v.SetDefault("particle.explosionLifetime", ms(int64(t.ParticleLifetimeMs[game.ParticleExplosion])))
	v.SetDefault("particle.hitLifetime", ms(int64(t.ParticleLifetimeMs[game.ParticleBulletHit])))
	v.SetDefault("particle.explosionDamping", t.ExplosionDamping)
	v.SetDefault("particle.explosionCount", t.ExplosionParticles)
	v.SetDefault("particle.hitCount", t.HitParticles)

	v.SetDefault("game.friendlyFire", t.FriendlyFire)
	v.SetDefault("game.asteroidDamage", t.AsteroidDamage)
	v.SetDefault("game.bulletDamage", t.BulletDamage)

	v.SetDefault("spawn.attempts", t.SpawnAttempts)
	v.SetDefault("spawn.clearance", t.SpawnClearance)
	v.SetDefault("spawn.borderMargin", t.BorderMargin)

	v.SetDefault("cellSize", t.CellSize)

	v.SetDefault("store.path", "")
	v.SetDefault("store.flushInterval", 5*time.Second)
	v.SetDefault("store.batchSize", 50)
}

// Flags returns the command line flag set bound into the configuration
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("arena", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (json, yaml or toml)")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	fs.Bool("log-pretty", false, "human readable console logs")
	fs.String("store", "", "SQLite score ledger path (empty disables)")
	fs.Int("max-rooms", 100, "maximum concurrent rooms")
	fs.Int("max-players", 8, "maximum players per room")
	fs.Bool("friendly-fire", true, "bullets damage other players")
	return fs
}

var flagKeys = map[string]string{
	"addr":          "server.addr",
	"log-level":     "log.level",
	"log-pretty":    "log.pretty",
	"store":         "store.path",
	"max-rooms":     "room.maxRooms",
	"max-players":   "room.maxPlayers",
	"friendly-fire": "game.friendlyFire",
}

// Load reads defaults, an optional config file, ARENA_* environment
// variables and flags, in increasing precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("arena")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks the values the simulation cannot run without
func (c *Config) Validate() error {
	switch {
	case c.World.Width <= 0 || c.World.Height <= 0:
		return fmt.Errorf("%w: world dimensions must be positive", ErrInvalidConfig)
	case c.Room.TickRate <= 0 || c.Room.SnapshotRate <= 0:
		return fmt.Errorf("%w: tick and snapshot rates must be positive", ErrInvalidConfig)
	case c.Room.SnapshotRate > c.Room.TickRate:
		return fmt.Errorf("%w: snapshot rate exceeds tick rate", ErrInvalidConfig)
	case c.Room.MaxPlayers <= 0 || c.Room.MaxRooms <= 0:
		return fmt.Errorf("%w: room limits must be positive", ErrInvalidConfig)
	case c.Room.InputBuffer <= 0:
		return fmt.Errorf("%w: input buffer must be positive", ErrInvalidConfig)
	case c.CellSize <= 0:
		return fmt.Errorf("%w: cell size must be positive", ErrInvalidConfig)
	case c.Asteroid.MinCount > c.Asteroid.MaxCount:
		return fmt.Errorf("%w: asteroid minCount exceeds maxCount", ErrInvalidConfig)
	case c.Spawn.BorderMargin*2 >= c.World.Width || c.Spawn.BorderMargin*2 >= c.World.Height:
		return fmt.Errorf("%w: spawn border margin leaves no room", ErrInvalidConfig)
	}
	for _, s := range []AsteroidSizeConfig{c.Asteroid.Large, c.Asteroid.Medium, c.Asteroid.Small} {
		if s.Radius <= 0 || s.MinSpeed > s.MaxSpeed {
			return fmt.Errorf("%w: bad asteroid size row", ErrInvalidConfig)
		}
	}
	return nil
}

func sizeSpec(s AsteroidSizeConfig) game.SizeSpec {
	return game.SizeSpec{
		Radius:     s.Radius,
		MinSpeed:   s.MinSpeed,
		MaxSpeed:   s.MaxSpeed,
		Points:     s.Points,
		SplitCount: s.SplitCount,
	}
}

// Tuning builds the simulation constants
func (c *Config) Tuning() game.Tuning {
	t := game.DefaultTuning()
	t.WorldWidth = c.World.Width
	t.WorldHeight = c.World.Height
	t.TickRate = c.Room.TickRate

	t.PlayerRadius = c.Player.Radius
	t.MaxSpeed = c.Player.MaxSpeed
	t.Acceleration = c.Player.Acceleration
	t.RotationSpeed = c.Player.RotationSpeed
	t.BrakeDeceleration = c.Player.BrakeDeceleration
	t.MaxHealth = c.Player.MaxHealth
	t.Lives = c.Player.Lives
	t.FireRateMs = c.Player.FireRate.Milliseconds()
	t.MuzzleOffset = c.Player.MuzzleOffset
	t.InvulnerabilityMs = c.Player.Invulnerability.Milliseconds()
	t.RespawnDelayMs = c.Player.RespawnDelay.Milliseconds()

	t.BulletSpeed = c.Bullet.Speed
	t.BulletRadius = c.Bullet.Radius
	t.BulletLifetimeMs = float64(c.Bullet.Lifetime.Milliseconds())

	t.Sizes[game.SizeLarge] = sizeSpec(c.Asteroid.Large)
	t.Sizes[game.SizeMedium] = sizeSpec(c.Asteroid.Medium)
	t.Sizes[game.SizeSmall] = sizeSpec(c.Asteroid.Small)
	t.MinAsteroids = c.Asteroid.MinCount
	t.MaxAsteroids = c.Asteroid.MaxCount
	t.InitialAsteroids = c.Asteroid.Initial
	t.AsteroidMaxSpin = c.Asteroid.MaxSpin
	t.SplitMargin = c.Asteroid.SplitMargin

	t.ParticleLifetimeMs[game.ParticleThrust] = float64(c.Particle.ThrustLifetime.Milliseconds())
	t.ParticleLifetimeMs[game.ParticleExplosion] = float64(c.Particle.ExplosionLifetime.Milliseconds())
	t.ParticleLifetimeMs[game.ParticleBulletHit] = float64(c.Particle.HitLifetime.Milliseconds())
	t.ExplosionDamping = c.Particle.ExplosionDamping
	t.ExplosionParticles = c.Particle.ExplosionCount
	t.HitParticles = c.Particle.HitCount

	t.FriendlyFire = c.Game.FriendlyFire
	t.AsteroidDamage = c.Game.AsteroidDamage
	t.BulletDamage = c.Game.BulletDamage

	t.CellSize = c.CellSize
	t.SpawnAttempts = c.Spawn.Attempts
	t.SpawnClearance = c.Spawn.Clearance
	t.BorderMargin = c.Spawn.BorderMargin
	return t
}
