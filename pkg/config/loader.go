package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type cache struct {
	mu     sync.RWMutex
	values map[string]any
}

var (
	loaded = &cache{values: make(map[string]any)}

	defaultEnvOnce sync.Once
	validate       = validator.New(validator.WithRequiredStructEnabled())
)

// LoadEnv loads variables from the given .env files into the process environment.
// Without arguments it loads ./.env. Variables already set in the environment win;
// among files the first one to define a key wins.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv is LoadEnv that panics on error.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(err)
	}
}

// Load parses environment variables into v according to its `env` tags and
// then validates it against its `validate` tags.
// Each configuration type is parsed once per process; later calls receive the
// cached copy until ResetCache is called.
//
//	type ChatConfig struct {
//		Heartbeat time.Duration `env:"CHAT_HEARTBEAT_INTERVAL" envDefault:"30s" validate:"gt=0"`
//	}
//
//	var cfg ChatConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	defaultEnvOnce.Do(func() {
		// .env is optional
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	loaded.mu.RLock()
	cached, ok := loaded.values[key]
	loaded.mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	loaded.mu.Lock()
	defer loaded.mu.Unlock()

	// another goroutine may have won the race while we waited for the lock
	if cached, ok := loaded.values[key]; ok {
		*v = cached.(T)
		return nil
	}

	var fresh T
	if err := parse(&fresh); err != nil {
		return err
	}
	loaded.values[key] = fresh
	*v = fresh
	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ForceReload drops the cached value for T and parses the environment again.
func ForceReload[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	loaded.mu.Lock()
	delete(loaded.values, typeKey[T]())
	loaded.mu.Unlock()
	return Load(v)
}

// ResetCache forgets every loaded configuration. Intended for tests.
func ResetCache() {
	loaded.mu.Lock()
	defer loaded.mu.Unlock()
	loaded.values = make(map[string]any)
}

func parse[T any](v *T) error {
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	// validator only accepts structs
	if reflect.TypeOf(*v).Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(v); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}
	return nil
}

func typeKey[T any]() string {
	t := reflect.TypeFor[T]()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
