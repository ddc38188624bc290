package conf

/*
   Package conf wraps viper for the vaccination status services.

   A local.env file is consulted first when one is found in the configured
   locations. Any key missing from the file falls back to the process
   environment. Deployed environments ship no file and read the environment
   only.

   Structs can be populated in one call with Checkout, using
   `conf:"KEY"` and optional `conf_default:"value"` field tags.
*/

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configgood uint8 = iota
	configbad
	noconfigfound
)

var (
	envVars *viper.Viper
	state   = configgood
	mu      sync.RWMutex
)

func setup(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("local")
	v.SetConfigType("env")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		state = configbad
	}

	return v
}

func init() {
	locations := []string{
		os.Getenv("VAX_CONF_DIR"),
		"/go/src/github.com/schoolvax/vax-app/shared_files/decrypted",
	}

	if ok, loc := findEnv(locations); ok {
		envVars = setup(loc)
	} else {
		state = noconfigfound
	}
}

// findEnv returns the first location holding a local.env file.
func findEnv(locations []string) (bool, string) {
	for _, loc := range locations {
		if loc == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(loc, "local.env")); err == nil {
			return true, loc
		}
	}
	return false, ""
}

// GetEnv retrieves a value from the config file or the environment.
// An empty string is returned when the key is not set anywhere.
func GetEnv(key string) string {
	value, _ := LookupEnv(key)
	return value
}

// LookupEnv acts like os.LookupEnv but checks the config file first.
func LookupEnv(key string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()

	if state == configgood {
		if value := envVars.GetString(key); value != "" {
			return value, true
		}
	}

	return os.LookupEnv(key)
}

// SetEnv sets a key for the rest of the process. The *testing.T parameter
// keeps callers honest: outside of tests configuration is read only.
func SetEnv(protect *testing.T, key string, value string) error {
	mu.Lock()
	defer mu.Unlock()

	if state == configgood {
		envVars.Set(key, value)
	}
	return os.Setenv(key, value)
}

// UnsetEnv removes a key from both the config file view and the environment.
func UnsetEnv(protect *testing.T, key string) error {
	mu.Lock()
	defer mu.Unlock()

	if state == configgood {
		envVars.Set(key, "")
	}
	return os.Unsetenv(key)
}

// Checkout fills the exported fields of the struct pointed to by v from their
// `conf` tags. Fields whose key is unset take the `conf_default` tag value.
// Supported kinds are string, bool, the int family and time.Duration.
func Checkout(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.Errorf("conf: Checkout requires a pointer to a struct, got %T", v)
	}

	elem := rv.Elem()
	typ := elem.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		key, ok := field.Tag.Lookup("conf")
		if !ok || !field.IsExported() {
			continue
		}

		raw, found := LookupEnv(key)
		if !found || strings.TrimSpace(raw) == "" {
			def, hasDefault := field.Tag.Lookup("conf_default")
			if !hasDefault {
				continue
			}
			raw = def
		}

		if err := assign(elem.Field(i), strings.TrimSpace(raw)); err != nil {
			return errors.Wrapf(err, "conf: invalid value for %s", key)
		}
	}
	return nil
}

func assign(f reflect.Value, raw string) error {
	if f.Type() == reflect.TypeOf(time.Duration(0)) {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		f.SetInt(int64(d))
		return nil
	}

	switch f.Kind() {
	case reflect.String:
		f.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, f.Type().Bits())
		if err != nil {
			return err
		}
		f.SetUint(n)
	default:
		return errors.Errorf("unsupported field kind %s", f.Kind())
	}
	return nil
}
