package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their koanf keys so messages name the
// setting an operator would edit.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("koanf"); name != "" {
			return name
		}

		return strings.ToLower(f.Name)
	})

	return v
}

// Validate checks struct tags, then the settings required by the selected
// providers. The service refuses to start on any failure.
func (c *Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	problems = append(problems, c.providerProblems()...)
	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(problems, "\n  "))
}

func (c *Config) providerProblems() []string {
	var out []string

	switch c.Storage.Provider {
	case StorageSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			out = append(out, "storage.sqlite.path is required when storage.provider is sqlite")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			out = append(out, "storage.postgres.dsn is required when storage.provider is postgres")
		}
	}

	if c.Messaging.Provider == MessagingRedis && strings.TrimSpace(c.Messaging.Redis.Addr) == "" {
		out = append(out, "messaging.redis.addr is required when messaging.provider is redis")
	}

	return out
}

func describe(fe validator.FieldError) string {
	key := settingKey(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return key + " is required"
	case "required_if":
		return fmt.Sprintf("%s is required when %s", key, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", key, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", key, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", key, fe.Param())
	case "url":
		return key + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation: %s", key, fe.Tag())
	}
}

// settingKey drops the root type from a validator namespace:
// "Config.services.command.base_url" becomes "services.command.base_url".
func settingKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}
