package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"
)

type Category string

const (
	AuthAndUsers      Category = "auth_and_users"
	CronPersistence   Category = "cron_persistence"
	SSHConfig         Category = "ssh_config"
	SystemAndAuthLogs Category = "system_and_auth_logs"
	TempSuspicious    Category = "temp_suspicious"
	WebServer         Category = "web_server"
	Hashes            Category = "hashes"
)

var ErrUnknownCategory = errors.New("unknown category")

var categories = []Category{
	AuthAndUsers,
	CronPersistence,
	SSHConfig,
	SystemAndAuthLogs,
	TempSuspicious,
	WebServer,
	Hashes,
}

// Categories returns every category in canonical order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) String() string { return string(c) }

func (c Category) index() int {
	for i, k := range categories {
		if k == c {
			return i
		}
	}
	return -1
}

func (c Category) Valid() bool { return c.index() >= 0 }

// ParseCategory accepts snake, kebab or camel case spellings of a category
// name. Config keys arrive lower-cased from viper, so "authandusers" is
// accepted as well.
func ParseCategory(name string) (Category, error) {
	c := Category(strcase.SnakeCase(name))
	if c.Valid() {
		return c, nil
	}
	flat := strings.ReplaceAll(string(c), "_", "")
	for _, k := range categories {
		if strings.ReplaceAll(string(k), "_", "") == flat {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}
