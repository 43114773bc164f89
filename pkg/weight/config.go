package weight

import (
	"fmt"
	"regexp"
)

const DefaultWeightColumn = "weight"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config names the columns the manager reads and writes. An empty GroupColumn
// means every record belongs to one implicit group.
type Config struct {
	WeightColumn string
	GroupColumn  string
}

func (c Config) withDefaults() Config {
	if c.WeightColumn == "" {
		c.WeightColumn = DefaultWeightColumn
	}
	return c
}

func (c Config) Grouped() bool {
	return c.GroupColumn != ""
}

// Validate checks that the configured columns are plain identifiers. SQL stores
// splice them into statements.
func (c Config) Validate() error {
	c = c.withDefaults()
	if !identRe.MatchString(c.WeightColumn) {
		return fmt.Errorf("%w: weight column %q", ErrInvalidColumn, c.WeightColumn)
	}
	if c.Grouped() {
		if !identRe.MatchString(c.GroupColumn) {
			return fmt.Errorf("%w: group column %q", ErrInvalidColumn, c.GroupColumn)
		}
		if c.GroupColumn == c.WeightColumn {
			return fmt.Errorf("%w: group column equals weight column %q", ErrInvalidColumn, c.GroupColumn)
		}
	}
	return nil
}

// ValidIdentifier reports whether name can be used as a column or table name.
func ValidIdentifier(name string) bool {
	return identRe.MatchString(name)
}
