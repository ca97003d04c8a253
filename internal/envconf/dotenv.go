package envconf

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/joho/godotenv"
)

// ApplyDotEnv fills unset variables from a .env file. Variables the caller
// already exported keep their value. A missing file is not an error.
func ApplyDotEnv(env Environ, path string) ([]Assignment, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var applied []Assignment
	for _, name := range names {
		if _, ok := env.LookupEnv(name); ok {
			continue
		}
		if err := env.Setenv(name, values[name]); err != nil {
			return applied, fmt.Errorf("set %s: %w", name, err)
		}
		applied = append(applied, Assignment{Name: name, Value: values[name], Source: SourceDotEnv})
	}
	return applied, nil
}
