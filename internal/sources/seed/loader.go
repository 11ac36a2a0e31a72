package seed

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/tripdesk/internal/domain"
)

// Loader reads a booking seed file. JSON is accepted as well since it is
// valid YAML.
type Loader struct {
	filePath string
}

// NewLoader creates a new seed loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and maps the seed file
func (l *Loader) Load() (map[domain.BookingType][]domain.Record, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = expandEnv(data)

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	return Map(file)
}

var envRef = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// expandEnv substitutes ${VAR} references with the environment value.
// Unset variables become empty strings.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envRef.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
