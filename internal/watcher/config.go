package watcher

import "time"

type Config struct {
	DebounceWindow time.Duration `yaml:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	IgnorePatterns []string      `yaml:"ignore_patterns"`
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow: 200 * time.Millisecond,
		MaxBatchSize:   16,
		IgnorePatterns: []string{
			"**/*.swp",
			"**/*~",
			"**/.#*",
		},
	}
}
