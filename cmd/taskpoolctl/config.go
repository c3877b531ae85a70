package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	taskpool "github.com/ChuLiYu/taskpool"
)

// CLIConfig is the YAML shape loaded by `taskpoolctl run -c`. Grounded on
// the teacher's cmd/demo/main.go loadConfig, which decodes a similarly
// flat YAML document into a Config struct before building the runtime
// type from it field by field.
type CLIConfig struct {
	Worker struct {
		MinWorkers            int `yaml:"min_workers"`
		MaxWorkers            int `yaml:"max_workers"`
		QueueLimit            int `yaml:"queue_limit"`
		IdleWorkerTimeoutSecs int `yaml:"idle_worker_timeout_secs"`
	} `yaml:"worker"`

	Cache struct {
		TTLSecs int  `yaml:"ttl_secs"`
		Enabled bool `yaml:"enabled"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
	} `yaml:"metrics"`
}

func loadConfig(path string) (CLIConfig, error) {
	var cfg CLIConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg CLIConfig) poolOptions() []taskpool.PoolOption {
	var opts []taskpool.PoolOption
	if cfg.Worker.MinWorkers > 0 {
		opts = append(opts, taskpool.WithMinWorkers(cfg.Worker.MinWorkers))
	}
	if cfg.Worker.MaxWorkers > 0 {
		opts = append(opts, taskpool.WithMaxWorkers(cfg.Worker.MaxWorkers))
	}
	if cfg.Worker.QueueLimit > 0 {
		opts = append(opts, taskpool.WithQueueLimit(cfg.Worker.QueueLimit))
	}
	if cfg.Worker.IdleWorkerTimeoutSecs > 0 {
		opts = append(opts, taskpool.WithIdleWorkerTimeout(time.Duration(cfg.Worker.IdleWorkerTimeoutSecs)*time.Second))
	}
	if cfg.Cache.Enabled && cfg.Cache.TTLSecs > 0 {
		opts = append(opts, taskpool.WithCacheTTL(time.Duration(cfg.Cache.TTLSecs)*time.Second))
	}
	return opts
}
