package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Schedule is one recurring task enqueued by the scheduler.
type Schedule struct {
	Spec     string `mapstructure:"spec"`     // cron expression, e.g. "0 8 * * *"
	Task     string `mapstructure:"task"`     // task text passed to the agent
	ChatID   string `mapstructure:"chat_id"`  // destination for the result
	Priority string `mapstructure:"priority"` // critical|high|normal|low
}

type Config struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`

	Agent struct {
		Binary    string        `mapstructure:"binary"`
		Args      []string      `mapstructure:"args"`
		Timeout   time.Duration `mapstructure:"timeout"`
		KillGrace time.Duration `mapstructure:"kill_grace"`
	} `mapstructure:"agent"`

	Worker struct {
		PollInterval  time.Duration `mapstructure:"poll_interval"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
		Retention     time.Duration `mapstructure:"retention"`
	} `mapstructure:"worker"`

	Context struct {
		ChannelTag   string `mapstructure:"channel_tag"`
		HistoryLimit int    `mapstructure:"history_limit"`
	} `mapstructure:"context"`

	Server struct {
		Address string `mapstructure:"address"`
		Port    string `mapstructure:"port"`
	} `mapstructure:"server"`

	Schedules []Schedule `mapstructure:"schedules"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.aide")

	viper.SetDefault("database.path", "aide.db")
	viper.SetDefault("agent.binary", "agent")
	viper.SetDefault("agent.timeout", 30*time.Minute)
	viper.SetDefault("agent.kill_grace", 10*time.Second)
	viper.SetDefault("worker.poll_interval", 5*time.Second)
	viper.SetDefault("worker.sweep_interval", time.Hour)
	viper.SetDefault("worker.retention", 72*time.Hour)
	viper.SetDefault("context.channel_tag", "imessage")
	viper.SetDefault("context.history_limit", 10)
	viper.SetDefault("server.address", "127.0.0.1")
	viper.SetDefault("server.port", "8321")

	viper.AutomaticEnv()
	viper.BindEnv("agent.binary", "AIDE_AGENT_BINARY")
	viper.BindEnv("database.path", "AIDE_DB_PATH")

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env vars carry it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
