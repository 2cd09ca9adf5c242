package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("verbose", false)

	// Database
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.busy_timeout_ms", 5000)
	viper.SetDefault("db.wal", true)
	viper.SetDefault("db.foreign_keys", true)
	viper.SetDefault("db.auto_migrate", true)

	// Interactive messages
	viper.SetDefault("interactive.refresh_interval", time.Second)
	viper.SetDefault("interactive.ttl", time.Hour)
	viper.SetDefault("interactive.attach_interval", 250*time.Millisecond)

	// Feed scheduler
	viper.SetDefault("feed.interval", 10*time.Minute)
	viper.SetDefault("feed.send_interval", time.Second)
	viper.SetDefault("feed.cycle_cap", 50)
	viper.SetDefault("feed.page_size", 25)

	// Ingest
	viper.SetDefault("ingest.interval", 5*time.Minute)
	viper.SetDefault("ingest.per_source_limit", 100)

	// Commands and console
	viper.SetDefault("command.prefix", "!")
	viper.SetDefault("console.user", "you")

	// name -> feed URL
	viper.SetDefault("sources.rss", map[string]string{})
}
