package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures. Credentials are intentionally not required here
// so read-only CLI commands work against an unconfigured install; the daemon
// performs its own startup checks.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		problems = append(problems, "paths.media_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be console or json, got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// ValidateDaemon checks the additional settings the daemon needs to run.
func (c *Config) ValidateDaemon() error {
	var problems []string

	if c.Discord.Token == "" {
		problems = append(problems, "discord.token is required")
	}
	if c.Discord.GuildID == 0 {
		problems = append(problems, "discord.guild_id is required")
	}
	if c.Discord.SubmitChannelID == 0 {
		problems = append(problems, "discord.submit_channel_id is required")
	}
	if c.Publisher.BaseURL == "" {
		problems = append(problems, "publisher.base_url is required")
	}
	if c.Publisher.Username == "" || c.Publisher.Password == "" {
		problems = append(problems, "publisher.username and publisher.password are required")
	}

	if len(problems) > 0 {
		return errors.New("incomplete daemon configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
