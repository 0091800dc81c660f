package integration

import (
	"time"

	"github.com/spf13/viper"
)

// ApplyViperDefaults seeds the configuration keys the gateway reads. Callers
// pass their own viper instance; nil falls back to the global one.
func ApplyViperDefaults(v *viper.Viper) {
	if v == nil {
		v = viper.GetViper()
	}

	v.SetDefault("llm.endpoint", "https://api.openai.com")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.request_timeout", 90*time.Second)

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.poll_timeout", 30*time.Second)
	v.SetDefault("telegram.worker_concurrency", 4)

	v.SetDefault("admin.listen", "0.0.0.0:8787")

	v.SetDefault("snapshot.path", "~/.eliza/runtime/snapshot.json")

	v.SetDefault("agent.name", "eliza")
	v.SetDefault("agent.character_path", "")
	v.SetDefault("agent.recent_messages", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
}
