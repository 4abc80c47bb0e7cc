package sources

// Config describes one content source declared in a YAML seed file.
//
//	name: hacker-news
//	kind: feed
//	locator: "https://news.ycombinator.com/rss"
//	policy: metadata_only
//	enabled: true
type Config struct {
	Name    string `yaml:"name"`
	Kind    string `yaml:"kind"`
	Locator string `yaml:"locator"`
	Policy  string `yaml:"policy"`
	Enabled *bool  `yaml:"enabled"`
}

// IsEnabled treats a missing enabled field as enabled.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
