// Package config loads application configuration from files and the
// environment.
package config

// Config represents the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic"`
	GitHub    GitHubConfig    `yaml:"github"`
	Review    ReviewConfig    `yaml:"review"`
	Git       GitConfig       `yaml:"git"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnthropicConfig configures the model provider.
type AnthropicConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// GitHubConfig configures access to the GitHub API.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// ReviewConfig configures the review pipeline.
type ReviewConfig struct {
	// ContextRadius is the number of lines of surrounding context included
	// on each side of a changed line.
	ContextRadius int `yaml:"contextRadius"`

	// MaxContextLines caps the per-file excerpt size.
	MaxContextLines int `yaml:"maxContextLines"`

	// BotUsername is the account the bot posts as. When it matches the
	// change author, blocking verdicts are downgraded to comments.
	BotUsername string `yaml:"botUsername"`

	// GuidelinesPath points to a markdown document of review guidelines.
	GuidelinesPath string `yaml:"guidelinesPath"`

	// GuidelineSections selects which guideline sections to include, by
	// identifier. Empty means all sections.
	GuidelineSections []string `yaml:"guidelineSections"`
}

// GitConfig configures local repository access for dry runs.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warning
	Format string `yaml:"format"` // human, json
}
