// Package config loads and validates the gridpulse service configuration
// from a single YAML file.
//
// Secrets (the API key, webhook URLs) are never stored inline: the file
// names environment variables via *_env keys and the value is resolved at
// use time. Watch provides fsnotify-based hot reload so alert rules can
// change without a restart.
package config
