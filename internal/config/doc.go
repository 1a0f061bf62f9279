// Package config defines the options of a kwcrawl run, their defaults,
// validation and the YAML configuration file.
package config
