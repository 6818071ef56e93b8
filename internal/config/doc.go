// Package config builds the startup configuration from process environment
// variables, optionally seeded from a dotenv file. Values are decoded with
// envconfig and checked with validator struct tags; a Config is only ever
// returned when every rule passes.
package config
