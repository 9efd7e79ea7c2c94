// Package config loads server settings.
//
// Settings come from three layers, later ones winning:
//  1. built-in defaults
//  2. an optional YAML file named by GROUPCHAT_CONFIG, with ${VAR} expansion
//  3. GROUPCHAT_* environment variables (a .env file is loaded first if present)
//
// The ADDRESS command-line argument overrides all of them for server.address.
package config
