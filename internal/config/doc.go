// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from the file named by --config, else from
// config.cue in the user config directory ($XDG_CONFIG_HOME/jijflattener on
// Linux, ~/Library/Application Support/jijflattener on macOS,
// %APPDATA%\jijflattener on Windows), else from ./config.cue. Every key can be
// overridden by a JIJFLATTENER_* environment variable, e.g.
// JIJFLATTENER_MANIFEST_JARS_DIR.
//
// Configuration files are validated against an embedded CUE schema
// (config_schema.cue) before they are merged over the defaults.
package config
