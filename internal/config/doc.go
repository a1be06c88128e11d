// Package config loads the settings of the resolver tooling: resolver data,
// module search directories and host registration options.
//
// # Settings Loading
//
// Load searches for and layers settings from multiple sources in priority
// order:
//
//  1. Global settings ($XDG_CONFIG_HOME/config-resolver/config-resolver.json[c])
//  2. Project settings (config-resolver.json[c] in the project directory, then
//     .config-resolver/config-resolver.json[c])
//  3. CONFIG_RESOLVER_CONFIG file
//  4. CONFIG_RESOLVER_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Each file is loaded at most once, even when two locations name the same
// file.
//
// # Settings Format
//
// Settings files are JSON with comments. Example:
//
//	{
//	  // applied wherever a resolved config has no value
//	  "defaultValues": {"output.dir": "dist"},
//	  "preValidate": {"name": "string"},
//	  "postValidate": {"output.dir": {"type": "string", "required": true}},
//	  "upgradeMergeList": ["tags"],
//	  "moduleDirs": ["./presets"],
//	  "eventPrepend": "tjs:config",
//	  "token": "{env:PRESET_TOKEN}"
//	}
//
// Relative moduleDirs are resolved against the directory of the file that
// names them. {env:VAR} and {file:path} placeholders are expanded as for
// any loaded configuration.
//
// # Merging
//
// Sources are layered with the same merge engine that resolves extends, with
// upgradeMergeList and moduleDirs registered as upgrade-merge keys: scalars
// are overridden, objects are merged key by key and the two lists are
// combined.
//
// # Environment Variable Overrides
//
//   - CONFIG_RESOLVER_UPGRADE_MERGE - comma separated upgrade-merge keys
//   - CONFIG_RESOLVER_MODULE_DIRS - module directories (path list)
//   - CONFIG_RESOLVER_EVENT_PREPEND - trigger name prefix
//
// # Path Management
//
// Paths follows the XDG Base Directory layout:
//   - Config: ~/.config/config-resolver (XDG_CONFIG_HOME)
//   - Cache: ~/.cache/config-resolver (XDG_CACHE_HOME)
//   - State: ~/.local/state/config-resolver (XDG_STATE_HOME)
//
// On Windows, these paths are adapted to use APPDATA as appropriate.
package config
