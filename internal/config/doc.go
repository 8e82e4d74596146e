// Package config holds the options of a SEOScan run: defaults, validation,
// XDG directories and the optional .seoscan YAML file with per-host
// cookies, headers, page limits and path patterns.
package config
