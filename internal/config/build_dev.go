//go:build dev

package config

// developmentBuild is set by building with -tags dev.
const developmentBuild = true
