//go:build !dev

package config

const developmentBuild = false
