// Package config defines the configuration for docmirror.
package config
