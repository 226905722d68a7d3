/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package config provides loading of configuration values (from files, readers and environment variables)
// into configuration objects of other packages of the module.
package config

import (
	"io"
)

// Config is implemented by configuration objects that can be filled by Loader.
type Config interface {
	// SetProviderDefaults registers default values in the data provider.
	SetProviderDefaults(dp DataProvider)
	// Set reads and validates values from the data provider.
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by configuration objects whose keys are nested under a common prefix.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// Loader reads configuration data into the data provider and then fills configuration objects from it.
// Defaults of all objects are registered before any object is set.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader creates a new Loader that uses the given data provider.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// NewDefaultLoader creates a new Loader backed by viper that also looks up environment variables with the given prefix.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile reads configuration data from the file and fills the passed configuration objects.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.Load(cfg, cfgs...)
}

// LoadFromReader reads configuration data from the reader and fills the passed configuration objects.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.Load(cfg, cfgs...)
}

// Load fills the passed configuration objects from the data that is already in the data provider
// (e.g., values from environment variables or set explicitly).
func (l *Loader) Load(cfg Config, cfgs ...Config) error {
	all := append([]Config{cfg}, cfgs...)
	for _, c := range all {
		c.SetProviderDefaults(l.providerFor(c))
	}
	for _, c := range all {
		if err := c.Set(l.providerFor(c)); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) providerFor(cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(l.DataProvider, kp.KeyPrefix())
	}
	return l.DataProvider
}
