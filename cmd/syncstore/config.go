/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional YAML configuration for the demo CLI. Every
// field has a flag equivalent; the file just keeps deployments tidy.
type Config struct {
	DataDir     string `yaml:"dataDir"`
	Backend     string `yaml:"backend"` // json, pebble or dynamodb
	LogLevel    string `yaml:"logLevel"`
	MetricsAddr string `yaml:"metricsAddr"`

	DynamoDB struct {
		Region    string `yaml:"region"`
		TableName string `yaml:"tableName"`
	} `yaml:"dynamodb"`
}

func defaultConfig() Config {
	c := Config{
		DataDir:  "./data",
		Backend:  "json",
		LogLevel: "info",
	}
	c.DynamoDB.Region = "us-east-1"
	return c
}

// loadConfig reads the YAML file at path over the defaults. A missing
// file is fine when the path was never set explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
