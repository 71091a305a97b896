// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `Print the configuration resolved from flags, environment and config
file in the format read from config.toml. Passwords in URLs are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := printable(viper.AllSettings())
		if db, ok := settings["database"].(map[string]interface{}); ok {
			if raw, ok := db["url"].(string); ok && raw != "" {
				db["url"] = redactURL(raw)
			}
		}
		if rdb, ok := settings["redis"].(map[string]interface{}); ok {
			if raw, ok := rdb["url"].(string); ok && raw != "" {
				rdb["url"] = redactURL(raw)
			}
		}

		doc, err := toml.Marshal(settings)
		if err != nil {
			return err
		}
		fmt.Print(string(doc))
		return nil
	},
}

// printable renders durations the way they are written on the command line.
func printable(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = printable(val)
		case time.Duration:
			out[k] = val.String()
		default:
			out[k] = v
		}
	}
	return out
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
