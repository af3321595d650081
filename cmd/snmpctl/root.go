// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	target    string
	port      int
	community string
	version   string
	timeout   time.Duration
	getLimit  int

	outputFormat string
	verbose      bool
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "snmpctl",
	Short: "Asynchronous SNMP v1/v2c command-line client",
	Long: `snmpctl is a command-line client for SNMP v1/v2c agents: get, walk and
set operations over UDP, built on a single-outstanding-request session
with automatic retry.

Examples:
  # Get system description
  snmpctl get -t 192.168.1.1 .1.3.6.1.2.1.1.1.0

  # Walk the interface table
  snmpctl walk -t 192.168.1.1 .1.3.6.1.2.1.2.2

  # Set a value
  snmpctl set -t 192.168.1.1 .1.3.6.1.2.1.1.4.0 s "admin@example.com"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "", "", "config file (default is $HOME/.snmpctl.yaml)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "", "SNMP agent address (required)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 161, "SNMP agent port")
	rootCmd.PersistentFlags().StringVarP(&community, "community", "c", "public", "community string")
	rootCmd.PersistentFlags().StringVarP(&version, "version", "V", "2c", "SNMP version (1, 2c)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "response timeout")
	rootCmd.PersistentFlags().IntVar(&getLimit, "get-limit", 0, "max OIDs batched per GET-REQUEST (0 = unlimited)")

	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, csv, raw")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	viper.BindPFlag("target", rootCmd.PersistentFlags().Lookup("target"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("community", rootCmd.PersistentFlags().Lookup("community"))
	viper.BindPFlag("version", rootCmd.PersistentFlags().Lookup("version"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("get-limit", rootCmd.PersistentFlags().Lookup("get-limit"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config"))
		viper.SetConfigName(".snmpctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SNMPCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}

	target = viper.GetString("target")
	port = viper.GetInt("port")
	community = viper.GetString("community")
	version = viper.GetString("version")
	timeout = viper.GetDuration("timeout")
	getLimit = viper.GetInt("get-limit")
	outputFormat = viper.GetString("output")
	verbose = viper.GetBool("verbose")
	noColor = viper.GetBool("no-color")
}
