// Package main is the entry point for the pdfconvert CLI, a client for the
// PDF to Markdown services.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// Configuration keys. Each can be set in the config file or as
// PDFCONVERT_<KEY> in the environment.
const (
	keyGatewayURL = "gateway_url"
	keyTextURL    = "text_url"
	keyOCRURL     = "ocr_url"
	keyTimeout    = "timeout"
)

// rootCmd is the base command for the pdfconvert CLI.
var rootCmd = &cobra.Command{
	Use:   "pdfconvert",
	Short: "Convert PDF files to Markdown through the conversion services",
	Long: `pdfconvert uploads PDF files to the conversion gateway, which routes
documents with a text layer to the text extraction service and scanned
documents to the OCR service. It can also check that all three services
are running.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdfconvert.yaml or ~/.config/pdfconvert/config.yaml)")
	rootCmd.PersistentFlags().Duration(keyTimeout, 10*time.Minute, "request timeout")
	_ = viper.BindPFlag(keyTimeout, rootCmd.PersistentFlags().Lookup(keyTimeout))

	viper.SetDefault(keyGatewayURL, "http://localhost:5001/api/convert")
	viper.SetDefault(keyTextURL, "http://localhost:5002/")
	viper.SetDefault(keyOCRURL, "http://localhost:5003/")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdfconvert")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdfconvert"))
		}
	}

	viper.SetEnvPrefix("PDFCONVERT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
