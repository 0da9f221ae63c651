package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/client"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the gateway and both converters are running",
	Long: `Health sends GET / to the gateway, the text extraction service and the
OCR service at the same time and prints one line per service. It fails when
any service is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	gateway, err := serviceRoot(viper.GetString(keyGatewayURL))
	if err != nil {
		return err
	}
	endpoints := []client.Endpoint{
		{Name: "gateway", URL: gateway},
		{Name: "text", URL: viper.GetString(keyTextURL)},
		{Name: "ocr", URL: viper.GetString(keyOCRURL)},
	}

	unhealthy := 0
	for _, st := range client.New(viper.GetDuration(keyTimeout)).CheckHealth(cmd.Context(), endpoints) {
		mark := "ok  "
		if !st.Healthy {
			mark = "FAIL"
			unhealthy++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-8s %s  %s\n", mark, st.Name, st.URL, st.Message)
	}
	if unhealthy > 0 {
		return fmt.Errorf("%d of %d services unhealthy", unhealthy, len(endpoints))
	}
	return nil
}
