package cmd

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/platform"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot",
	Short: "Capture the screen as PNG",
	Long: `Capture every display, or only --region, as a PNG. Useful for cutting new
reference images. Without --output the PNG is written to stdout as base64.`,
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	screenshotCmd.Flags().String("region", "", "Capture only this region x,y,w,h")
	screenshotCmd.Flags().String("output", "", "Output file path (default: stdout as base64)")
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	if provider.Screenshotter == nil {
		return fmt.Errorf("screen capture %w on this platform", platform.ErrUnsupported)
	}

	region, err := regionFlag(cmd)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("output")

	img, err := provider.Screenshotter.Capture(region)
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	if outPath != "" {
		return os.WriteFile(outPath, buf.Bytes(), 0644)
	}

	encoder := base64.NewEncoder(base64.StdEncoding, os.Stdout)
	if _, err := encoder.Write(buf.Bytes()); err != nil {
		return err
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	fmt.Println()
	return nil
}
