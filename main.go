package main

import (
	"os"

	"desktop_automation/infrastructure/config"
	"desktop_automation/infrastructure/desktop"
	"desktop_automation/infrastructure/vision"
	"desktop_automation/infrastructure/windowmatch"
	"desktop_automation/presentation/cli"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], liveDesktop))
}

// liveDesktop drives the real screen, mouse and keyboard.
func liveDesktop(cfg *config.Config, logger *logrus.Logger) cli.Devices {
	input := desktop.NewInput(logger)
	return cli.Devices{
		Probe:   vision.NewProbe(desktop.ScreenCapturer{}, vision.NewTesseract(cfg.TesseractCmd), cfg.ScreenshotDir, logger),
		Windows: desktop.NewWindows(windowmatch.NewRegistry(), input, logger),
		Input:   input,
	}
}
