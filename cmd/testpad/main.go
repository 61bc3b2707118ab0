package main

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/user/testpad_go/internal/config"
	"github.com/user/testpad_go/internal/logging"
)

//go:embed all:frontend/public
var assets embed.FS

// configPath is $TESTPAD_CONFIG or ~/.testpad/config.yaml.
func configPath() string {
	if p := os.Getenv("TESTPAD_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".testpad", "config.yaml")
}

func main() {
	fs := afero.NewOsFs()
	cfg, err := config.Load(fs, configPath())
	if err != nil {
		logrus.WithError(err).Fatal("Error loading config")
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logrus.WithError(err).Fatal("Error creating logger")
	}
	spec, err := cfg.DeviceModel(fs)
	if err != nil {
		log.WithError(err).Fatal("Error loading device spec")
	}

	app := NewApp(cfg, fs, spec, log)

	err = wails.Run(&options.App{
		Title:  spec.ReportTitle,
		Width:  1024,
		Height: 768,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 46, G: 46, B: 46, A: 255}, // #2e2e2e
		OnStartup:        app.startup,
		OnDomReady:       app.domReady,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		log.WithError(err).Fatal("Error running Wails app")
	}
}
