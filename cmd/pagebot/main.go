// Command pagebot serves stored books as paginated chat messages.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/m3rciful/pagebot/core/buildinfo"
	"github.com/m3rciful/pagebot/core/cmd"
	"github.com/m3rciful/pagebot/internal/app"
)

func main() {
	version := flag.Bool("version", false, "print build information and exit")
	configPath := flag.String("config", "config.yaml", "config file used when PAGEBOT_CONFIG is unset")
	flag.Parse()

	if *version {
		fmt.Println(buildinfo.Summary("pagebot"))
		return
	}

	if err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "PAGEBOT_CONFIG",
		DefaultConfigPath: *configPath,
		LoadConfig:        app.Load,
		Bootstrap:         app.Bootstrap,
	}); err != nil {
		log.Fatal(err)
	}
}
