// @title           netprobe API
// @version         1.0
// @description     Queue TCP reachability scans and poll their reports.
// @BasePath        /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            Authorization
package main

import (
	"os"

	"netprobe/cli"
)

func main() {
	os.Exit(cli.Execute())
}
