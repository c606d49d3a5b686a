package main

import (
	"os"

	"github.com/noah-isme/timetable-api/internal/cli"

	_ "github.com/noah-isme/timetable-api/api/swagger"
)

// @title Institute Timetable API
// @version 1.0.0
// @description Generates candidate timetables through the scheduling engine and stores the chosen one per institute.
// @BasePath /api/v1/timetables
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
