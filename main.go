/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/killallgit/scribe-api/cmd"

// @title           Scribe API
// @version         1.0.0
// @description     Consent-gated session recording, transcription and clinical note generation
// @termsOfService  http://swagger.io/terms/
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/scribe-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Clinician JWT as "Bearer <token>"
func main() {
	cmd.Execute()
}
