// Package main is the entry point for the ClinRAG service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/clinrag/cmd/clinrag/app"
)

func main() {
	app.NewApp().Run()
}
